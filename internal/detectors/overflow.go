package detectors

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

// integerOverflow flags raw arithmetic in pre-0.8 contracts that is
// not routed through SafeMath. Solidity 0.8 introduced checked
// arithmetic, so sources pinned to 0.8+ are exempt wholesale.
type integerOverflow struct{}

func (d *integerOverflow) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "integer-overflow",
		Title:    "Unchecked arithmetic without SafeMath",
		Severity: model.SeverityHigh,
		Tags:     []string{"SWC-101"},
	}
}

var arithmeticOps = map[string]struct{}{"+": {}, "-": {}, "*": {}, "/": {}}

var safeMathMembers = map[string]struct{}{"add": {}, "sub": {}, "mul": {}, "div": {}}

var rePragmaVersion = regexp.MustCompile(`(\^|>=)?\s*0\.(\d+)`)

func (d *integerOverflow) Analyze(ctx context.Context, idx *solidity.Index) ([]model.Finding, error) {
	if pragmaAtLeast08(idx) {
		return nil, nil
	}
	var findings []model.Finding
	for _, op := range idx.AllOfType("BinaryOperation") {
		if _, ok := arithmeticOps[op.Str("operator")]; !ok {
			continue
		}
		if insideSafeMathCall(idx, op) {
			continue
		}
		findings = append(findings, newFinding(idx, d.Meta(), op, model.SeverityHigh,
			"Arithmetic on a pre-0.8 compiler without SafeMath can silently wrap on overflow or underflow",
			"Upgrade the pragma to ^0.8.0 or wrap the operation in SafeMath (.add/.sub/.mul/.div)",
			d.Meta().Tags))
	}
	return findings, nil
}

// pragmaAtLeast08 reports whether any solidity pragma pins the compiler
// to 0.8 or later, where arithmetic is checked by default.
func pragmaAtLeast08(idx *solidity.Index) bool {
	for _, p := range idx.AllOfType("PragmaDirective") {
		literals := p.StrList("literals")
		if len(literals) == 0 || literals[0] != "solidity" {
			continue
		}
		version := strings.Join(literals[1:], "")
		m := rePragmaVersion.FindStringSubmatch(version)
		if m == nil {
			continue
		}
		if minor, err := strconv.Atoi(m[2]); err == nil && minor >= 8 {
			return true
		}
	}
	return false
}

func insideSafeMathCall(idx *solidity.Index, op *solidity.Node) bool {
	for _, p := range idx.Ancestors(op) {
		if p.Type != "FunctionCall" {
			continue
		}
		callee := p.Child("expression")
		if callee == nil || callee.Type != "MemberAccess" {
			continue
		}
		if _, ok := safeMathMembers[callee.Str("memberName")]; ok {
			return true
		}
	}
	return false
}
