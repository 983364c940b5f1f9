package detectors

import (
	"context"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

// weakRandomness flags randomness derived from miner-influenced chain
// attributes: block fields hashed through keccak256/abi.encodePacked
// (high severity, that is the lottery pattern) and bare reads of the
// same fields (medium).
type weakRandomness struct{}

func (d *weakRandomness) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "weak-randomness",
		Title:    "Randomness from chain attributes",
		Severity: model.SeverityMedium,
		Tags:     []string{"SWC-120"},
	}
}

var blockMembers = map[string]struct{}{
	"timestamp":  {},
	"difficulty": {},
	"number":     {},
	"prevrandao": {},
}

const (
	randomnessRecommendation = "Use a verifiable randomness source (e.g. a VRF) or a commit-reveal scheme instead of chain attributes"
)

func (d *weakRandomness) Analyze(ctx context.Context, idx *solidity.Index) ([]model.Finding, error) {
	var findings []model.Finding
	consumed := map[*solidity.Node]struct{}{}

	for _, call := range idx.AllOfType("FunctionCall") {
		if !isHashCall(call) {
			continue
		}
		// report only the outermost hash of a nested
		// keccak256(abi.encodePacked(...)) chain
		if nearestHashAncestor(idx, call) != nil {
			continue
		}
		var sources []*solidity.Node
		for _, arg := range call.ChildList("arguments") {
			walkSubtree(arg, func(n *solidity.Node) {
				if isBlockAttribute(n) {
					sources = append(sources, n)
				}
			})
		}
		if len(sources) == 0 {
			continue
		}
		for _, s := range sources {
			consumed[s] = struct{}{}
		}
		findings = append(findings, newFinding(idx, d.Meta(), call, model.SeverityHigh,
			"Hash over miner-influenced block attributes is predictable and unsuitable as randomness",
			randomnessRecommendation,
			d.Meta().Tags))
	}

	bare := idx.Find(func(n *solidity.Node) bool { return isBlockAttribute(n) })
	for _, n := range bare {
		if _, ok := consumed[n]; ok {
			continue
		}
		findings = append(findings, newFinding(idx, d.Meta(), n, model.SeverityMedium,
			"Read of a miner-influenced block attribute; do not rely on it for unpredictable values",
			randomnessRecommendation,
			d.Meta().Tags))
	}
	return findings, nil
}

func isHashCall(n *solidity.Node) bool {
	if n.Type != "FunctionCall" {
		return false
	}
	if isCallTo(n, "keccak256") {
		return true
	}
	callee := n.Child("expression")
	if callee == nil || callee.Type != "MemberAccess" {
		return false
	}
	expr := callee.Child("expression")
	return callee.Str("memberName") == "encodePacked" && expr != nil && expr.Str("name") == "abi"
}

func nearestHashAncestor(idx *solidity.Index, n *solidity.Node) *solidity.Node {
	for _, p := range idx.Ancestors(n) {
		if isHashCall(p) {
			return p
		}
	}
	return nil
}

// isBlockAttribute matches block.timestamp/difficulty/number/
// prevrandao, blockhash(...) and the legacy bare now.
func isBlockAttribute(n *solidity.Node) bool {
	switch n.Type {
	case "MemberAccess":
		expr := n.Child("expression")
		if expr == nil || expr.Type != "Identifier" || expr.Str("name") != "block" {
			return false
		}
		_, ok := blockMembers[n.Str("memberName")]
		return ok
	case "FunctionCall":
		return isCallTo(n, "blockhash")
	case "Identifier":
		return n.Str("name") == "now"
	}
	return false
}
