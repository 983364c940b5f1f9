package detectors

import (
	"context"
	"strings"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

// accessControl flags public/external functions that write contract
// state with neither a recognized access-control modifier nor a
// require() guard referencing owner or msg.sender.
type accessControl struct{}

func (d *accessControl) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "missing-access-control",
		Title:    "State-changing function without access control",
		Severity: model.SeverityHigh,
		Tags:     []string{"SWC-105"},
	}
}

var accessControlModifiers = map[string]struct{}{
	"onlyOwner":      {},
	"onlyRole":       {},
	"onlyAdmin":      {},
	"onlyAuthorized": {},
	"authenticated":  {},
	"restricted":     {},
}

func (d *accessControl) Analyze(ctx context.Context, idx *solidity.Index) ([]model.Finding, error) {
	var findings []model.Finding
	stateVars := stateVariableNames(idx)
	for _, fn := range idx.AllOfType("FunctionDefinition") {
		vis := fn.Str("visibility")
		if vis != "public" && vis != "external" {
			continue
		}
		if fn.Str("kind") == "constructor" || fn.Bool("isConstructor") {
			continue
		}
		body := fn.Child("body")
		if body == nil {
			continue
		}
		if !writesState(body, stateVars) {
			continue
		}
		if hasAccessModifier(fn) || hasOwnerGuard(body) {
			continue
		}
		findings = append(findings, newFinding(idx, d.Meta(), fn, model.SeverityHigh,
			"Public/external function modifies contract state without an access-control modifier or owner check",
			"Restrict the caller with a modifier such as onlyOwner/onlyRole, or an explicit require() on msg.sender",
			d.Meta().Tags))
	}
	return findings, nil
}

func writesState(body *solidity.Node, stateVars map[string]struct{}) bool {
	found := false
	walkSubtree(body, func(n *solidity.Node) {
		if isStateWrite(n, stateVars) {
			found = true
		}
	})
	return found
}

func hasAccessModifier(fn *solidity.Node) bool {
	for _, m := range fn.ChildList("modifiers") {
		name := m.Str("name")
		if mn := m.Child("modifierName"); mn != nil {
			name = mn.Str("name")
		}
		if _, ok := accessControlModifiers[name]; ok {
			return true
		}
	}
	return false
}

// hasOwnerGuard looks for a require(...) whose condition references
// owner or msg.sender anywhere in the body.
func hasOwnerGuard(body *solidity.Node) bool {
	found := false
	walkSubtree(body, func(n *solidity.Node) {
		if found || !isCallTo(n, "require") {
			return
		}
		for _, arg := range n.ChildList("arguments") {
			walkSubtree(arg, func(a *solidity.Node) {
				switch a.Type {
				case "Identifier":
					if strings.Contains(strings.ToLower(a.Str("name")), "owner") {
						found = true
					}
				case "MemberAccess":
					expr := a.Child("expression")
					if a.Str("memberName") == "sender" && expr != nil && expr.Str("name") == "msg" {
						found = true
					}
				}
			})
		}
	})
	return found
}
