package detectors

import (
	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
	"github.com/1cbyc/view0x-sub000/internal/util"
)

// walkSubtree visits n and all descendants in pre-order.
func walkSubtree(n *solidity.Node, fn func(*solidity.Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children() {
		walkSubtree(c, fn)
	}
}

// stateVariableNames collects the names of all state variable
// declarations in the indexed source.
func stateVariableNames(idx *solidity.Index) map[string]struct{} {
	names := map[string]struct{}{}
	for _, decl := range idx.AllOfType("VariableDeclaration") {
		if decl.Bool("stateVariable") {
			if name := decl.Str("name"); name != "" {
				names[name] = struct{}{}
			}
		}
	}
	return names
}

var externalCallMembers = map[string]struct{}{
	"call":         {},
	"send":         {},
	"transfer":     {},
	"delegatecall": {},
	"staticcall":   {},
}

// isExternalValueCall reports whether n is a call through one of the
// value-transferring members (x.call, x.send, x.transfer,
// x.delegatecall, x.staticcall), including the x.call{value: v}("")
// form where the member access sits behind FunctionCallOptions.
func isExternalValueCall(n *solidity.Node) bool {
	if n.Type != "FunctionCall" {
		return false
	}
	callee := n.Child("expression")
	if callee != nil && callee.Type == "FunctionCallOptions" {
		callee = callee.Child("expression")
	}
	if callee == nil || callee.Type != "MemberAccess" {
		return false
	}
	_, ok := externalCallMembers[callee.Str("memberName")]
	return ok
}

// isStateWrite reports whether n assigns to contract state: either a
// this.-qualified member or an identifier declared as a state variable
// (possibly behind index accesses, as in balances[msg.sender] -= x).
func isStateWrite(n *solidity.Node, stateVars map[string]struct{}) bool {
	if n.Type != "Assignment" {
		return false
	}
	target := n.Child("leftHandSide")
	for target != nil && target.Type == "IndexAccess" {
		target = target.Child("baseExpression")
	}
	if target == nil {
		return false
	}
	if target.Type == "MemberAccess" {
		expr := target.Child("expression")
		return expr != nil && expr.Type == "Identifier" && expr.Str("name") == "this"
	}
	if target.Type == "Identifier" {
		_, ok := stateVars[target.Str("name")]
		return ok
	}
	return false
}

// isCallTo reports whether n is a call to the named free function
// (require, assert, blockhash, keccak256, ...).
func isCallTo(n *solidity.Node, name string) bool {
	if n.Type != "FunctionCall" {
		return false
	}
	callee := n.Child("expression")
	return callee != nil && callee.Type == "Identifier" && callee.Str("name") == name
}

// newFinding assembles a finding in the shared shape used by every
// detector: location from the node, line and snippet derived from the
// index's source.
func newFinding(idx *solidity.Index, meta model.RuleMeta, n *solidity.Node, sev model.Severity, message, recommendation string, refs []string) model.Finding {
	line := idx.LineOf(n)
	return model.Finding{
		Kind:           meta.ID,
		Severity:       sev,
		Title:          meta.Title,
		Message:        message,
		Recommendation: recommendation,
		StartOffset:    n.Loc.Start,
		EndOffset:      n.Loc.End,
		Line:           line,
		Snippet:        util.ExtractSnippet(idx.Source, line, line, 6),
		References:     refs,
		Fingerprint:    util.FindingFingerprint(meta.ID, n.Loc.Start, n.Loc.End, message),
		Source:         meta.ID,
	}
}
