package detectors

import (
	"context"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

// reentrancy flags functions where an external value call is followed
// lexically by a write to contract state, the classic
// checks-effects-interactions violation.
type reentrancy struct{}

func (d *reentrancy) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "reentrancy",
		Title:    "External call before state update",
		Severity: model.SeverityHigh,
		Tags:     []string{"SWC-107"},
	}
}

func (d *reentrancy) Analyze(ctx context.Context, idx *solidity.Index) ([]model.Finding, error) {
	var findings []model.Finding
	stateVars := stateVariableNames(idx)
	for _, fn := range idx.AllOfType("FunctionDefinition") {
		body := fn.Child("body")
		if body == nil {
			continue
		}
		var calls, writes []*solidity.Node
		walkSubtree(body, func(n *solidity.Node) {
			if isExternalValueCall(n) {
				calls = append(calls, n)
			}
			if isStateWrite(n, stateVars) {
				writes = append(writes, n)
			}
		})
		if len(calls) == 0 || len(writes) == 0 {
			continue
		}
		call := earliest(calls)
		if earliestAfter(writes, call.Loc.Start) == nil {
			continue
		}
		findings = append(findings, newFinding(idx, d.Meta(), call, model.SeverityHigh,
			"External call executes before a later state update in the same function; a reentrant caller can observe stale state",
			"Apply checks-effects-interactions: update state before the external call, or add a reentrancy guard",
			d.Meta().Tags))
	}
	return findings, nil
}

func earliest(nodes []*solidity.Node) *solidity.Node {
	m := nodes[0]
	for _, n := range nodes {
		if n.Loc.Start < m.Loc.Start {
			m = n
		}
	}
	return m
}

// earliestAfter returns the first node starting strictly past offset,
// or nil.
func earliestAfter(nodes []*solidity.Node, offset int) *solidity.Node {
	var m *solidity.Node
	for _, n := range nodes {
		if n.Loc.Start > offset && (m == nil || n.Loc.Start < m.Loc.Start) {
			m = n
		}
	}
	return m
}
