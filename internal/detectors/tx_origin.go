package detectors

import (
	"context"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

// txOrigin flags any read of tx.origin. A read inside a require(...)
// is treated as authorization logic and escalated to high severity.
type txOrigin struct{}

func (d *txOrigin) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "tx-origin",
		Title:    "Use of tx.origin",
		Severity: model.SeverityMedium,
		Tags:     []string{"SWC-115"},
	}
}

func (d *txOrigin) Analyze(ctx context.Context, idx *solidity.Index) ([]model.Finding, error) {
	var findings []model.Finding
	for _, n := range idx.AllOfType("MemberAccess") {
		if n.Str("memberName") != "origin" {
			continue
		}
		expr := n.Child("expression")
		if expr == nil || expr.Type != "Identifier" || expr.Str("name") != "tx" {
			continue
		}
		sev := model.SeverityMedium
		message := "tx.origin is read; intermediate contracts can change its meaning"
		if insideRequire(idx, n) {
			sev = model.SeverityHigh
			message = "tx.origin used inside require(): authorization via tx.origin is phishable through intermediate contracts"
		}
		findings = append(findings, newFinding(idx, d.Meta(), n, sev, message,
			"Use msg.sender for authorization instead of tx.origin",
			d.Meta().Tags))
	}
	return findings, nil
}

func insideRequire(idx *solidity.Index, n *solidity.Node) bool {
	for _, p := range idx.Ancestors(n) {
		if isCallTo(p, "require") {
			return true
		}
	}
	return false
}
