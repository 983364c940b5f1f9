package detectors

import (
	"regexp"
	"strings"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/util"
)

// Scanner is the parser-free fast path: one pass over physical lines,
// tracking function blocks by brace counting. It trades recall for
// near-zero latency and emits the same finding shape as the AST
// detectors, so its output is mergeable with theirs.
type Scanner struct{}

func NewScanner() *Scanner { return &Scanner{} }

var (
	reFunctionHeader = regexp.MustCompile(`^\s*function\s+(\w+)\s*\(`)
	reAssignment     = regexp.MustCompile(`\b[_a-zA-Z]\w*(\[[^\]]*\])?\s*[-+*/]?=[^=]`)
	reExternalCall   = regexp.MustCompile(`\.(call|send|transfer|delegatecall|staticcall)\s*[({]`)
)

func (s *Scanner) Scan(source string) []model.Finding {
	var findings []model.Finding
	lines := strings.Split(source, "\n")

	type fnState struct {
		depth    int
		callLine int // first external-call line inside the block
		mutates  bool
		emits    bool
		header   string
		start    int
	}
	var fn *fnState
	depth := 0
	hasPragma := false
	hasLicense := false
	reported := map[string]struct{}{}

	report := func(kind, title string, sev model.Severity, line int, message, rec string, refs ...string) {
		findings = append(findings, model.Finding{
			Kind:           kind,
			Severity:       sev,
			Title:          title,
			Message:        message,
			Recommendation: rec,
			Line:           line,
			Snippet:        util.ExtractSnippet(source, line, line, 4),
			References:     refs,
			Fingerprint:    util.FindingFingerprint(kind, line, line, message),
			Source:         "heuristic",
		})
	}
	reportOnce := func(kind, title string, sev model.Severity, line int, message, rec string, refs ...string) {
		if _, ok := reported[kind]; ok {
			return
		}
		reported[kind] = struct{}{}
		report(kind, title, sev, line, message, rec, refs...)
	}

	for i, raw := range lines {
		line := i + 1
		text := strings.TrimSpace(raw)
		low := strings.ToLower(text)

		if strings.Contains(text, "pragma solidity") {
			hasPragma = true
		}
		if strings.Contains(text, "SPDX-License-Identifier") {
			hasLicense = true
		}

		if reFunctionHeader.MatchString(raw) && fn == nil {
			fn = &fnState{depth: depth, header: text, start: line}
			if !precededByDoc(lines, i) {
				report("missing-natspec", "Function without NatSpec", model.SeverityInfo, line,
					"Function "+fnName(text)+" has no NatSpec documentation",
					"Document public behavior with /// or /** */ NatSpec comments")
			}
		}

		if fn != nil && depth > fn.depth {
			if reExternalCall.MatchString(raw) && fn.callLine == 0 {
				fn.callLine = line
			}
			if fn.callLine > 0 && line > fn.callLine && reAssignment.MatchString(raw) {
				report("reentrancy", "External call before state update", model.SeverityHigh, fn.callLine,
					"External call is followed by a state write inside the same function block",
					"Apply checks-effects-interactions or add a reentrancy guard", "SWC-107")
				fn.callLine = -1 // one finding per function
			}
			if reAssignment.MatchString(raw) {
				fn.mutates = true
			}
			if strings.Contains(low, "emit ") {
				fn.emits = true
			}
		}

		if strings.Contains(text, "tx.origin") {
			sev := model.SeverityMedium
			msg := "tx.origin is read; intermediate contracts can change its meaning"
			if strings.Contains(low, "require(") {
				sev = model.SeverityHigh
				msg = "tx.origin used in a require() authorization check"
			}
			report("tx-origin", "Use of tx.origin", sev, line, msg,
				"Use msg.sender for authorization instead of tx.origin", "SWC-115")
		}
		if strings.Contains(low, "selfdestruct(") || strings.Contains(low, "suicide(") {
			report("selfdestruct", "Use of selfdestruct", model.SeverityHigh, line,
				"selfdestruct can brick the contract and reroute ether",
				"Remove selfdestruct or gate it behind strict access control", "SWC-106")
		}
		if strings.Contains(low, ".delegatecall(") {
			report("delegatecall", "Use of delegatecall", model.SeverityHigh, line,
				"delegatecall executes foreign code in this contract's storage context",
				"Restrict delegatecall targets to audited, immutable implementations", "SWC-112")
		}

		depth += strings.Count(raw, "{") - strings.Count(raw, "}")
		if fn != nil && depth <= fn.depth && strings.Contains(raw, "}") {
			if fn.mutates && !fn.emits {
				report("missing-event", "State change without event", model.SeverityLow, fn.start,
					"Function "+fnName(fn.header)+" mutates state but emits no event",
					"Emit an event for every externally observable state change")
			}
			fn = nil
		}
	}

	if !hasPragma {
		reportOnce("missing-pragma", "Missing solidity pragma", model.SeverityLow, 1,
			"Source declares no solidity pragma; compiler version is unpinned",
			"Add a pragma solidity directive pinning a compiler range")
	}
	if !hasLicense {
		reportOnce("missing-license", "Missing SPDX license identifier", model.SeverityInfo, 1,
			"Source carries no SPDX-License-Identifier header",
			"Add an SPDX-License-Identifier comment on the first line")
	}
	return findings
}

// precededByDoc reports whether the nearest non-blank line above index
// i is a NatSpec comment.
func precededByDoc(lines []string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		t := strings.TrimSpace(lines[j])
		if t == "" {
			continue
		}
		return strings.HasPrefix(t, "///") || strings.HasPrefix(t, "*") || strings.HasPrefix(t, "/**") || strings.HasSuffix(t, "*/")
	}
	return false
}

func fnName(header string) string {
	m := reFunctionHeader.FindStringSubmatch(header)
	if len(m) >= 2 {
		return m[1]
	}
	return "(unknown)"
}
