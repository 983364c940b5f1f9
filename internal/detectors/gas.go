package detectors

import (
	"regexp"
	"strings"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/util"
)

// GasScanner flags gas optimization opportunities with the same
// line-scanning approach as Scanner. Everything it emits is advisory:
// severities stay at low/info so the findings land in the warnings
// bucket, never in the vulnerability count.
type GasScanner struct{}

func NewGasScanner() *GasScanner { return &GasScanner{} }

var (
	reForHeader    = regexp.MustCompile(`^\s*for\s*\(`)
	reStateVarDecl = regexp.MustCompile(`^\s*(uint\d*|int\d*|bool|address|bytes\d*|string|mapping)\b[^(]*;`)
	reTypeToken    = regexp.MustCompile(`^(uint\d*|int\d*|bool|address|bytes\d*|string|mapping)`)
)

func (s *GasScanner) Scan(source string) []model.Finding {
	var findings []model.Finding
	lines := strings.Split(source, "\n")

	report := func(title string, sev model.Severity, line int, message, rec string) {
		findings = append(findings, model.Finding{
			Kind:           "gas-optimization",
			Severity:       sev,
			Title:          title,
			Message:        message,
			Recommendation: rec,
			Line:           line,
			Snippet:        util.ExtractSnippet(source, line, line, 4),
			References:     nil,
			Fingerprint:    util.FindingFingerprint("gas-optimization", line, line, message),
			Source:         "gas-optimizer",
		})
	}

	depth := 0
	sawSmallSlot := false
	sawFullSlotAfterSmall := false
	packingReported := false

	for i, raw := range lines {
		line := i + 1
		text := strings.TrimSpace(raw)
		low := strings.ToLower(text)

		if reForHeader.MatchString(raw) {
			if strings.Contains(text, "++") && !strings.Contains(low, "unchecked") {
				report("Unchecked loop increment", model.SeverityInfo, line,
					"Loop counter increment runs with overflow checks on every iteration",
					"Wrap the increment in unchecked { } when the counter cannot overflow")
			}
			if strings.Contains(text, ".length") {
				report("Array length read in loop condition", model.SeverityLow, line,
					"The loop condition re-reads .length on every iteration",
					"Cache the array length in a local variable before the loop")
			}
		}

		if strings.Contains(low, "require(") && strings.Contains(text, `"`) {
			report("Require with revert string", model.SeverityInfo, line,
				"require() with a string message stores and returns the string on revert",
				"Declare a custom error and use revert MyError() instead")
		}

		// state variable packing: a sub-word slot, then a full slot, then
		// another sub-word slot wastes storage that reordering would pack
		if depth == 1 && !packingReported && reStateVarDecl.MatchString(raw) {
			if packsSubWord(text) {
				if sawFullSlotAfterSmall {
					report("State variable packing", model.SeverityLow, line,
						"Sub-word state variables are separated by a full-slot variable; reordering packs them into one slot",
						"Group uint128-and-smaller, bool and address declarations together")
					packingReported = true
				}
				sawSmallSlot = true
			} else if sawSmallSlot {
				sawFullSlotAfterSmall = true
			}
		}

		if m := reFunctionHeader.FindStringSubmatch(raw); m != nil && strings.Contains(low, " public") {
			name := m[1]
			if strings.Count(source, name+"(") == 1 {
				report("Public function never called internally", model.SeverityInfo, line,
					"Function "+name+" is public but has no internal callers",
					"Declare it external; external calldata parameters are cheaper than public memory copies")
			}
		}

		depth += strings.Count(raw, "{") - strings.Count(raw, "}")
	}
	return findings
}

// packsSubWord reports whether decl declares a state variable narrower
// than one 32-byte slot.
func packsSubWord(decl string) bool {
	m := reTypeToken.FindString(decl)
	switch {
	case m == "bool" || m == "address":
		return true
	case strings.HasPrefix(m, "uint") || strings.HasPrefix(m, "int"):
		digits := strings.TrimLeft(m, "uint")
		if digits == "" {
			return false // uint/int alias 256 bits
		}
		return len(digits) < 3 || digits < "256"
	case strings.HasPrefix(m, "bytes"):
		size := strings.TrimPrefix(m, "bytes")
		return size != "" && size != "32"
	default:
		return false
	}
}
