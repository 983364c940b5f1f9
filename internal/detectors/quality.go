package detectors

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/util"
)

// QualityScanner flags maintainability issues: naming conventions,
// complexity, duplication and implicit declarations. Like GasScanner it
// emits only low/info findings, and leaves the hygiene checks that
// Scanner already covers (pragma, license, NatSpec, events) alone.
type QualityScanner struct{}

func NewQualityScanner() *QualityScanner { return &QualityScanner{} }

var (
	reContractDecl  = regexp.MustCompile(`\bcontract\s+([A-Za-z_]\w*)`)
	reVisibilityKw  = regexp.MustCompile(`\b(public|external|internal|private)\b`)
	reMagicNumber   = regexp.MustCompile(`\b[1-9]\d{2,}\b`)
	reBranchKeyword = regexp.MustCompile(`\b(if|require)\s*\(`)
)

const (
	maxFunctionLines    = 50
	maxFunctionBranches = 5
	duplicateThreshold  = 3
)

func (s *QualityScanner) Scan(source string) []model.Finding {
	var findings []model.Finding
	lines := strings.Split(source, "\n")

	report := func(title string, sev model.Severity, line int, message, rec string) {
		findings = append(findings, model.Finding{
			Kind:           "code-quality",
			Severity:       sev,
			Title:          title,
			Message:        message,
			Recommendation: rec,
			Line:           line,
			Snippet:        util.ExtractSnippet(source, line, line, 4),
			Fingerprint:    util.FindingFingerprint("code-quality", line, line, message),
			Source:         "code-quality",
		})
	}

	type fnState struct {
		depth    int
		start    int
		name     string
		branches int
	}
	var fn *fnState
	depth := 0
	seen := map[string][]int{}

	for i, raw := range lines {
		line := i + 1
		text := strings.TrimSpace(raw)

		if m := reContractDecl.FindStringSubmatch(raw); m != nil {
			if r := m[1][0]; r >= 'a' && r <= 'z' {
				report("Contract name not PascalCase", model.SeverityInfo, line,
					"Contract "+m[1]+" does not follow the PascalCase convention",
					"Rename the contract to start with an uppercase letter")
			}
		}

		if m := reFunctionHeader.FindStringSubmatch(raw); m != nil {
			if fn == nil {
				fn = &fnState{depth: depth, start: line, name: m[1]}
			}
			if r := m[1][0]; r >= 'A' && r <= 'Z' {
				report("Function name not camelCase", model.SeverityInfo, line,
					"Function "+m[1]+" does not follow the camelCase convention",
					"Rename the function to start with a lowercase letter")
			}
			if !reVisibilityKw.MatchString(raw) {
				report("Function without explicit visibility", model.SeverityLow, line,
					"Function "+m[1]+" declares no visibility",
					"State the visibility explicitly: public, external, internal or private")
			}
		}

		if fn != nil && depth > fn.depth && reBranchKeyword.MatchString(raw) {
			fn.branches++
		}

		// magic numbers, outside comments, strings and named constants
		if !strings.Contains(text, "//") && !strings.Contains(text, `"`) &&
			!strings.Contains(text, "constant") && !strings.Contains(text, "pragma") {
			if num := reMagicNumber.FindString(raw); num != "" {
				report("Magic number", model.SeverityInfo, line,
					"Literal "+num+" has no named constant",
					"Extract the value into a named constant")
			}
		}

		if len(text) > 20 && !strings.Contains(text, "function") {
			seen[text] = append(seen[text], line)
		}

		depth += strings.Count(raw, "{") - strings.Count(raw, "}")
		if fn != nil && depth <= fn.depth && strings.Contains(raw, "}") {
			if length := line - fn.start + 1; length > maxFunctionLines {
				report("Long function", model.SeverityLow, fn.start,
					fmt.Sprintf("Function %s spans %d lines", fn.name, length),
					"Split the function into smaller single-purpose functions")
			}
			if fn.branches > maxFunctionBranches {
				report("High branching complexity", model.SeverityLow, fn.start,
					fmt.Sprintf("Function %s has %d branch points", fn.name, fn.branches),
					"Reduce nesting with early returns or extracted helpers")
			}
			fn = nil
		}
	}

	var repeated []string
	for text, at := range seen {
		if len(at) >= duplicateThreshold {
			repeated = append(repeated, text)
		}
	}
	sort.Slice(repeated, func(i, j int) bool { return seen[repeated[i]][0] < seen[repeated[j]][0] })
	for _, text := range repeated {
		at := seen[text]
		report("Duplicated statement", model.SeverityLow, at[0],
			fmt.Sprintf("The statement %q repeats on %d lines", text, len(at)),
			"Extract the repeated logic into a function or modifier")
	}
	return findings
}
