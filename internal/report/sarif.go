package report

import (
	"bytes"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

const toolName = "view0x-analyzer"

// ToSARIF renders a merged result as a SARIF 2.1.0 document.
func ToSARIF(result *model.MergedResult, artifactURI string) ([]byte, error) {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, err
	}
	run := sarif.NewRunWithInformationURI(toolName, "https://github.com/1cbyc/view0x-sub000")

	seenRules := map[string]struct{}{}
	addFinding := func(f model.Finding) {
		if _, ok := seenRules[f.Kind]; !ok {
			seenRules[f.Kind] = struct{}{}
			run.AddRule(f.Kind).
				WithName(f.Title).
				WithShortDescription(sarif.NewMultiformatMessageString(f.Title))
		}
		run.CreateResultForRule(f.Kind).
			WithLevel(sarifLevel(f.Severity)).
			WithMessage(sarif.NewTextMessage(f.Message)).
			AddLocation(sarif.NewLocationWithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewSimpleArtifactLocation(artifactURI)).
					WithRegion(sarif.NewSimpleRegion(f.Line, f.Line)),
			))
	}
	for _, f := range result.Vulnerabilities {
		addFinding(f)
	}
	for _, f := range result.Warnings {
		addFinding(f)
	}
	doc.AddRun(run)

	var buf bytes.Buffer
	if err := doc.PrettyWrite(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sarifLevel(s model.Severity) string {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
