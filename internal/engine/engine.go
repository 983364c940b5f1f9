package engine

import (
	"context"
	"errors"

	"github.com/hashicorp/go-hclog"

	"github.com/1cbyc/view0x-sub000/internal/detectors"
	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

// ContractAnalyzer is the common surface of every engine: local AST
// analysis, the heuristic scanner and external proxies all produce the
// same EngineResult shape so the merger can treat them uniformly.
type ContractAnalyzer interface {
	ID() string
	AnalyzeContract(ctx context.Context, sourceCode string) (model.EngineResult, error)
}

// Engine runs the full detector set against one contract.
type Engine struct {
	id       string
	parser   solidity.Parser
	registry *detectors.Registry
	log      hclog.Logger
}

func New(parser solidity.Parser, log hclog.Logger) *Engine {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	reg := detectors.NewRegistry(log.Named("detectors"))
	reg.RegisterBuiltin()
	return &Engine{id: "local", parser: parser, registry: reg, log: log}
}

func (e *Engine) ID() string { return e.id }

func (e *Engine) Registry() *detectors.Registry { return e.registry }

// AnalyzeContract parses the source, requires a contract definition,
// runs every detector over the shared index and splits findings into
// vulnerabilities and warnings.
func (e *Engine) AnalyzeContract(ctx context.Context, sourceCode string) (model.EngineResult, error) {
	root, err := e.parser.Parse(ctx, sourceCode)
	if err != nil {
		var pe *model.ParseError
		if !errors.As(err, &pe) {
			err = &model.ParseError{Detail: err.Error()}
		}
		return model.EngineResult{}, err
	}
	idx := solidity.NewIndex(root, sourceCode)
	if idx.FirstOfType("ContractDefinition") == nil {
		return model.EngineResult{}, &model.NoContractFoundError{}
	}
	findings := e.registry.Run(ctx, idx)
	result := model.EngineResult{Engine: e.id}
	for _, f := range findings {
		if f.Severity.Rank() <= model.SeverityMedium.Rank() {
			result.Vulnerabilities = append(result.Vulnerabilities, f)
		} else {
			result.Warnings = append(result.Warnings, f)
		}
	}
	return result, nil
}

// Heuristic wraps the parser-free line scanners as an engine, so the
// fast path can participate in multi-engine merges. Besides the
// vulnerability scanner it runs the gas-optimization and code-quality
// passes, whose advisory findings all land in the warnings bucket.
type Heuristic struct {
	scanner *detectors.Scanner
	gas     *detectors.GasScanner
	quality *detectors.QualityScanner
}

func NewHeuristic() *Heuristic {
	return &Heuristic{
		scanner: detectors.NewScanner(),
		gas:     detectors.NewGasScanner(),
		quality: detectors.NewQualityScanner(),
	}
}

func (h *Heuristic) ID() string { return "heuristic" }

func (h *Heuristic) AnalyzeContract(ctx context.Context, sourceCode string) (model.EngineResult, error) {
	findings := h.scanner.Scan(sourceCode)
	findings = append(findings, h.gas.Scan(sourceCode)...)
	findings = append(findings, h.quality.Scan(sourceCode)...)
	result := model.EngineResult{Engine: h.ID()}
	for _, f := range findings {
		if f.Severity.Rank() <= model.SeverityMedium.Rank() {
			result.Vulnerabilities = append(result.Vulnerabilities, f)
		} else {
			result.Warnings = append(result.Warnings, f)
		}
	}
	return result, nil
}
