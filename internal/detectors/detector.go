package detectors

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

// Detector scans an AST index for one vulnerability family. Detectors
// hold no per-run state: the index arrives as a parameter, so a single
// detector value is safe to run concurrently.
type Detector interface {
	Meta() model.RuleMeta
	Analyze(ctx context.Context, idx *solidity.Index) ([]model.Finding, error)
}

type Registry struct {
	detectors []Detector
	log       hclog.Logger
}

func NewRegistry(log hclog.Logger) *Registry {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Registry{log: log}
}

func (r *Registry) Register(d Detector) { r.detectors = append(r.detectors, d) }

func (r *Registry) RegisterBuiltin() {
	r.Register(&reentrancy{})
	r.Register(&integerOverflow{})
	r.Register(&accessControl{})
	r.Register(&txOrigin{})
	r.Register(&weakRandomness{})
}

func (r *Registry) Detectors() []Detector { return r.detectors }

// Run executes every registered detector against the shared read-only
// index. Detectors are independent: a failing or panicking detector is
// logged and skipped, never aborting the run.
func (r *Registry) Run(ctx context.Context, idx *solidity.Index) []model.Finding {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		cpu = 2
	}
	type res struct{ fs []model.Finding }
	ch := make(chan res, len(r.detectors))
	var wg sync.WaitGroup
	sem := make(chan struct{}, cpu)
	for _, d := range r.detectors {
		d := d
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fs, err := r.runOne(ctx, d, idx)
			if err != nil {
				r.log.Warn("detector skipped", "detector", d.Meta().ID, "error", err)
				ch <- res{}
				return
			}
			ch <- res{fs: fs}
		}()
	}
	wg.Wait()
	close(ch)
	var out []model.Finding
	for r := range ch {
		out = append(out, r.fs...)
	}
	return out
}

func (r *Registry) runOne(ctx context.Context, d Detector, idx *solidity.Index) (fs []model.Finding, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &model.DetectorError{Detector: d.Meta().ID, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	fs, err = d.Analyze(ctx, idx)
	if err != nil {
		err = &model.DetectorError{Detector: d.Meta().ID, Err: err}
	}
	return fs, err
}
