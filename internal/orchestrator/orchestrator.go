package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/1cbyc/view0x-sub000/internal/cache"
	"github.com/1cbyc/view0x-sub000/internal/config"
	"github.com/1cbyc/view0x-sub000/internal/engine"
	"github.com/1cbyc/view0x-sub000/internal/events"
	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/util"
)

// Orchestrator owns the lifecycle of analysis jobs: cache lookup,
// engine dispatch, progress emission, persistence handoff and the
// retry policy for transient external failures. At most
// MaxConcurrentAnalyses jobs run engine work at once; excess
// submissions wait in a FIFO queue.
type Orchestrator struct {
	cfg       config.Config
	local     engine.ContractAnalyzer
	heuristic engine.ContractAnalyzer
	external  engine.ContractAnalyzer
	cache     cache.Store
	jobs      JobStore
	bus       *events.Bus
	log       hclog.Logger
	mergeCfg  engine.MergeConfig

	tasks     chan task
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type task struct {
	jobID       string
	sourceCode  string
	options     model.Options
	fingerprint string
}

type Params struct {
	Config    config.Config
	Local     engine.ContractAnalyzer
	Heuristic engine.ContractAnalyzer
	External  engine.ContractAnalyzer // nil when no external engine is configured
	Cache     cache.Store
	Jobs      JobStore
	Bus       *events.Bus
	Log       hclog.Logger
}

func New(p Params) *Orchestrator {
	if p.Log == nil {
		p.Log = hclog.NewNullLogger()
	}
	if p.Cache == nil {
		p.Cache = cache.NewMemory()
	}
	if p.Jobs == nil {
		p.Jobs = NewMemoryStore()
	}
	if p.Bus == nil {
		p.Bus = events.NewBus()
	}
	workers := p.Config.MaxConcurrentAnalyses
	if workers <= 0 {
		workers = 1
	}
	depth := p.Config.QueueDepth
	if depth <= 0 {
		depth = 64
	}
	o := &Orchestrator{
		cfg:       p.Config,
		local:     p.Local,
		heuristic: p.Heuristic,
		external:  p.External,
		cache:     p.Cache,
		jobs:      p.Jobs,
		bus:       p.Bus,
		log:       p.Log,
		mergeCfg: engine.MergeConfig{
			WindowLines:    p.Config.Merge.WindowLines,
			BaseConfidence: p.Config.Merge.BaseConfidence,
			Step:           p.Config.Merge.ConfidenceStep,
			Cap:            p.Config.Merge.ConfidenceCap,
		},
		tasks: make(chan task, depth),
	}
	for i := 0; i < workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o
}

// Close drains the queue and stops the workers. Submitted jobs finish.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() { close(o.tasks) })
	o.wg.Wait()
}

// Submit registers a new analysis job. On a cache hit the job
// completes immediately with the cached result and zero cost;
// otherwise it is queued for engine work.
func (o *Orchestrator) Submit(ctx context.Context, req model.SubmitRequest) (model.SubmitReceipt, error) {
	if req.SourceCode == "" {
		return model.SubmitReceipt{}, fmt.Errorf("sourceCode must not be empty")
	}
	fp := util.Fingerprint(req.SourceCode, req.Options)
	now := time.Now().UTC()
	job := model.AnalysisJob{
		ID:        uuid.NewString(),
		Status:    model.StatusQueued,
		CreatedAt: now,
	}

	if cached := o.cacheGet(ctx, fp); cached != nil {
		job.Status = model.StatusCompleted
		job.Progress = 100
		job.CurrentStep = "Served from cache"
		job.CacheHit = true
		job.Result = cached
		job.StartedAt = &now
		job.CompletedAt = &now
		if err := o.jobs.Create(job); err != nil {
			return model.SubmitReceipt{}, err
		}
		o.bus.Publish(model.ProgressEvent{
			JobID:    job.ID,
			Status:   model.StatusCompleted,
			Progress: 100,
			Result:   cached,
		})
		return model.SubmitReceipt{JobID: job.ID, Status: model.StatusCompleted}, nil
	}

	if err := o.jobs.Create(job); err != nil {
		return model.SubmitReceipt{}, err
	}
	t := task{jobID: job.ID, sourceCode: req.SourceCode, options: req.Options, fingerprint: fp}
	select {
	case o.tasks <- t:
	case <-ctx.Done():
		// the record must not outlive a submission that never enqueued
		if err := o.jobs.Delete(job.ID); err != nil {
			o.log.Warn("failed to remove unqueued job", "jobId", job.ID, "error", err)
		}
		return model.SubmitReceipt{}, ctx.Err()
	}
	return model.SubmitReceipt{
		JobID:                job.ID,
		Status:               model.StatusQueued,
		EstimatedTimeSeconds: estimateSeconds(len(req.SourceCode), req.Options.Engine),
	}, nil
}

// Job returns the current job record.
func (o *Orchestrator) Job(id string) (model.AnalysisJob, error) { return o.jobs.Get(id) }

// Subscribe returns the progress event stream for a job.
func (o *Orchestrator) Subscribe(jobID string) (<-chan model.ProgressEvent, func()) {
	return o.bus.Subscribe(jobID)
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for t := range o.tasks {
		o.run(t)
	}
}

func (o *Orchestrator) run(t task) {
	ctx := context.Background()
	if t.options.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.options.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	if err := o.transition(t.jobID, model.StatusProcessing, func(job *model.AnalysisJob) {
		now := time.Now().UTC()
		job.StartedAt = &now
	}); err != nil {
		o.log.Error("job cannot start", "jobId", t.jobID, "error", err)
		return
	}
	o.progress(t.jobID, 10, "Preparing analysis")

	// a concurrent job with the same fingerprint may have landed since
	// submission; duplicate work is bounded, not incorrect
	o.progress(t.jobID, 30, "Checking result cache")
	if cached := o.cacheGet(ctx, t.fingerprint); cached != nil {
		o.complete(t.jobID, t.fingerprint, cached, true)
		return
	}

	results, err := o.dispatch(ctx, t)
	if err != nil {
		o.fail(t.jobID, err)
		return
	}

	o.progress(t.jobID, 80, "Merging findings")
	merged := engine.Merge(results, o.mergeCfg)

	o.progress(t.jobID, 90, "Persisting result")
	o.complete(t.jobID, t.fingerprint, &merged, false)
}

func (o *Orchestrator) dispatch(ctx context.Context, t task) ([]model.EngineResult, error) {
	switch t.options.Engine {
	case model.EngineExternal:
		if o.external == nil {
			return nil, &model.ExternalEngineUnavailableError{
				Engine: "external",
				Err:    fmt.Errorf("no external engine configured"),
			}
		}
		o.progress(t.jobID, 60, "Running external engine")
		r, err := o.withRetry(ctx, t.jobID, o.external, t.sourceCode)
		if err != nil {
			return nil, err
		}
		return []model.EngineResult{r}, nil

	case model.EngineMulti:
		o.progress(t.jobID, 60, "Running analysis engines")
		return o.runMulti(ctx, t)

	default:
		o.progress(t.jobID, 60, "Running local analysis")
		r, err := o.local.AnalyzeContract(ctx, t.sourceCode)
		if err != nil {
			return nil, err
		}
		return []model.EngineResult{r}, nil
	}
}

// runMulti fans out to every available engine concurrently and merges
// whatever succeeded. The job fails only when no engine produced a
// result; the first error is surfaced in that case.
func (o *Orchestrator) runMulti(ctx context.Context, t task) ([]model.EngineResult, error) {
	analyzers := []engine.ContractAnalyzer{o.local}
	if o.heuristic != nil {
		analyzers = append(analyzers, o.heuristic)
	}
	if o.external != nil {
		analyzers = append(analyzers, o.external)
	}

	var mu sync.Mutex
	results := make([]model.EngineResult, 0, len(analyzers))
	errs := make([]error, 0, len(analyzers))
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range analyzers {
		a := a
		g.Go(func() error {
			var r model.EngineResult
			var err error
			// the configured external engine keeps its retry policy in
			// multi mode, whatever concrete type backs it
			if a == o.external {
				r, err = o.withRetry(gctx, t.jobID, a, t.sourceCode)
			} else {
				r, err = a.AnalyzeContract(gctx, t.sourceCode)
			}
			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				o.log.Warn("engine failed in multi mode", "jobId", t.jobID, "engine", a.ID(), "error", err)
				errs = append(errs, err)
			} else {
				results = append(results, r)
			}
			o.progress(t.jobID, 60+30*done/len(analyzers), fmt.Sprintf("Engine %s finished", a.ID()))
			return nil
		})
	}
	_ = g.Wait()

	if len(results) == 0 {
		if len(errs) > 0 {
			return nil, errs[0]
		}
		return nil, fmt.Errorf("no engines available")
	}
	return results, nil
}

// withRetry retries transient external-engine failures with
// exponential backoff. Deterministic errors return immediately.
func (o *Orchestrator) withRetry(ctx context.Context, jobID string, a engine.ContractAnalyzer, source string) (model.EngineResult, error) {
	attempts := o.cfg.ExternalEngine.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := time.Duration(o.cfg.ExternalEngine.RetryBackoffMs) * time.Millisecond
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		r, err := a.AnalyzeContract(ctx, source)
		if err == nil {
			return r, nil
		}
		lastErr = err
		if !model.Retryable(err) {
			return model.EngineResult{}, err
		}
		if attempt == attempts {
			break
		}
		o.log.Warn("external engine attempt failed, backing off",
			"jobId", jobID, "engine", a.ID(), "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return model.EngineResult{}, lastErr
		}
		backoff *= 2
	}
	return model.EngineResult{}, lastErr
}

func (o *Orchestrator) complete(jobID, fingerprint string, result *model.MergedResult, fromCache bool) {
	err := o.transition(jobID, model.StatusCompleted, func(job *model.AnalysisJob) {
		now := time.Now().UTC()
		job.Progress = 100
		job.CurrentStep = "Analysis complete"
		job.Result = result
		job.CacheHit = fromCache
		job.CompletedAt = &now
	})
	if err != nil {
		o.log.Error("failed to complete job", "jobId", jobID, "error", err)
		return
	}
	if !fromCache {
		// write-through, best-effort: a cache failure must not fail the job
		ttl := time.Duration(o.cfg.CacheTTLSeconds) * time.Second
		if err := o.cache.Set(context.Background(), fingerprint, result, ttl); err != nil {
			o.log.Warn("cache write failed", "jobId", jobID, "error", err)
		}
	}
	o.bus.Publish(model.ProgressEvent{
		JobID:    jobID,
		Status:   model.StatusCompleted,
		Progress: 100,
		Result:   result,
	})
}

func (o *Orchestrator) fail(jobID string, cause error) {
	msg := cause.Error()
	err := o.transition(jobID, model.StatusFailed, func(job *model.AnalysisJob) {
		now := time.Now().UTC()
		job.ErrorMessage = msg
		job.CompletedAt = &now
	})
	if err != nil {
		o.log.Error("failed to mark job failed", "jobId", jobID, "error", err)
		return
	}
	o.log.Error("analysis failed", "jobId", jobID, "error", cause)
	o.bus.Publish(model.ProgressEvent{
		JobID:  jobID,
		Status: model.StatusFailed,
		Error:  msg,
	})
}

// transition moves a job to the next status, enforcing the total
// ordering queued -> processing -> terminal.
func (o *Orchestrator) transition(jobID string, next model.JobStatus, mutate func(*model.AnalysisJob)) error {
	return o.jobs.Update(jobID, func(job *model.AnalysisJob) error {
		if !job.Status.CanTransition(next) {
			return fmt.Errorf("illegal transition %s -> %s", job.Status, next)
		}
		job.Status = next
		if mutate != nil {
			mutate(job)
		}
		return nil
	})
}

func (o *Orchestrator) progress(jobID string, pct int, step string) {
	err := o.jobs.Update(jobID, func(job *model.AnalysisJob) error {
		if job.Status.Terminal() {
			return fmt.Errorf("job already terminal")
		}
		if pct > job.Progress {
			job.Progress = pct
		}
		job.CurrentStep = step
		return nil
	})
	if err != nil {
		return
	}
	o.bus.Publish(model.ProgressEvent{
		JobID:       jobID,
		Status:      model.StatusProcessing,
		Progress:    pct,
		CurrentStep: step,
	})
}

func (o *Orchestrator) cacheGet(ctx context.Context, fingerprint string) *model.MergedResult {
	result, ok, err := o.cache.Get(ctx, fingerprint)
	if err != nil {
		// cache trouble degrades to a miss, never a failure
		o.log.Warn("cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return result
}

// estimateSeconds gives the caller a rough wall-clock expectation,
// scaled by source size and engine mode.
func estimateSeconds(sourceLen int, mode model.EngineMode) int {
	est := 5 + sourceLen/2000
	switch mode {
	case model.EngineExternal:
		est += 15
	case model.EngineMulti:
		est += 10
	}
	return est
}
