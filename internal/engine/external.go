package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

// External proxies analysis to an out-of-process engine. The remote
// protocol is submit-then-poll against a keyed result slot, but that is
// hidden behind a single AnalyzeContract await: the caller sees one
// bounded request/response, and the slot is deleted once consumed.
type External struct {
	id           string
	client       *resty.Client
	timeout      time.Duration
	pollInterval time.Duration
	log          hclog.Logger
}

type ExternalConfig struct {
	URL          string
	ID           string
	Timeout      time.Duration
	PollInterval time.Duration
}

func NewExternal(cfg ExternalConfig, log hclog.Logger) *External {
	if cfg.ID == "" {
		cfg.ID = "external"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("Content-Type", "application/json")
	return &External{
		id:           cfg.ID,
		client:       client,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		log:          log,
	}
}

func (e *External) ID() string { return e.id }

type externalRequest struct {
	JobID      string        `json:"jobId"`
	SourceCode string        `json:"sourceCode"`
	Options    model.Options `json:"options"`
}

type externalResponse struct {
	Result *model.EngineResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// AnalyzeContract submits the source and awaits the result within the
// configured timeout. A synchronous response is consumed directly;
// otherwise the keyed result slot is polled and deleted on success.
func (e *External) AnalyzeContract(ctx context.Context, sourceCode string) (model.EngineResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	jobID := uuid.NewString()
	var sync externalResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(externalRequest{JobID: jobID, SourceCode: sourceCode}).
		SetResult(&sync).
		Post("/analyze")
	if err != nil {
		return model.EngineResult{}, e.classify(ctx, err)
	}
	if resp.IsError() {
		return model.EngineResult{}, &model.ExternalEngineUnavailableError{
			Engine: e.id,
			Err:    fmt.Errorf("analyze returned status %d", resp.StatusCode()),
		}
	}
	if sync.Error != "" {
		return model.EngineResult{}, &model.ParseError{Detail: sync.Error}
	}
	if sync.Result != nil {
		return e.tag(*sync.Result), nil
	}
	return e.await(ctx, jobID)
}

// await polls the result slot until it materializes or the deadline
// passes, deleting the slot once the payload is consumed.
func (e *External) await(ctx context.Context, jobID string) (model.EngineResult, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return model.EngineResult{}, e.classify(ctx, ctx.Err())
		case <-ticker.C:
		}
		var payload externalResponse
		resp, err := e.client.R().
			SetContext(ctx).
			SetResult(&payload).
			Get("/results/" + jobID)
		if err != nil {
			return model.EngineResult{}, e.classify(ctx, err)
		}
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			continue // not ready yet
		case resp.IsError():
			return model.EngineResult{}, &model.ExternalEngineUnavailableError{
				Engine: e.id,
				Err:    fmt.Errorf("result poll returned status %d", resp.StatusCode()),
			}
		}
		if payload.Error != "" {
			return model.EngineResult{}, &model.ParseError{Detail: payload.Error}
		}
		if payload.Result == nil {
			continue
		}
		if _, err := e.client.R().SetContext(ctx).Delete("/results/" + jobID); err != nil {
			e.log.Warn("failed to delete consumed result slot", "jobId", jobID, "error", err)
		}
		return e.tag(*payload.Result), nil
	}
}

func (e *External) tag(r model.EngineResult) model.EngineResult {
	r.Engine = e.id
	for i := range r.Vulnerabilities {
		if r.Vulnerabilities[i].Source == "" {
			r.Vulnerabilities[i].Source = e.id
		}
	}
	for i := range r.Warnings {
		if r.Warnings[i].Source == "" {
			r.Warnings[i].Source = e.id
		}
	}
	return r
}

func (e *External) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &model.ExternalEngineTimeoutError{Engine: e.id, Timeout: e.timeout}
	}
	return &model.ExternalEngineUnavailableError{Engine: e.id, Err: err}
}
