package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		ok       bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusCompleted, true},
		{StatusQueued, StatusFailed, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusQueued, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusQueued, false},
		{StatusQueued, StatusQueued, false},
		{StatusProcessing, StatusProcessing, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1].Rank(), order[i].Rank())
	}
}

func TestParseSeverityFallsBackToInfo(t *testing.T) {
	assert.Equal(t, SeverityHigh, ParseSeverity("high"))
	assert.Equal(t, SeverityCritical, ParseSeverity("critical"))
	assert.Equal(t, SeverityInfo, ParseSeverity("bogus"))
	assert.Equal(t, SeverityInfo, ParseSeverity(""))
}

func TestSeverityGTE(t *testing.T) {
	assert.True(t, SeverityGTE(SeverityCritical, SeverityHigh))
	assert.True(t, SeverityGTE(SeverityHigh, SeverityHigh))
	assert.False(t, SeverityGTE(SeverityLow, SeverityMedium))
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, Retryable(&ExternalEngineTimeoutError{Engine: "e"}))
	assert.True(t, Retryable(&ExternalEngineUnavailableError{Engine: "e", Err: errors.New("refused")}))
	assert.True(t, Retryable(fmt.Errorf("wrapped: %w",
		&ExternalEngineUnavailableError{Engine: "e", Err: errors.New("refused")})))

	assert.False(t, Retryable(&ParseError{Detail: "bad token"}))
	assert.False(t, Retryable(&NoContractFoundError{}))
	assert.False(t, Retryable(errors.New("anything else")))
	assert.False(t, Retryable(nil))
}

func TestDetectorErrorUnwraps(t *testing.T) {
	cause := errors.New("nil deref")
	err := &DetectorError{Detector: "reentrancy", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "reentrancy")
}
