package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

func sampleResult() *model.MergedResult {
	return &model.MergedResult{
		Vulnerabilities: []model.Finding{
			{Kind: "reentrancy", Severity: model.SeverityHigh, Line: 9, Confidence: 0.7},
		},
		Engines: []string{"local"},
		Statistics: model.Statistics{
			TotalVulnerabilities: 1,
			BySeverity:           map[model.Severity]int{model.SeverityHigh: 1},
		},
		Timestamp: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, hit, err := m.Get(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, m.Set(ctx, "fp", sampleResult(), time.Hour))
	got, hit, err := m.Get(ctx, "fp")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, sampleResult(), got)
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Now()
	m.now = func() time.Time { return base }

	require.NoError(t, m.Set(ctx, "fp", sampleResult(), time.Minute))

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, hit, err := m.Get(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, hit, "entries past their TTL read as misses")
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Now()
	m.now = func() time.Time { return base }

	require.NoError(t, m.Set(ctx, "fp", sampleResult(), 0))
	m.now = func() time.Time { return base.Add(24 * time.Hour) }
	_, hit, err := m.Get(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestFileRoundTrip(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, f.Set(ctx, "abc123", sampleResult(), time.Hour))
	got, hit, err := f.Get(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, sampleResult().Vulnerabilities, got.Vulnerabilities)
	assert.Equal(t, sampleResult().Statistics, got.Statistics)
}

func TestFileMissOnUnknownFingerprint(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	_, hit, err := f.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestFileExpiredEntryRemoved(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)
	ctx := context.Background()

	stale, err := json.Marshal(filePayload{
		ExpiresAt: time.Now().Add(-time.Minute),
		Result:    sampleResult(),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.json"), stale, 0o644))

	_, hit, err := f.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, hit)

	_, statErr := os.Stat(filepath.Join(dir, "abc123.json"))
	assert.True(t, os.IsNotExist(statErr), "expired entry is dropped from disk")
}

func TestFileCorruptEntryReadsAsMiss(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))
	_, hit, err := f.Get(context.Background(), "bad")
	require.NoError(t, err, "corruption degrades to a miss, never an error")
	assert.False(t, hit)
}
