package engine

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

// MergeConfig carries the deduplication heuristics. The defaults are
// tuned constants, not laws: widening the window merges more
// aggressively, narrowing it splits more.
type MergeConfig struct {
	// WindowLines buckets findings of the same kind into line windows;
	// findings in the same bucket are treated as one issue.
	WindowLines int
	// BaseConfidence is assumed for findings that carry none.
	BaseConfidence float64
	// Step is added per additional engine agreeing on an issue.
	Step float64
	// Cap bounds confidence below certainty.
	Cap float64
}

func DefaultMergeConfig() MergeConfig {
	return MergeConfig{WindowLines: 5, BaseConfidence: 0.7, Step: 0.1, Cap: 0.95}
}

// Merge combines finding sets from engines that analyzed the same
// contract: concatenate, deduplicate by (kind, line window), boost
// confidence on agreement, sort by severity then confidence, and
// compute aggregate statistics. Merging is symmetric and idempotent up
// to confidence values.
func Merge(results []model.EngineResult, cfg MergeConfig) model.MergedResult {
	if cfg.WindowLines <= 0 {
		cfg = DefaultMergeConfig()
	}

	var engines []string
	seenEngine := map[string]struct{}{}
	var vulns, warns []model.Finding
	for _, r := range results {
		if r.Engine != "" {
			if _, ok := seenEngine[r.Engine]; !ok {
				seenEngine[r.Engine] = struct{}{}
				engines = append(engines, r.Engine)
			}
		}
		vulns = append(vulns, r.Vulnerabilities...)
		warns = append(warns, r.Warnings...)
	}

	merged := model.MergedResult{
		Vulnerabilities: dedupe(vulns, cfg),
		Warnings:        dedupe(warns, cfg),
		Engines:         engines,
		Timestamp:       time.Now().UTC(),
	}

	stats := model.Statistics{BySeverity: map[model.Severity]int{}}
	for _, f := range merged.Vulnerabilities {
		stats.TotalVulnerabilities++
		stats.BySeverity[f.Severity]++
	}
	merged.Statistics = stats
	return merged
}

func dedupe(findings []model.Finding, cfg MergeConfig) []model.Finding {
	var out []model.Finding
	index := map[string]int{}
	for _, f := range findings {
		key := dedupKey(f, cfg.WindowLines)
		if i, ok := index[key]; ok {
			// first-seen wins; agreement raises confidence, never to 1
			c := out[i].Confidence
			if c == 0 {
				c = cfg.BaseConfidence
			}
			c += cfg.Step
			if c > cfg.Cap {
				c = cfg.Cap
			}
			out[i].Confidence = c
			continue
		}
		if f.Confidence == 0 {
			f.Confidence = cfg.BaseConfidence
		}
		index[key] = len(out)
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() < out[j].Severity.Rank()
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func dedupKey(f model.Finding, window int) string {
	return strings.ToLower(strings.TrimSpace(f.Kind)) + ":" + strconv.Itoa(f.Line/window)
}
