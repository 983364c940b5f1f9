package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type LoggerConfig struct {
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"jsonFormat"`
}

type ExternalEngineConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	PollIntervalMs int    `yaml:"pollIntervalMs"`
	RetryAttempts  int    `yaml:"retryAttempts"`
	RetryBackoffMs int    `yaml:"retryBackoffMs"`
}

type MergeSettings struct {
	WindowLines    int     `yaml:"windowLines"`
	BaseConfidence float64 `yaml:"baseConfidence"`
	ConfidenceStep float64 `yaml:"confidenceStep"`
	ConfidenceCap  float64 `yaml:"confidenceCap"`
}

type Config struct {
	Logger                LoggerConfig         `yaml:"logger"`
	MaxConcurrentAnalyses int                  `yaml:"maxConcurrentAnalyses"`
	QueueDepth            int                  `yaml:"queueDepth"`
	CacheTTLSeconds       int                  `yaml:"cacheTtlSeconds"`
	CacheDir              string               `yaml:"cacheDir"`
	SolcPath              string               `yaml:"solcPath"`
	SeverityThreshold     string               `yaml:"severityThreshold"`
	Merge                 MergeSettings        `yaml:"merge"`
	ExternalEngine        ExternalEngineConfig `yaml:"externalEngine"`
}

func Default() Config {
	return Config{
		Logger:                LoggerConfig{Level: "info"},
		MaxConcurrentAnalyses: 4,
		QueueDepth:            64,
		CacheTTLSeconds:       3600,
		SeverityThreshold:     "info",
		Merge: MergeSettings{
			WindowLines:    5,
			BaseConfidence: 0.7,
			ConfidenceStep: 0.1,
			ConfidenceCap:  0.95,
		},
		ExternalEngine: ExternalEngineConfig{
			TimeoutSeconds: 300,
			PollIntervalMs: 2000,
			RetryAttempts:  3,
			RetryBackoffMs: 500,
		},
	}
}

const fileName = ".analyzer.yaml"

// Load searches upward from startDir for .analyzer.yaml and overlays
// it on the defaults. Returns the effective config and the path used,
// if any.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir := startDir
	for {
		candidate := filepath.Join(dir, fileName)
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, err
			}
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, candidate, err
			}
			return cfg, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// Write persists cfg as YAML at path.
func Write(path string, cfg Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
