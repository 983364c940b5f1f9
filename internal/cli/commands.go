package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/1cbyc/view0x-sub000/internal/cache"
	"github.com/1cbyc/view0x-sub000/internal/config"
	"github.com/1cbyc/view0x-sub000/internal/engine"
	"github.com/1cbyc/view0x-sub000/internal/logger"
	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/orchestrator"
	"github.com/1cbyc/view0x-sub000/internal/report"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
	"github.com/1cbyc/view0x-sub000/internal/tui"
)

func AddCommands(root *cobra.Command) {
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newInitCmd())
}

func newAnalyzeCmd() *cobra.Command {
	var (
		engineMode string
		format     string
		outputFile string
		timeoutSec int
		useTUI     bool
		noCache    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <contract.sol>",
		Short: "Analyze a Solidity contract for vulnerabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, _, err := config.Load(".")
			if err != nil {
				return err
			}
			log := logger.New(cfg, "analyzer")

			var store cache.Store
			if noCache {
				store = cache.NewMemory()
			} else {
				dir := cfg.CacheDir
				if dir == "" {
					if dir, err = cache.DefaultDir(); err != nil {
						return err
					}
				}
				if store, err = cache.NewFile(dir); err != nil {
					log.Warn("file cache unavailable, falling back to memory", "error", err)
					store = cache.NewMemory()
				}
			}

			var external engine.ContractAnalyzer
			if cfg.ExternalEngine.URL != "" {
				external = engine.NewExternal(engine.ExternalConfig{
					URL:          cfg.ExternalEngine.URL,
					Timeout:      time.Duration(cfg.ExternalEngine.TimeoutSeconds) * time.Second,
					PollInterval: time.Duration(cfg.ExternalEngine.PollIntervalMs) * time.Millisecond,
				}, log.Named("external"))
			}

			orc := orchestrator.New(orchestrator.Params{
				Config:    cfg,
				Local:     engine.New(solidity.NewSolcParser(cfg.SolcPath), log.Named("engine")),
				Heuristic: engine.NewHeuristic(),
				External:  external,
				Cache:     store,
				Log:       log.Named("orchestrator"),
			})
			defer orc.Close()

			receipt, err := orc.Submit(cmd.Context(), model.SubmitRequest{
				SourceCode: string(source),
				Options: model.Options{
					Engine:         model.EngineMode(engineMode),
					TimeoutSeconds: timeoutSec,
				},
			})
			if err != nil {
				return err
			}

			events, cancel := orc.Subscribe(receipt.JobID)
			defer cancel()

			if useTUI {
				if err := tui.Run(events); err != nil {
					return err
				}
			} else {
				for ev := range events {
					if ev.Status.Terminal() {
						break
					}
					log.Info("progress", "jobId", ev.JobID, "progress", ev.Progress, "step", ev.CurrentStep)
				}
			}

			job, err := orc.Job(receipt.JobID)
			if err != nil {
				return err
			}
			if job.Status == model.StatusFailed {
				return fmt.Errorf("analysis failed: %s", job.ErrorMessage)
			}
			return render(cmd, job, format, outputFile, args[0])
		},
	}
	cmd.Flags().StringVarP(&engineMode, "engine", "e", "local", "Engine mode: local|external|multi")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table|json|sarif")
	cmd.Flags().StringVarP(&outputFile, "out", "o", "", "Write report to file instead of stdout")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Per-job timeout in seconds (0 = none)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Render interactive progress")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the persistent result cache")
	return cmd
}

func render(cmd *cobra.Command, job model.AnalysisJob, format, outputFile, sourcePath string) error {
	var data []byte
	var err error
	switch format {
	case "json":
		data, err = json.MarshalIndent(job, "", "  ")
	case "sarif":
		data, err = report.ToSARIF(job.Result, sourcePath)
	default:
		out := cmd.OutOrStdout()
		res := job.Result
		fmt.Fprintf(out, "Vulnerabilities: %d (cacheHit=%v)\n", res.Statistics.TotalVulnerabilities, job.CacheHit)
		for _, f := range res.Vulnerabilities {
			fmt.Fprintf(out, "- %s [%s] line %d: %s (conf=%.2f)\n", f.Kind, f.Severity, f.Line, f.Message, f.Confidence)
		}
		if len(res.Warnings) > 0 {
			fmt.Fprintf(out, "Warnings: %d\n", len(res.Warnings))
			for _, f := range res.Warnings {
				fmt.Fprintf(out, "- %s [%s] line %d: %s\n", f.Kind, f.Severity, f.Line, f.Message)
			}
		}
		return nil
	}
	if err != nil {
		return err
	}
	if outputFile != "" {
		return os.WriteFile(outputFile, data, 0o644)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
