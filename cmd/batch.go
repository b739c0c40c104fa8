package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/batch"
	"github.com/playpi/playpi/internal/browser"
	"github.com/playpi/playpi/internal/gemini"
	"github.com/playpi/playpi/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// batchJob is one entry of the JSON manifest.
type batchJob struct {
	Prompt         string `json:"prompt"`
	Mode           string `json:"mode"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Output         string `json:"output"`
	DownloadDir    string `json:"download_dir"`
}

func newBatchCmd() *cobra.Command {
	var manifestPath string

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Run multiple requests concurrently from a JSON manifest",
		Long: `Run multiple requests concurrently, each in its own browser tab, capped
by provider.max_concurrent. The manifest is a JSON array (or single object)
of jobs read from stdin or --file:

  [{"prompt": "impact of rising sea levels", "mode": "deep-research",
    "timeout_seconds": 600, "output": "levels.md"}]

Jobs default to deep-research mode. Items fail independently; results print
in manifest order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := readManifest(cmd, manifestPath)
			if err != nil {
				return err
			}
			reqs, err := jobsToRequests(jobs)
			if err != nil {
				return err
			}
			return runBatch(cmd, reqs)
		},
	}

	batchCmd.Flags().StringVarP(&manifestPath, "file", "f", "", "manifest file (defaults to stdin)")
	return batchCmd
}

func readManifest(cmd *cobra.Command, path string) ([]batchJob, error) {
	var raw []byte
	var err error
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("empty batch manifest")
	}

	var jobs []batchJob
	if err := json.Unmarshal(raw, &jobs); err != nil {
		// A single object is accepted as a one-item batch.
		var single batchJob
		if serr := json.Unmarshal(raw, &single); serr != nil {
			return nil, fmt.Errorf("manifest is not valid JSON: %w", err)
		}
		jobs = []batchJob{single}
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("batch manifest holds no jobs")
	}
	return jobs, nil
}

func jobsToRequests(jobs []batchJob) ([]schemas.Request, error) {
	reqs := make([]schemas.Request, 0, len(jobs))
	for i, job := range jobs {
		modeName := job.Mode
		if modeName == "" {
			modeName = string(schemas.ModeDeepResearch)
		}
		mode, err := schemas.ParseMode(modeName)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		req := schemas.Request{
			ID:          uuid.New().String(),
			Prompt:      job.Prompt,
			Mode:        mode,
			Timeout:     time.Duration(job.TimeoutSeconds) * time.Second,
			OutputPath:  job.Output,
			DownloadDir: job.DownloadDir,
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func runBatch(cmd *cobra.Command, reqs []schemas.Request) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	mgr := browser.NewManager(cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := mgr.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown incomplete", zap.Error(err))
		}
	}()

	seq := gemini.NewSequencer(cfg, logger)
	coord := batch.NewCoordinator(mgr, seq, cfg.Provider.MaxConcurrent, logger)
	outcomes := coord.Run(ctx, reqs)

	failures := 0
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			failures++
			logger.Error("Batch item failed",
				zap.Int("item", i+1),
				zap.String("request_id", outcome.Request.ID),
				zap.Error(outcome.Err))
			continue
		}
		out := outcome.Result.Markdown()
		if outcome.Result.ImagePath != "" {
			out = outcome.Result.ImagePath
		}
		if outcome.Request.OutputPath != "" {
			if err := writeResult(cmd, outcome.Request.OutputPath, out); err != nil {
				failures++
				logger.Error("Batch item result write failed", zap.Int("item", i+1), zap.Error(err))
			}
			continue
		}
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "\n---")
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d batch items failed", failures, len(outcomes))
	}
	return nil
}
