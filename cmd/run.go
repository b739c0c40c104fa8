package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
	"github.com/playpi/playpi/internal/gemini"
	"github.com/playpi/playpi/internal/observability"
)

const shutdownGrace = 15 * time.Second

// runRequest executes one request end to end: browser up, one tab, one
// sequencer run, result to stdout or the output file. Logging goes to
// stderr so stdout stays pipeable.
func runRequest(cmd *cobra.Command, req schemas.Request) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	req.ID = uuid.New().String()
	if req.Profile == "" {
		req.Profile = cfg.Browser.Profile
	}

	// The request may name its own profile; the browser launches with that
	// one's cookies.
	mgr := browser.NewManager(cfg.WithProfile(req.Profile), logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := mgr.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown incomplete", zap.Error(err))
		}
	}()

	page, err := mgr.NewPage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("Tab close failed", zap.Error(cerr))
		}
	}()

	res, err := gemini.NewSequencer(cfg, logger).Run(ctx, page, req)
	if err != nil {
		return err
	}

	out := res.Markdown()
	if res.ImagePath != "" {
		out = res.ImagePath
	}
	return writeResult(cmd, req.OutputPath, out)
}

// buildPrompt merges an optional prompt file with the inline arguments. When
// both are present the file comes first, separated by a newline.
func buildPrompt(promptFile string, args []string) (string, error) {
	var parts []string
	if promptFile != "" {
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		if text := strings.TrimRight(string(data), "\n"); text != "" {
			parts = append(parts, text)
		}
	}
	if inline := strings.TrimSpace(strings.Join(args, " ")); inline != "" {
		parts = append(parts, inline)
	}
	if len(parts) == 0 {
		return "", schemas.ErrNoPrompt
	}
	return strings.Join(parts, "\n"), nil
}

// writeResult prints to stdout, or writes the file and prints its path.
func writeResult(cmd *cobra.Command, path, content string) error {
	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", path)
	return nil
}
