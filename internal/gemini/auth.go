package gemini

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
)

// ensureAuthenticated blocks until the chat interface is usable or the
// authentication sub-deadline passes. The sub-deadline is the overall
// request budget capped independently, so a ten minute research budget
// never turns into a ten minute silent wait on a login screen.
func (s *Sequencer) ensureAuthenticated(ctx context.Context, page browser.Page, budget time.Duration) error {
	deadline := budget
	if deadline > s.cfg.AuthDeadlineCap {
		deadline = s.cfg.AuthDeadlineCap
	}
	authCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	prompted := false
	ticker := time.NewTicker(s.cfg.AuthPollInterval)
	defer ticker.Stop()

	for {
		n, err := page.Count(authCtx, chatInterfaceProbe)
		if err == nil && n > 0 {
			s.logger.Info("Authentication verified, chat interface available")
			return nil
		}

		if !prompted {
			s.logger.Info("Waiting for login to complete in the browser window")
			prompted = true
		}
		if url, uerr := page.CurrentURL(authCtx); uerr == nil {
			if strings.Contains(url, "accounts.google.com") || strings.Contains(url, "signin") {
				s.logger.Info("Sign-in page detected, waiting for authentication", zap.String("url", url))
			}
		}

		select {
		case <-authCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return schemas.NewAuthenticationError(
				"chat interface not found after waiting for login", authCtx.Err())
		case <-ticker.C:
		}
	}
}
