package gemini

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
)

// resolve walks a target's candidate chain, waiting up to perCandidate for
// each locator to turn visible. The first hit wins; exhaustion is a
// NotFound failure for the logical target, not for any single locator.
// Results are never cached: the host UI replaces DOM subtrees on every
// generation cycle, so a handle from a previous step may already be stale.
func resolve(ctx context.Context, page browser.Page, target Target, perCandidate time.Duration, logger *zap.Logger) (schemas.Locator, error) {
	for _, cand := range target.Candidates {
		if err := ctx.Err(); err != nil {
			return schemas.Locator{}, err
		}
		if err := page.WaitVisible(ctx, cand, perCandidate); err != nil {
			logger.Debug("Locator candidate missed",
				zap.String("target", target.Name),
				zap.String("locator", cand.Value))
			continue
		}
		logger.Debug("Locator candidate resolved",
			zap.String("target", target.Name),
			zap.String("locator", cand.Value))
		return cand, nil
	}
	return schemas.Locator{}, schemas.NewNotFoundError(target.Name)
}
