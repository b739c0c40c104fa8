// Package browser supplies the scriptable page abstraction the interaction
// core drives. The core never assumes a specific automation engine: any
// driver satisfying the Page capability set is sufficient, and production
// wires the chromedp adapter in this package.
package browser

import (
	"context"
	"time"

	"github.com/playpi/playpi/api/schemas"
)

// Page is one controllable browser tab. Implementations must be safe for use
// by a single goroutine at a time; a tab is driven by at most one request run
// concurrently.
type Page interface {
	// Navigate loads the URL and blocks until the load event or the timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitVisible blocks until the locator matches a visible element or the
	// timeout elapses.
	WaitVisible(ctx context.Context, loc schemas.Locator, timeout time.Duration) error

	// IsVisible reports whether the locator currently matches a visible
	// element, without waiting.
	IsVisible(ctx context.Context, loc schemas.Locator) (bool, error)

	// Count returns the number of elements currently matching the locator.
	Count(ctx context.Context, loc schemas.Locator) (int, error)

	Click(ctx context.Context, loc schemas.Locator) error

	// Fill replaces the content of a text input verbatim. No truncation and
	// no escaping beyond what the input transport requires.
	Fill(ctx context.Context, loc schemas.Locator, text string) error

	// Text returns the rendered text content of the first match.
	Text(ctx context.Context, loc schemas.Locator) (string, error)

	// InnerHTML returns the inner markup of the first match.
	InnerHTML(ctx context.Context, loc schemas.Locator) (string, error)

	// AttrValue returns the attribute value of the first match, and whether
	// the attribute was present.
	AttrValue(ctx context.Context, loc schemas.Locator, attr string) (string, bool, error)

	// PageHTML returns the full serialized page markup.
	PageHTML(ctx context.Context) (string, error)

	// BodyText returns the visible text of the page body.
	BodyText(ctx context.Context) (string, error)

	CurrentURL(ctx context.Context) (string, error)

	// Close releases the tab. Safe to call more than once.
	Close() error
}
