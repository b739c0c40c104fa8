package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
)

// chromePage adapts one chromedp tab context to the Page interface.
type chromePage struct {
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	onClose   func()
	closeOnce sync.Once
}

var _ Page = (*chromePage)(nil)

// queryOption maps a locator kind onto the matching chromedp query strategy.
func queryOption(loc schemas.Locator) chromedp.QueryOption {
	if loc.Kind == schemas.LocatorXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	// Respect both the tab lifetime and the caller's deadline.
	runCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.logger.Debug("Navigating tab.", zap.String("url", url))
	if err := p.run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, timeout, navCtx.Err())
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitVisible(ctx context.Context, loc schemas.Locator, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.run(waitCtx, chromedp.WaitVisible(loc.Value, queryOption(loc))); err != nil {
		return fmt.Errorf("wait for %s %q: %w", loc.Kind, loc.Value, err)
	}
	return nil
}

func (p *chromePage) IsVisible(ctx context.Context, loc schemas.Locator) (bool, error) {
	var visible bool
	expr := fmt.Sprintf(`(() => {
		const els = %s;
		for (const el of els) {
			const r = el.getBoundingClientRect();
			if (r.width > 0 && r.height > 0 && getComputedStyle(el).visibility !== 'hidden') {
				return true;
			}
		}
		return false;
	})()`, jsMatches(loc))
	if err := p.run(ctx, chromedp.Evaluate(expr, &visible)); err != nil {
		return false, fmt.Errorf("visibility probe for %q: %w", loc.Value, err)
	}
	return visible, nil
}

func (p *chromePage) Count(ctx context.Context, loc schemas.Locator) (int, error) {
	var n int
	expr := fmt.Sprintf(`%s.length`, jsMatches(loc))
	if err := p.run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, fmt.Errorf("count for %q: %w", loc.Value, err)
	}
	return n, nil
}

func (p *chromePage) Click(ctx context.Context, loc schemas.Locator) error {
	if err := p.run(ctx, chromedp.Click(loc.Value, queryOption(loc))); err != nil {
		return fmt.Errorf("click %s %q: %w", loc.Kind, loc.Value, err)
	}
	return nil
}

func (p *chromePage) Fill(ctx context.Context, loc schemas.Locator, text string) error {
	// The prompt box is a contenteditable rich-text area, so a plain value
	// assignment is not enough; set the matching property and fire an input
	// event so the framework notices the change.
	expr := fmt.Sprintf(`(() => {
		const els = %s;
		if (els.length === 0) return false;
		const el = els[0];
		const text = %s;
		if (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA') {
			el.value = text;
		} else {
			el.innerText = text;
		}
		el.dispatchEvent(new InputEvent('input', {bubbles: true}));
		return true;
	})()`, jsMatches(loc), jsString(text))

	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return fmt.Errorf("fill %s %q: %w", loc.Kind, loc.Value, err)
	}
	if !ok {
		return fmt.Errorf("fill %s %q: no matching element", loc.Kind, loc.Value)
	}
	return nil
}

func (p *chromePage) Text(ctx context.Context, loc schemas.Locator) (string, error) {
	var s string
	if err := p.run(ctx, chromedp.Text(loc.Value, &s, queryOption(loc))); err != nil {
		return "", fmt.Errorf("text of %s %q: %w", loc.Kind, loc.Value, err)
	}
	return s, nil
}

func (p *chromePage) InnerHTML(ctx context.Context, loc schemas.Locator) (string, error) {
	var s string
	if err := p.run(ctx, chromedp.InnerHTML(loc.Value, &s, queryOption(loc))); err != nil {
		return "", fmt.Errorf("inner html of %s %q: %w", loc.Kind, loc.Value, err)
	}
	return s, nil
}

func (p *chromePage) AttrValue(ctx context.Context, loc schemas.Locator, attr string) (string, bool, error) {
	var value string
	var ok bool
	if err := p.run(ctx, chromedp.AttributeValue(loc.Value, attr, &value, &ok, queryOption(loc))); err != nil {
		return "", false, fmt.Errorf("attribute %q of %s %q: %w", attr, loc.Kind, loc.Value, err)
	}
	return value, ok, nil
}

func (p *chromePage) PageHTML(ctx context.Context) (string, error) {
	var s string
	if err := p.run(ctx, chromedp.OuterHTML("html", &s, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	return s, nil
}

func (p *chromePage) BodyText(ctx context.Context) (string, error) {
	var s string
	if err := p.run(ctx, chromedp.Text("body", &s, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("body text: %w", err)
	}
	return s, nil
}

func (p *chromePage) CurrentURL(ctx context.Context) (string, error) {
	var s string
	if err := p.run(ctx, chromedp.Location(&s)); err != nil {
		return "", fmt.Errorf("current url: %w", err)
	}
	return s, nil
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Debug("Closing tab.")
		p.cancel()
		if p.onClose != nil {
			p.onClose()
		}
	})
	return nil
}

// jsMatches compiles a locator into a JavaScript expression evaluating to an
// array of matching elements.
func jsMatches(loc schemas.Locator) string {
	if loc.Kind == schemas.LocatorXPath {
		return fmt.Sprintf(`(() => {
			const r = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			const out = [];
			for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
			return out;
		})()`, jsString(loc.Value))
	}
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s))`, jsString(loc.Value))
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	quoted := strconv.Quote(s)
	// strconv.Quote escapes to Go syntax, which is JS compatible except for
	// the rarely hit \x7f style of DEL; normalize it anyway.
	return strings.ReplaceAll(quoted, `\x`, `\u00`)
}

// combineContext derives a context cancelled when either parent is done.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
