// Package extract turns a finished chat page into a normalized result:
// reasoning panel, main answer, and the citation list, all converted to
// markdown. It only reads and expands; driving the conversation is the
// sequencer's job.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
)

const (
	candidateWait  = 3 * time.Second
	panelWait      = 5 * time.Second
	expandSettle   = 2 * time.Second
	minDegradedLen = 500
)

// answerCandidates is the ordered chain of containers holding the model's
// answer. Later entries are legacy fallbacks kept for older page revisions.
var answerCandidates = []schemas.Locator{
	schemas.XPath(`(//message-content[contains(@class,"model-response-text")])[last()]`),
	schemas.XPath(`(//message-content)[last()]`),
	schemas.XPath(`(//*[contains(@class,"model-response-text")])[last()]`),
	schemas.XPath(`(//*[contains(@class,"markdown-main-panel")])[last()]`),
}

// reportCandidates locates the long-form research report container.
var reportCandidates = []schemas.Locator{
	schemas.CSS(`[data-test-id="scroll-container"]`),
	schemas.CSS(`.research-content`),
	schemas.CSS(`.response-container`),
	schemas.CSS(`main [role="main"]`),
	schemas.CSS(`article`),
}

var (
	thoughtsToggle  = schemas.CSS(`[data-test-id="thoughts-header-button"]`)
	thoughtsContent = schemas.CSS(`[data-test-id="thoughts-content"]`)
	sourcesToggle   = schemas.ByText("button", "Sources")
	sourcesSidebar  = schemas.CSS(`context-sidebar`)
)

// uiStopwords are bare navigation labels a body-text fallback must discard.
var uiStopwords = map[string]struct{}{
	"Chat": {}, "Apps": {}, "More": {}, "Sources": {},
	"Gemini": {}, "Google": {}, "Bard": {},
}

// Extractor reads response content off a page. Origin is the scheme://host
// the page was served from, used to absolutize relative citation links.
type Extractor struct {
	page   browser.Page
	origin string
	logger *zap.Logger
	settle time.Duration
}

func New(page browser.Page, origin string, logger *zap.Logger) *Extractor {
	return &Extractor{
		page:   page,
		origin: origin,
		logger: logger.Named("extract"),
		settle: expandSettle,
	}
}

// Answer extracts the standard chat response: reasoning panel if one exists,
// the latest answer bubble, and the expanded source list. Failure to find
// any answer container falls through to the degraded body-text path; only
// when that also yields nothing is the extraction a hard failure.
func (e *Extractor) Answer(ctx context.Context) (*schemas.ExtractedResult, error) {
	res := &schemas.ExtractedResult{}

	res.Reasoning = e.thinking(ctx)
	res.Sources = e.sources(ctx)

	answer, err := e.fromCandidates(ctx, answerCandidates)
	if err == nil {
		res.Answer = answer
		return res, nil
	}
	e.logger.Warn("No answer container matched, using degraded body text", zap.Error(err))

	degraded, derr := e.degradedBodyText(ctx)
	if derr != nil {
		return nil, schemas.NewProviderError("extract", "no response content found by any method", err)
	}
	res.Answer = degraded
	res.Confidence = schemas.ConfidenceDegraded
	return res, nil
}

// Report extracts a long-form research document from its dedicated
// container chain. Research pages keep citations inline, so no sidebar
// pass happens here.
func (e *Extractor) Report(ctx context.Context) (*schemas.ExtractedResult, error) {
	res := &schemas.ExtractedResult{}
	res.Reasoning = e.thinking(ctx)

	body, err := e.fromCandidates(ctx, reportCandidates)
	if err != nil {
		e.logger.Warn("No report container matched, using full page body", zap.Error(err))
		html, herr := e.page.PageHTML(ctx)
		if herr != nil {
			return nil, schemas.NewProviderError("extract", "report container lookup failed", err)
		}
		body, herr = ToMarkdown(html)
		if herr != nil {
			return nil, schemas.NewProviderError("extract", "page markup conversion failed", herr)
		}
		res.Confidence = schemas.ConfidenceDegraded
	}
	res.Answer = body
	return res, nil
}

// fromCandidates walks the locator chain and converts the first visible
// match. The per-candidate wait is short: by extraction time the content is
// already rendered, the chain only absorbs UI revisions.
func (e *Extractor) fromCandidates(ctx context.Context, chain []schemas.Locator) (string, error) {
	for _, loc := range chain {
		if err := e.page.WaitVisible(ctx, loc, candidateWait); err != nil {
			e.logger.Debug("Candidate container not present", zap.String("locator", loc.Value))
			continue
		}
		html, err := e.page.InnerHTML(ctx, loc)
		if err != nil || strings.TrimSpace(html) == "" {
			continue
		}
		text, err := ToMarkdown(html)
		if err != nil {
			return "", err
		}
		e.logger.Debug("Extracted content", zap.String("locator", loc.Value), zap.Int("chars", len(text)))
		return text, nil
	}
	return "", schemas.NewNotFoundError("response container")
}

// thinking expands and reads the reasoning panel. Absence is normal: most
// answers carry no panel, so every failure here degrades to empty.
func (e *Extractor) thinking(ctx context.Context) string {
	n, err := e.page.Count(ctx, thoughtsToggle)
	if err != nil || n == 0 {
		return ""
	}
	label, err := e.page.Text(ctx, thoughtsToggle)
	if err == nil && strings.Contains(strings.ToLower(label), "show thinking") {
		if err := e.page.Click(ctx, thoughtsToggle); err != nil {
			e.logger.Debug("Thinking toggle click failed", zap.Error(err))
			return ""
		}
		sleepCtx(ctx, e.settle)
	}
	if err := e.page.WaitVisible(ctx, thoughtsContent, panelWait); err != nil {
		return ""
	}
	html, err := e.page.InnerHTML(ctx, thoughtsContent)
	if err != nil {
		return ""
	}
	text, err := ToMarkdown(html)
	if err != nil {
		return ""
	}
	return text
}

// sources expands the citation sidebar and parses its cards. Cards missing
// both a title and a link are dropped; surviving entries are de-duplicated
// by normalized URL in first-seen order.
func (e *Extractor) sources(ctx context.Context) []schemas.Source {
	n, err := e.page.Count(ctx, sourcesToggle)
	if err != nil || n == 0 {
		return nil
	}
	if err := e.page.Click(ctx, sourcesToggle); err != nil {
		e.logger.Debug("Sources toggle click failed", zap.Error(err))
		return nil
	}
	if err := e.page.WaitVisible(ctx, sourcesSidebar, panelWait); err != nil {
		e.logger.Debug("Sources sidebar did not appear")
		return nil
	}

	cards, err := e.page.Count(ctx, schemas.XPath(`//context-sidebar//inline-source-card`))
	if err != nil || cards == 0 {
		return nil
	}
	out := make([]schemas.Source, 0, cards)
	for i := 1; i <= cards; i++ {
		src, ok := e.sourceCard(ctx, i)
		if ok {
			out = append(out, src)
		}
	}
	e.logger.Debug("Parsed source cards", zap.Int("found", cards), zap.Int("kept", len(out)))
	return dedupeSources(out)
}

func (e *Extractor) sourceCard(ctx context.Context, idx int) (schemas.Source, bool) {
	card := fmt.Sprintf(`(//context-sidebar//inline-source-card)[%d]`, idx)

	title, _ := e.page.Text(ctx, schemas.XPath(card+`//*[contains(@class,"title")]`))
	href, _, _ := e.page.AttrValue(ctx, schemas.XPath(card+`//a`), "href")
	snippet, _ := e.page.Text(ctx, schemas.XPath(card+`//*[contains(@class,"snippet")]`))

	title = strings.TrimSpace(title)
	href = normalizeSourceURL(href, e.origin)
	if title == "" && href == "" {
		return schemas.Source{}, false
	}
	return schemas.Source{Title: title, URL: href, Snippet: strings.TrimSpace(snippet)}, true
}

// degradedBodyText salvages an answer from raw page text when no known
// container matches, filtering navigation labels and link noise.
func (e *Extractor) degradedBodyText(ctx context.Context) (string, error) {
	body, err := e.page.BodyText(ctx)
	if err != nil {
		return "", err
	}
	if len(body) < minDegradedLen {
		return "", schemas.NewNotFoundError("page body text")
	}

	var kept []string
	inResponse := false
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if _, stop := uiStopwords[line]; stop {
			continue
		}
		switch {
		case len(line) > 50 && !hasNoisePrefix(line):
			kept = append(kept, line)
			inResponse = true
		case inResponse && len(line) > 20:
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return "", schemas.NewNotFoundError("salvageable body text")
	}
	return strings.Join(kept, "\n\n"), nil
}

func hasNoisePrefix(line string) bool {
	for _, p := range []string{"http", "www", "@", "#"} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
