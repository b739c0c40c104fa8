package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/mocks"
)

func newTestExtractor(page *mocks.MockPage) *Extractor {
	e := New(page, testOrigin, zap.NewNop())
	e.settle = time.Millisecond
	return e
}

func TestAnswerFromFirstMatchingCandidate(t *testing.T) {
	page := new(mocks.MockPage)
	// No thinking panel, no sources toggle.
	page.On("Count", mock.Anything, thoughtsToggle).Return(0, nil)
	page.On("Count", mock.Anything, sourcesToggle).Return(0, nil)
	// First candidate matches immediately.
	page.On("WaitVisible", mock.Anything, answerCandidates[0], mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, answerCandidates[0]).
		Return(`<p>The answer is <strong>42</strong>.</p>`, nil)

	res, err := newTestExtractor(page).Answer(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "The answer is **42**.")
	assert.Empty(t, res.Reasoning)
	assert.Empty(t, res.Sources)
	page.AssertExpectations(t)
}

func TestAnswerWalksCandidateChain(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("Count", mock.Anything, thoughtsToggle).Return(0, nil)
	page.On("Count", mock.Anything, sourcesToggle).Return(0, nil)
	page.On("WaitVisible", mock.Anything, answerCandidates[0], mock.Anything).
		Return(schemas.NewNotFoundError("candidate"))
	page.On("WaitVisible", mock.Anything, answerCandidates[1], mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, answerCandidates[1]).Return(`<p>fallback hit</p>`, nil)

	res, err := newTestExtractor(page).Answer(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "fallback hit")
}

func TestAnswerIncludesThinkingAndSources(t *testing.T) {
	page := new(mocks.MockPage)

	// Collapsed thinking panel gets expanded before reading.
	page.On("Count", mock.Anything, thoughtsToggle).Return(1, nil)
	page.On("Text", mock.Anything, thoughtsToggle).Return("Show thinking", nil)
	page.On("Click", mock.Anything, thoughtsToggle).Return(nil)
	page.On("WaitVisible", mock.Anything, thoughtsContent, mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, thoughtsContent).Return(`<p>step one</p>`, nil)

	// One source card in the sidebar.
	page.On("Count", mock.Anything, sourcesToggle).Return(1, nil)
	page.On("Click", mock.Anything, sourcesToggle).Return(nil)
	page.On("WaitVisible", mock.Anything, sourcesSidebar, mock.Anything).Return(nil)
	page.On("Count", mock.Anything, schemas.XPath(`//context-sidebar//inline-source-card`)).Return(1, nil)
	card := `(//context-sidebar//inline-source-card)[1]`
	page.On("Text", mock.Anything, schemas.XPath(card+`//*[contains(@class,"title")]`)).Return(" Paper ", nil)
	page.On("AttrValue", mock.Anything, schemas.XPath(card+`//a`), "href").
		Return("/cite/1#photo-2", true, nil)
	page.On("Text", mock.Anything, schemas.XPath(card+`//*[contains(@class,"snippet")]`)).Return("summary", nil)

	page.On("WaitVisible", mock.Anything, answerCandidates[0], mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, answerCandidates[0]).Return(`<p>answer body</p>`, nil)

	res, err := newTestExtractor(page).Answer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "step one", res.Reasoning)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "Paper", res.Sources[0].Title)
	assert.Equal(t, "https://gemini.google.com/cite/1", res.Sources[0].URL)
	assert.Equal(t, "summary", res.Sources[0].Snippet)
}

func TestAnswerExpandedThinkingIsNotClicked(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("Count", mock.Anything, thoughtsToggle).Return(1, nil)
	page.On("Text", mock.Anything, thoughtsToggle).Return("Hide thinking", nil)
	page.On("WaitVisible", mock.Anything, thoughtsContent, mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, thoughtsContent).Return(`<p>already open</p>`, nil)
	page.On("Count", mock.Anything, sourcesToggle).Return(0, nil)
	page.On("WaitVisible", mock.Anything, answerCandidates[0], mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, answerCandidates[0]).Return(`<p>body</p>`, nil)

	res, err := newTestExtractor(page).Answer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "already open", res.Reasoning)
	page.AssertNotCalled(t, "Click", mock.Anything, thoughtsToggle)
}

func TestAnswerDegradedBodyTextFallback(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("Count", mock.Anything, thoughtsToggle).Return(0, nil)
	page.On("Count", mock.Anything, sourcesToggle).Return(0, nil)
	for _, cand := range answerCandidates {
		page.On("WaitVisible", mock.Anything, cand, mock.Anything).
			Return(schemas.NewNotFoundError("candidate"))
	}

	long := strings.Repeat("This sentence is certainly longer than fifty characters in total. ", 3)
	body := strings.Join([]string{
		"Gemini", "Chat", "Apps",
		long,
		"and a shorter continuation line that still counts",
		"http://tracking.example.com/pixel",
	}, "\n") + strings.Repeat("x", 600)
	page.On("BodyText", mock.Anything).Return(body, nil)

	res, err := newTestExtractor(page).Answer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.ConfidenceDegraded, res.Confidence)
	assert.Contains(t, res.Answer, "This sentence is certainly longer")
	assert.Contains(t, res.Answer, "shorter continuation line")
	assert.NotContains(t, res.Answer, "tracking.example.com")
	assert.NotContains(t, res.Answer, "Gemini")
}

func TestAnswerFailsWhenNothingFound(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("Count", mock.Anything, thoughtsToggle).Return(0, nil)
	page.On("Count", mock.Anything, sourcesToggle).Return(0, nil)
	for _, cand := range answerCandidates {
		page.On("WaitVisible", mock.Anything, cand, mock.Anything).
			Return(schemas.NewNotFoundError("candidate"))
	}
	page.On("BodyText", mock.Anything).Return("too short", nil)

	_, err := newTestExtractor(page).Answer(context.Background())
	require.Error(t, err)
	var perr *schemas.ProviderError
	assert.ErrorAs(t, err, &perr)
}

func TestReportPrefersScrollContainer(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("Count", mock.Anything, thoughtsToggle).Return(0, nil)
	page.On("WaitVisible", mock.Anything, reportCandidates[0], mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, reportCandidates[0]).
		Return(`<h1>Report</h1><p>Findings.</p>`, nil)

	res, err := newTestExtractor(page).Report(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "# Report")
	assert.Contains(t, res.Answer, "Findings.")
	assert.NotEqual(t, schemas.ConfidenceDegraded, res.Confidence)
}

func TestReportFallsBackToFullPage(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("Count", mock.Anything, thoughtsToggle).Return(0, nil)
	for _, cand := range reportCandidates {
		page.On("WaitVisible", mock.Anything, cand, mock.Anything).
			Return(schemas.NewNotFoundError("candidate"))
	}
	page.On("PageHTML", mock.Anything).
		Return(`<html><body><p>whole page content</p></body></html>`, nil)

	res, err := newTestExtractor(page).Report(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "whole page content")
	assert.Equal(t, schemas.ConfidenceDegraded, res.Confidence)
}
