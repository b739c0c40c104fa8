package gemini

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/mocks"
)

// Locators owned by the extractor, reconstructed here to wire up the mock.
var (
	testThoughtsToggle = schemas.CSS(`[data-test-id="thoughts-header-button"]`)
	testSourcesToggle  = schemas.ByText("button", "Sources")
	testAnswerLocator  = schemas.XPath(`(//message-content[contains(@class,"model-response-text")])[last()]`)
)

func stubAuthenticated(page *mocks.MockPage) {
	page.On("Navigate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	page.On("Count", mock.Anything, chatInterfaceProbe).Return(1, nil)
}

func stubPromptEntry(page *mocks.MockPage, prompt string) {
	box := promptBox.Candidates[0]
	page.On("WaitVisible", mock.Anything, box, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, box).Return(nil)
	page.On("Fill", mock.Anything, box, prompt).Return(nil)
}

func stubSubmit(page *mocks.MockPage) {
	send := sendButton.Candidates[0]
	page.On("WaitVisible", mock.Anything, send, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, send).Return(nil)
}

func stubEmptyPanels(page *mocks.MockPage) {
	page.On("Count", mock.Anything, testThoughtsToggle).Return(0, nil)
	page.On("Count", mock.Anything, testSourcesToggle).Return(0, nil)
}

// A single-character prompt against a page whose indicator is already
// visible and whose answer is pre-rendered must return immediately with the
// converted heading.
func TestRunImmediateCompletion(t *testing.T) {
	page := new(mocks.MockPage)
	stubAuthenticated(page)
	stubPromptEntry(page, "A")
	stubSubmit(page)
	page.On("IsVisible", mock.Anything, askIndicators[0]).Return(true, nil)
	stubEmptyPanels(page)
	page.On("WaitVisible", mock.Anything, testAnswerLocator, mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, testAnswerLocator).Return("<h1>Hi</h1>", nil)

	s := testSequencer(fastProviderConfig())
	start := time.Now()
	res, err := s.Run(context.Background(), page, schemas.Request{Prompt: "A", Mode: schemas.ModeNone, Timeout: time.Minute})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Answer, "# Hi"), "got %q", res.Answer)
	assert.Equal(t, schemas.ConfidenceIndicator, res.Confidence)
	assert.Less(t, elapsed, time.Second)
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	page := new(mocks.MockPage)
	s := testSequencer(fastProviderConfig())
	_, err := s.Run(context.Background(), page, schemas.Request{Mode: schemas.ModeNone, Timeout: time.Minute})
	assert.ErrorIs(t, err, schemas.ErrNoPrompt)
	page.AssertNotCalled(t, "Navigate", mock.Anything, mock.Anything, mock.Anything)
}

// Ask mode keeps going after a completion timeout: extraction still runs and
// the result is marked degraded.
func TestRunLenientTimeoutStillExtracts(t *testing.T) {
	page := new(mocks.MockPage)
	stubAuthenticated(page)
	stubPromptEntry(page, "question")
	stubSubmit(page)
	page.On("IsVisible", mock.Anything, mock.Anything).Return(false, nil)
	page.On("Text", mock.Anything, schemas.XPath(`(//message-content)[last()]`)).Return("short", nil)
	stubEmptyPanels(page)
	page.On("WaitVisible", mock.Anything, testAnswerLocator, mock.Anything).Return(nil)
	page.On("InnerHTML", mock.Anything, testAnswerLocator).Return("<p>partial but present</p>", nil)

	s := testSequencer(fastProviderConfig())
	res, err := s.Run(context.Background(), page, schemas.Request{Prompt: "question", Mode: schemas.ModeNone, Timeout: 50 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, schemas.ConfidenceDegraded, res.Confidence)
	assert.Contains(t, res.Answer, "partial but present")
}

// Deep research hard-fails on completion timeout instead of extracting.
func TestRunDeepResearchTimeoutFails(t *testing.T) {
	page := new(mocks.MockPage)
	stubAuthenticated(page)
	stubPromptEntry(page, "research this")
	stubSubmit(page)

	tools := toolsMenu.Candidates[0]
	page.On("WaitVisible", mock.Anything, tools, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, tools).Return(nil)
	toggle := schemas.ByText("button", "Deep Research")
	page.On("WaitVisible", mock.Anything, toggle, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, toggle).Return(nil)
	page.On("Count", mock.Anything, schemas.CSS(`button[aria-label*="Deselect Deep Research"]`)).Return(1, nil)

	// Confirmation dialog never shows up; that is fine.
	page.On("WaitVisible", mock.Anything, confirmWidget, mock.Anything).
		Return(schemas.NewNotFoundError("confirmation widget"))

	page.On("IsVisible", mock.Anything, mock.Anything).Return(false, nil)
	page.On("InnerHTML", mock.Anything, mock.Anything).Return("", nil)

	s := testSequencer(fastProviderConfig())
	_, err := s.Run(context.Background(), page, schemas.Request{Prompt: "research this", Mode: schemas.ModeDeepResearch, Timeout: 60 * time.Millisecond})

	var terr *schemas.TimeoutError
	require.ErrorAs(t, err, &terr)
}

// Image generation toggles the tool before typing: toggling afterwards would
// rebuild the composer and wipe the prompt.
func TestRunImageModeActivatesBeforePrompt(t *testing.T) {
	page := new(mocks.MockPage)
	var order []string

	stubAuthenticated(page)

	tools := toolsMenu.Candidates[0]
	page.On("WaitVisible", mock.Anything, tools, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, tools).
		Run(func(mock.Arguments) { order = append(order, "activate") }).Return(nil)
	toggle := schemas.ByText("button", "Create images")
	page.On("WaitVisible", mock.Anything, toggle, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, toggle).Return(nil)

	box := promptBox.Candidates[0]
	page.On("WaitVisible", mock.Anything, box, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, box).Return(nil)
	page.On("Fill", mock.Anything, box, "a red fox").
		Run(func(mock.Arguments) { order = append(order, "fill") }).Return(nil)

	stubSubmit(page)

	// Completion indicator for image mode is the download button; let the
	// wait time out so the run fails before touching the filesystem.
	page.On("IsVisible", mock.Anything, downloadImageButton).Return(false, nil)

	s := testSequencer(fastProviderConfig())
	_, err := s.Run(context.Background(), page, schemas.Request{Prompt: "a red fox", Mode: schemas.ModeImageGeneration, Timeout: 50 * time.Millisecond})

	require.Error(t, err)
	require.Equal(t, []string{"activate", "fill"}, order)
}

func TestOriginFromBaseURL(t *testing.T) {
	cfg := fastProviderConfig()
	cfg.BaseURL = "https://gemini.google.com/u/0/app"
	s := testSequencer(cfg)
	assert.Equal(t, "https://gemini.google.com", s.origin())
}
