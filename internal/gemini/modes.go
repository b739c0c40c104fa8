package gemini

import "github.com/playpi/playpi/api/schemas"

// extractKind picks the extraction strategy once completion fires.
type extractKind int

const (
	extractAnswer extractKind = iota
	extractReport
	extractImage
)

// descriptor parameterizes one request pipeline. The four modes share the
// same step sequence; only the entries below differ.
type descriptor struct {
	// labels are visible-text candidates for the tools menu entry, first
	// entry preferred. Empty means no menu interaction at all.
	labels []string

	// verifyLabel, when set, names the aria-label substring of the deselect
	// control that proves the toggle flipped. Verification is best effort.
	verifyLabel string

	// activateBeforePrompt orders mode activation ahead of prompt entry.
	// Image generation rebuilds the composer when toggled, which would wipe
	// an already-typed prompt.
	activateBeforePrompt bool

	// confirm enables the optional pre-flight confirmation dialog wait.
	confirm bool

	// indicators are the completion signals, raced every poll.
	indicators []schemas.Locator

	// deepPoll selects the slow poll cadence used by long-running modes;
	// ask mode polls fast.
	deepPoll bool

	// contentFallback enables the stability fallback racing the indicators.
	// Deep modes watch the report container length, ask mode the answer
	// bubble text. Image generation leaves it off: there is no textual
	// response to stabilize, only the download control to wait for.
	contentFallback bool

	// lenientTimeout lets a timed-out wait still attempt extraction instead
	// of failing the request outright.
	lenientTimeout bool

	kind extractKind
}

var deepIndicators = []schemas.Locator{
	schemas.CSS(`[data-test-id="export-menu-button"]`),
	schemas.ByText("button", "Export"),
	schemas.ByText("button", "Copy"),
	schemas.CSS(`[data-test-id="scroll-container"]`),
}

var askIndicators = []schemas.Locator{
	schemas.CSS(`button[data-testid="sources-button"]`),
	schemas.ByText("button", "Sources"),
	schemas.CSS(`.response-footer.complete`),
	schemas.CSS(`.message-actions button`),
	schemas.CSS(`[data-testid="copy-button"]`),
}

func descriptorFor(mode schemas.Mode) descriptor {
	switch mode {
	case schemas.ModeDeepResearch:
		return descriptor{
			labels:          []string{"Deep Research"},
			verifyLabel:     "Deselect Deep Research",
			confirm:         true,
			indicators:      deepIndicators,
			deepPoll:        true,
			contentFallback: true,
			kind:            extractReport,
		}
	case schemas.ModeDeepThink:
		return descriptor{
			labels:          []string{"Deep Think"},
			verifyLabel:     "Deselect Deep Think",
			indicators:      deepIndicators,
			deepPoll:        true,
			contentFallback: true,
			kind:            extractReport,
		}
	case schemas.ModeImageGeneration:
		return descriptor{
			labels:               []string{"Create images", "Create image"},
			activateBeforePrompt: true,
			indicators:           []schemas.Locator{downloadImageButton},
			deepPoll:             true,
			kind:                 extractImage,
		}
	default:
		return descriptor{
			indicators:      askIndicators,
			contentFallback: true,
			lenientTimeout:  true,
			kind:            extractAnswer,
		}
	}
}
