package gemini

import "github.com/playpi/playpi/api/schemas"

// Target is one logical UI element with its ordered locator candidates.
// Candidates run from most semantic (role + accessible name) to most fragile
// (deep CSS paths), because class names churn between UI builds while roles
// and labels tend to survive.
type Target struct {
	Name       string
	Candidates []schemas.Locator
}

var promptBox = Target{
	Name: "prompt input",
	Candidates: []schemas.Locator{
		schemas.ByRole("textbox", "Enter a prompt here"),
		schemas.CSS(`[role="textbox"]`),
		schemas.CSS(`.text-input-field_textarea .ql-editor`),
		schemas.CSS(`rich-textarea .ql-editor`),
	},
}

var sendButton = Target{
	Name: "send button",
	Candidates: []schemas.Locator{
		schemas.CSS(`.send-button-container button[data-test-id="send-button"]`),
		schemas.ByRole("button", "Send message"),
	},
}

var toolsMenu = Target{
	Name: "tools menu button",
	Candidates: []schemas.Locator{
		schemas.ByRole("button", "Tools"),
		schemas.CSS(`button[aria-label="Tools"]`),
	},
}

var confirmButton = Target{
	Name: "research confirmation button",
	Candidates: []schemas.Locator{
		schemas.CSS(`deep-research-confirmation-widget [data-test-id="confirm-button"]`),
		schemas.ByText("button", "Start research"),
		schemas.CSS(`deep-research-confirmation-widget button.confirm-button`),
	},
}

// confirmWidget is the container the confirmation button lives in. Its
// absence is a normal UI state, never an error.
var confirmWidget = schemas.CSS(`deep-research-confirmation-widget`)

// chatInterfaceProbe is the authentication oracle: the page counts as logged
// in once any chat textbox exists.
var chatInterfaceProbe = schemas.CSS(`[role="textbox"]`)

var downloadImageButton = schemas.CSS(`[data-test-id="download-generated-image-button"]`)

// modeToggle builds the locator chain for one entry in the tools menu,
// matched by visible label so localized or renamed buttons can be covered
// with extra label candidates.
func modeToggle(labels []string) Target {
	cands := make([]schemas.Locator, 0, 2*len(labels))
	for _, label := range labels {
		cands = append(cands, schemas.ByText("button", label))
	}
	for _, label := range labels {
		cands = append(cands, schemas.XPath(
			`//toolbox-drawer-item//button[contains(normalize-space(.), `+xpathQuote(label)+`)]`))
	}
	return Target{Name: "mode toggle", Candidates: cands}
}

func xpathQuote(s string) string {
	return `"` + s + `"`
}
