package schemas

import (
	"fmt"
	"strings"
)

// LocatorKind tells the page driver how to interpret a locator value.
type LocatorKind string

const (
	LocatorCSS   LocatorKind = "css"
	LocatorXPath LocatorKind = "xpath"
)

// Locator is one concrete way of finding a logical UI target. Candidates are
// tried in a fallback chain: role/label based locators first because build
// artifact class names churn between releases, positional CSS last.
type Locator struct {
	Kind  LocatorKind
	Value string
}

// CSS builds a CSS locator.
func CSS(value string) Locator { return Locator{Kind: LocatorCSS, Value: value} }

// XPath builds an XPath locator.
func XPath(value string) Locator { return Locator{Kind: LocatorXPath, Value: value} }

// ByRole builds a locator matching an element by accessibility role and name.
// The host UI exposes roles via explicit role attributes or native tags, and
// the accessible name via aria-label, so both are matched.
func ByRole(role, name string) Locator {
	q := xpathLiteral(name)
	return XPath(fmt.Sprintf(
		`//*[(@role=%q or local-name()=%q) and (@aria-label=%s or normalize-space(.)=%s)]`,
		role, role, q, q))
}

// ByText builds a locator matching a tag whose rendered text contains the
// given substring. Mirrors text-based lookups used for localized buttons.
func ByText(tag, substring string) Locator {
	return XPath(fmt.Sprintf(`//%s[contains(normalize-space(.), %s)]`, tag, xpathLiteral(substring)))
}

// xpathLiteral quotes a string for embedding in an XPath expression,
// handling values that contain quote characters.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	// Mixed quotes: build with concat().
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
