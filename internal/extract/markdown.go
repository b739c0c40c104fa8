package extract

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// prunedSelectors lists UI chrome that must never survive into converted
// output. These are interactive controls and icon markup, not content.
var prunedSelectors = []string{
	"button",
	"input",
	"select",
	"textarea",
	"svg",
	"mat-icon",
	"[role=\"button\"]",
	"[aria-hidden=\"true\"]",
}

var (
	blankRunRE   = regexp.MustCompile(`\n{3,}`)
	strayTickRE  = regexp.MustCompile("(?m)^`\\s*$")
	trailingWSRE = regexp.MustCompile(`(?m)[ \t]+$`)
)

// ToMarkdown converts a fragment of response HTML into normalized markdown.
// Interactive elements are stripped before conversion, and the converter's
// output is post-processed to collapse blank-line runs and remove stray
// backtick artifacts the conversion occasionally leaves behind collapsed
// widgets.
func ToMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	for _, sel := range prunedSelectors {
		doc.Find(sel).Remove()
	}

	body := doc.Find("body")
	pruned, err := body.Html()
	if err != nil {
		return "", err
	}

	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(pruned)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(out), nil
}

func cleanMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = trailingWSRE.ReplaceAllString(s, "")
	s = strayTickRE.ReplaceAllString(s, "")
	s = blankRunRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
