package schemas

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects an optional enhanced-processing tool on the chat UI. It changes
// the interaction sequence and the completion signals the detector watches for.
type Mode string

const (
	ModeNone            Mode = "none"
	ModeDeepResearch    Mode = "deep-research"
	ModeDeepThink       Mode = "deep-think"
	ModeImageGeneration Mode = "image-generation"
)

// ParseMode converts a user supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNone, "":
		return ModeNone, nil
	case ModeDeepResearch:
		return ModeDeepResearch, nil
	case ModeDeepThink:
		return ModeDeepThink, nil
	case ModeImageGeneration:
		return ModeImageGeneration, nil
	default:
		return ModeNone, fmt.Errorf("unknown mode %q (expected none, deep-research, deep-think or image-generation)", s)
	}
}

// Request describes a single prompt run. It is immutable once issued: one
// sequencer run consumes it entirely and never mutates it.
type Request struct {
	ID      string        `json:"id"`
	Prompt  string        `json:"prompt"`
	Mode    Mode          `json:"mode"`
	Timeout time.Duration `json:"timeout"`
	Profile string        `json:"profile,omitempty"`
	// OutputPath, when set, is where the caller wants the rendered result written.
	OutputPath string `json:"output_path,omitempty"`
	// DownloadDir is the destination directory for image-generation artifacts.
	DownloadDir string `json:"download_dir,omitempty"`
}

// Validate checks the caller supplied fields. The prompt must carry text; the
// core never truncates or re-encodes it. A zero timeout means the configured
// default applies.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrNoPrompt
	}
	if r.Timeout < 0 {
		return fmt.Errorf("request timeout must not be negative, got %v", r.Timeout)
	}
	return nil
}

// Source is one citation extracted from the sources panel.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Confidence records which completion signal produced the result. An
// indicator-based completion is authoritative; the content-stability fallback
// and the degraded body-text extraction are lower-confidence paths the caller
// may want to treat differently.
type Confidence string

const (
	ConfidenceIndicator     Confidence = "indicator"
	ConfidenceContentStable Confidence = "content-stable"
	ConfidenceDegraded      Confidence = "degraded"
)

// ExtractedResult is the normalized output of one completed request. Built
// once per request and immutable afterwards.
type ExtractedResult struct {
	Reasoning  string     `json:"reasoning,omitempty"`
	Answer     string     `json:"answer"`
	Sources    []Source   `json:"sources,omitempty"`
	Confidence Confidence `json:"confidence"`
	// ImagePath is set instead of Answer for image-generation requests.
	ImagePath string `json:"image_path,omitempty"`
}

// Markdown renders the result sections in the fixed order
// reasoning -> answer -> sources, each clearly delimited.
func (r ExtractedResult) Markdown() string {
	var parts []string
	if r.Reasoning != "" {
		parts = append(parts, "## Thinking\n\n"+r.Reasoning)
	}
	if r.Answer != "" {
		parts = append(parts, r.Answer)
	}
	if len(r.Sources) > 0 {
		var b strings.Builder
		b.WriteString("## References\n")
		for _, s := range r.Sources {
			b.WriteString("\n- ")
			if s.Title != "" {
				b.WriteString(fmt.Sprintf("[%s](%s)", s.Title, s.URL))
			} else {
				b.WriteString(s.URL)
			}
			if s.Snippet != "" {
				b.WriteString(" - " + s.Snippet)
			}
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}
