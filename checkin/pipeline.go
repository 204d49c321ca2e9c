package checkin

import (
	"log/slog"
	"strings"
)

// Stage is one text transformation applied to a selected message.
type Stage func(string) string

// Pipeline applies its stages left to right.
type Pipeline []Stage

func (p Pipeline) Apply(text string) string {
	for _, st := range p {
		if st != nil {
			text = st(text)
		}
	}
	return text
}

// CollapseWhitespace trims text and collapses internal whitespace runs to one space.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// LastText remembers the last text that passed through its stage.
type LastText struct {
	text string
}

func (l *LastText) Stage() Stage {
	return func(s string) string {
		l.text = s
		return s
	}
}

func (l *LastText) Text() string {
	return l.text
}

// LogText debug-logs the final text.
func LogText(logger *slog.Logger) Stage {
	return func(s string) string {
		if logger != nil {
			logger.Debug("message text", "text", s)
		}
		return s
	}
}

// DefaultPipeline collapses whitespace, caches the result in cache (when non-nil) and logs it.
func DefaultPipeline(logger *slog.Logger, cache *LastText) Pipeline {
	p := Pipeline{CollapseWhitespace}
	if cache != nil {
		p = append(p, cache.Stage())
	}
	return append(p, LogText(logger))
}
