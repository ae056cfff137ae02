// Package sanitize turns raw model gateway bodies into usable text.
//
// Gateways misbehave in practice: HTML error pages arrive with status 200,
// chat-completion JSON comes wrapped in markdown fences or prose, and some
// providers return bare text. The sanitizer classifies whatever it is handed
// and always produces a result, never an error.
package sanitize

import (
	"encoding/json"
	"regexp"
	"strings"

	"ThreadForge/internal/domain/models"
)

const htmlErrorMaxLen = 500

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

type Sanitizer struct{}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize extracts text from a raw response body. Classification order:
// HTML error pages, then known JSON shapes, then a balanced-brace JSON
// rescue, then plain text. The zero result is an empty plain text.
func (s *Sanitizer) Sanitize(raw string) models.SanitizedContent {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.SanitizedContent{
			SourceFormat: models.SourceFormatPlain,
			Warnings:     []string{"empty response body"},
		}
	}

	if isHTML(trimmed) {
		return htmlError(trimmed)
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if text, ok := extractKnownJSON(trimmed); ok {
			return models.SanitizedContent{
				Text:         stripFences(text),
				SourceFormat: models.SourceFormatJSON,
			}
		}
		if json.Valid([]byte(trimmed)) {
			return models.SanitizedContent{
				Text:         stripFences(trimmed),
				SourceFormat: models.SourceFormatPlain,
				Warnings:     []string{"unrecognized json shape"},
			}
		}
	}

	// Some models wrap the completion JSON in prose or fences. Pull out the
	// first balanced object and retry the known shapes on it.
	if inner := extractBalanced(trimmed); inner != "" {
		if text, ok := extractKnownJSON(inner); ok {
			return models.SanitizedContent{
				Text:         stripFences(text),
				SourceFormat: models.SourceFormatJSON,
				Warnings:     []string{"json extracted from surrounding text"},
			}
		}
	}

	return models.SanitizedContent{
		Text:         stripFences(trimmed),
		SourceFormat: models.SourceFormatPlain,
	}
}

func isHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.Contains(lower[:min(len(lower), 256)], "<html")
}

func htmlError(body string) models.SanitizedContent {
	title := "Unknown"
	if m := titleRe.FindStringSubmatch(body); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			title = t
		}
	}

	msg := "HTML Error: " + title
	if len(msg) > htmlErrorMaxLen {
		msg = msg[:htmlErrorMaxLen]
	}

	return models.SanitizedContent{
		Text:         msg,
		SourceFormat: models.SourceFormatHTMLError,
		Warnings:     []string{"gateway returned an html page"},
	}
}

// chatCompletion covers the OpenAI-compatible response shape.
type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// extractKnownJSON tries the response shapes seen in the wild, most
// specific first. A top-level array is unwrapped to its first element.
func extractKnownJSON(s string) (string, bool) {
	if strings.HasPrefix(strings.TrimSpace(s), "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(s), &arr); err == nil && len(arr) > 0 {
			return extractKnownJSON(string(arr[0]))
		}
		return "", false
	}

	var cc chatCompletion
	if err := json.Unmarshal([]byte(s), &cc); err == nil && len(cc.Choices) > 0 {
		if c := strings.TrimSpace(cc.Choices[0].Message.Content); c != "" {
			return c, true
		}
		if c := strings.TrimSpace(cc.Choices[0].Text); c != "" {
			return c, true
		}
	}

	var flat map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &flat); err == nil {
		for _, key := range []string{"content", "text", "output", "message"} {
			rawVal, ok := flat[key]
			if !ok {
				continue
			}
			var str string
			if err := json.Unmarshal(rawVal, &str); err == nil {
				if str = strings.TrimSpace(str); str != "" {
					return str, true
				}
			}
		}
	}

	return "", false
}

// extractBalanced returns the first balanced top-level {...} or [...]
// region, aware of JSON strings and escapes. Empty string when none exists.
func extractBalanced(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}

	open := s[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\n(.*?)\\n?```$")

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
