package sanitize

import (
	"strings"
	"testing"

	"ThreadForge/internal/domain/models"
)

func TestSanitizeHTMLErrorPage(t *testing.T) {
	s := NewSanitizer()
	body := `<!DOCTYPE html>
<html><head><title>Service Unavailable</title></head>
<body><h1>503</h1></body></html>`

	got := s.Sanitize(body)
	if got.SourceFormat != models.SourceFormatHTMLError {
		t.Fatalf("source format = %s, want html-error", got.SourceFormat)
	}
	if got.Text != "HTML Error: Service Unavailable" {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestSanitizeHTMLWithoutTitle(t *testing.T) {
	s := NewSanitizer()
	got := s.Sanitize("<html><body>boom</body></html>")
	if got.SourceFormat != models.SourceFormatHTMLError {
		t.Fatalf("source format = %s", got.SourceFormat)
	}
	if got.Text != "HTML Error: Unknown" {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestSanitizeHTMLErrorCapped(t *testing.T) {
	s := NewSanitizer()
	long := strings.Repeat("x", 2000)
	got := s.Sanitize("<html><title>" + long + "</title></html>")
	if len(got.Text) != 500 {
		t.Fatalf("len = %d, want 500", len(got.Text))
	}
	if !strings.HasPrefix(got.Text, "HTML Error: ") {
		t.Fatalf("text = %q", got.Text[:30])
	}
}

func TestSanitizeChatCompletionJSON(t *testing.T) {
	s := NewSanitizer()
	body := `{"id":"x","choices":[{"message":{"role":"assistant","content":"1/2: hello\n\n2/2: world"}}]}`

	got := s.Sanitize(body)
	if got.SourceFormat != models.SourceFormatJSON {
		t.Fatalf("source format = %s, want json", got.SourceFormat)
	}
	if got.Text != "1/2: hello\n\n2/2: world" {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestSanitizeFlatContentJSON(t *testing.T) {
	s := NewSanitizer()
	got := s.Sanitize(`{"content":"the thread text"}`)
	if got.SourceFormat != models.SourceFormatJSON || got.Text != "the thread text" {
		t.Fatalf("got %+v", got)
	}
}

func TestSanitizeUnknownJSONShapeWarns(t *testing.T) {
	s := NewSanitizer()
	got := s.Sanitize(`{"foo":{"bar":1}}`)
	if got.SourceFormat != models.SourceFormatPlain {
		t.Fatalf("source format = %s", got.SourceFormat)
	}
	if len(got.Warnings) == 0 {
		t.Fatal("expected a warning for unknown json shape")
	}
}

func TestSanitizeJSONEmbeddedInProse(t *testing.T) {
	s := NewSanitizer()
	body := "Sure! Here is the response:\n{\"content\":\"embedded thread\"}\nHope it helps."

	got := s.Sanitize(body)
	if got.SourceFormat != models.SourceFormatJSON {
		t.Fatalf("source format = %s, want json", got.SourceFormat)
	}
	if got.Text != "embedded thread" {
		t.Fatalf("text = %q", got.Text)
	}
	if len(got.Warnings) == 0 {
		t.Fatal("expected extraction warning")
	}
}

func TestSanitizeArrayEmbeddedInProse(t *testing.T) {
	s := NewSanitizer()
	body := "Model output below:\n[{\"choices\":[{\"message\":{\"content\":\"array thread\"}}]}]\ndone."

	got := s.Sanitize(body)
	if got.SourceFormat != models.SourceFormatJSON {
		t.Fatalf("source format = %s, want json", got.SourceFormat)
	}
	if got.Text != "array thread" {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestSanitizeTopLevelArray(t *testing.T) {
	s := NewSanitizer()
	got := s.Sanitize(`[{"content":"wrapped in an array"}]`)
	if got.SourceFormat != models.SourceFormatJSON || got.Text != "wrapped in an array" {
		t.Fatalf("got %+v", got)
	}
}

func TestSanitizePlainText(t *testing.T) {
	s := NewSanitizer()
	got := s.Sanitize("1/3: a plain thread\n\n2/3: second\n\n3/3: third")
	if got.SourceFormat != models.SourceFormatPlain {
		t.Fatalf("source format = %s", got.SourceFormat)
	}
	if !strings.HasPrefix(got.Text, "1/3:") {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestSanitizeStripsCodeFences(t *testing.T) {
	s := NewSanitizer()
	got := s.Sanitize("```\nfenced content\n```")
	if got.Text != "fenced content" {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestSanitizeEmpty(t *testing.T) {
	s := NewSanitizer()
	got := s.Sanitize("   \n ")
	if got.Text != "" || got.SourceFormat != models.SourceFormatPlain {
		t.Fatalf("got %+v", got)
	}
}

func TestSanitizeNeverPanics(t *testing.T) {
	s := NewSanitizer()
	inputs := []string{
		"", "{", "}", "{{{{", "[", "]", "[[[[", `[1,2`, `{"choices":[]}`, "<html", "<!doctype html>",
		`{"choices":[{"message":{}}]}`, "\x00\x01\x02", strings.Repeat("{\"a\":", 1000),
		`{"content":""}`, "```json\n{\"content\":\"x\"}\n```",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("panic on %q: %v", in, r)
				}
			}()
			_ = s.Sanitize(in)
		}()
	}
}
