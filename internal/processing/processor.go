package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/models"
)

// TextSeparator joins the title, description and body of an article.
const TextSeparator = " \n"

var whitespace = regexp.MustCompile(`[ \t\r\f\v]+`)

// ISO-8601 shapes accepted for article timestamps. Layouts without a zone
// are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02T15Z07:00",
	"2006-01-02T15",
	"20060102T150405.999999999Z07:00",
	"20060102T150405.999999999-0700",
	"20060102T150405.999999999",
	"20060102",
	"2006-01-02",
}

// ExtractText concatenates the non-empty parts of an article.
func ExtractText(title, description, content string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{title, description, content} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, TextSeparator)
}

// ArticleText is ExtractText applied to an article.
func ArticleText(a models.Article) string {
	return ExtractText(a.Title, a.Description, a.Content)
}

// CleanText decodes HTML entities and squeezes horizontal whitespace.
// Line breaks and punctuation are kept; the sentiment model reads both.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	lines := strings.Split(decoded, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing Z is UTC and a
// missing offset is treated as UTC. ok is false for empty or unparsable input.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeTimestamp re-renders raw as RFC3339 in UTC, or returns "" when it
// cannot be parsed.
func NormalizeTimestamp(raw string) string {
	ts, ok := ParseTimestamp(raw)
	if !ok {
		return ""
	}
	return ts.Format(time.RFC3339Nano)
}

// DocumentID returns the article URL when present, otherwise a deterministic
// hash of the most stable fields.
func DocumentID(a models.Article) string {
	if id := strings.TrimSpace(a.ID); id != "" {
		return id
	}
	if u := strings.TrimSpace(a.URL); u != "" {
		return u
	}
	return BuildDocumentID(a.Title, ArticleText(a), a.Timestamp)
}

// BuildDocumentID hashes the most stable fields to form deterministic IDs.
func BuildDocumentID(title, text, timestamp string) string {
	if ts, ok := ParseTimestamp(timestamp); ok {
		timestamp = ts.Format(time.RFC3339)
	}
	s := sha1.Sum([]byte(title + "|" + text + "|" + timestamp))
	return hex.EncodeToString(s[:])
}
