package cli

import (
	"errors"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

// maxURLLength rejects clipboard contents that cannot be a single URL
const maxURLLength = 2048

var (
	// ErrClipboardRead indicates an error reading from the clipboard
	ErrClipboardRead = errors.New("failed to read from clipboard")
	// ErrInvalidURL indicates the clipboard content is not a valid URL
	ErrInvalidURL = errors.New("clipboard does not contain a valid URL")
)

// ReadClipboardURL reads the clipboard and returns a valid URL if found
func ReadClipboardURL() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", ErrClipboardRead
	}

	u := extractURL(text)
	if u == "" {
		return "", ErrInvalidURL
	}
	return u, nil
}

// extractURL returns text if it is a single http(s) URL with a host
func extractURL(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxURLLength || strings.ContainsAny(text, "\n\r") {
		return ""
	}

	parsed, err := url.Parse(text)
	if err != nil {
		return ""
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || strings.TrimSpace(parsed.Host) == "" {
		return ""
	}
	return parsed.String()
}
