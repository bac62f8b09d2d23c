package platform

import (
	"net/url"
	"strings"
)

// URL constants
const (
	ShortLinkHost        = "youtu.be"
	VideoIDParam         = "v"
	CanonicalWatchPrefix = "https://www.youtube.com/watch?v="
)

// ExtractVideoID returns the video identifier carried by raw, either as the
// first path segment of a short link or as the "v" query parameter.
func ExtractVideoID(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	var id string
	if strings.EqualFold(parsed.Hostname(), ShortLinkHost) {
		id = strings.SplitN(strings.TrimPrefix(parsed.Path, "/"), "/", 2)[0]
	} else {
		id = parsed.Query().Get(VideoIDParam)
	}

	if id == "" {
		return "", false
	}
	return id, true
}

// NormalizeVideoURL rewrites raw into the canonical watch URL. Input without
// an extractable identifier is returned unchanged.
func NormalizeVideoURL(raw string) string {
	id, ok := ExtractVideoID(raw)
	if !ok {
		return raw
	}
	return CanonicalWatchURL(id)
}

// CanonicalWatchURL builds the watch URL for a video identifier
func CanonicalWatchURL(id string) string {
	return CanonicalWatchPrefix + url.QueryEscape(id)
}
