package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Netscape cookie file layout
const (
	netscapeFieldCount = 7
	httpOnlyPrefix     = "#HttpOnly_"
)

// ErrMalformedCookieLine is returned for lines that are not in Netscape format
var ErrMalformedCookieLine = errors.New("malformed cookie line")

// LoadCookieJar builds a cookie jar from a Netscape cookies.txt file. A
// missing file yields an empty jar.
func LoadCookieJar(path string) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return jar, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return jar, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie file: %w", err)
	}
	defer f.Close()

	cookies, err := ParseNetscapeCookies(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	byHost := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		byHost[host] = append(byHost[host], c)
	}
	for host, list := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, list)
	}
	return jar, nil
}

// ParseNetscapeCookies parses the tab separated cookies.txt format
func ParseNetscapeCookies(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != netscapeFieldCount {
			return nil, fmt.Errorf("line %d: %w", lineNo, ErrMalformedCookieLine)
		}

		expires, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad expiry %q: %w", lineNo, fields[4], ErrMalformedCookieLine)
		}

		c := &http.Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HttpOnly: httpOnly,
		}
		// Zero expiry marks a session cookie
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
		}
		cookies = append(cookies, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}
