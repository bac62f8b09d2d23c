package engine

import "net/http"

// headerTransport sets fixed headers on every outgoing request
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}

// newHTTPClient returns a client that carries the cookie jar and the
// spoofed browser headers
func newHTTPClient(base *http.Client, jar http.CookieJar, headers map[string]string) *http.Client {
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &http.Client{
		Transport: &headerTransport{base: rt, headers: headers},
		Jar:       jar,
		Timeout:   base.Timeout,
	}
}
