package adapter

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is the application's view of one invocation's request. It wraps the
// *http.Request built from the platform event; both see the same values.
type Request struct {
	raw *http.Request
}

// NewRequest wraps r.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Method returns the upper-case HTTP method.
func (r *Request) Method() string { return r.raw.Method }

// URL returns the request URL with path and query.
func (r *Request) URL() *url.URL { return r.raw.URL }

// Header returns the request headers.
func (r *Request) Header() http.Header { return r.raw.Header }

// Body returns the request body.
func (r *Request) Body() io.ReadCloser { return r.raw.Body }

// Raw returns the wrapped request.
func (r *Request) Raw() *http.Request { return r.raw }

// Get returns every value of the named header, matched case-insensitively.
// Multiple values are merged the way they appear on the wire: cookies with
// "; ", everything else with ", ".
func (r *Request) Get(name string) string {
	vs := r.raw.Header.Values(name)
	if len(vs) == 0 {
		// keys written straight into the map skip canonicalization
		for k, v := range r.raw.Header {
			if strings.EqualFold(k, name) {
				vs = v
				break
			}
		}
	}
	if len(vs) == 0 {
		return ""
	}
	sep := ", "
	if strings.EqualFold(name, "Cookie") {
		sep = "; "
	}
	return strings.Join(vs, sep)
}
