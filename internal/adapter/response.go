package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
)

// ErrResponseFinished is returned by writes after End.
var ErrResponseFinished = errors.New("response already finished")

// Response is the application's view of one invocation's response. Status,
// headers and body written through any of its methods end up in the platform
// response; End is the terminal call that completes the invocation.
//
// Response implements http.ResponseWriter.
type Response struct {
	mu          sync.Mutex
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
	finished    bool
	locals      map[string]any

	done     chan struct{}
	doneOnce sync.Once
}

// NewResponse returns an empty response with status 200.
func NewResponse() *Response {
	return &Response{
		header: make(http.Header),
		status: http.StatusOK,
		locals: make(map[string]any),
		done:   make(chan struct{}),
	}
}

// AsResponse recovers the Response behind an http.ResponseWriter.
func AsResponse(w http.ResponseWriter) (*Response, bool) {
	res, ok := w.(*Response)
	return res, ok
}

// Header returns the header map that will be sent.
func (r *Response) Header() http.Header { return r.header }

// Locals is a per-invocation bag for middleware to share values.
func (r *Response) Locals() map[string]any { return r.locals }

// Get returns the named response header.
func (r *Response) Get(name string) string { return r.header.Get(name) }

// Set sets a response header.
func (r *Response) Set(name, value string) *Response {
	r.header.Set(name, value)
	return r
}

// Status sets the status code.
func (r *Response) Status(code int) *Response {
	r.mu.Lock()
	if !r.finished {
		r.status = code
	}
	r.mu.Unlock()
	return r
}

// WriteHeader follows net/http: only the first call counts.
func (r *Response) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wroteHeader || r.finished {
		return
	}
	r.status = code
	r.wroteHeader = true
}

func (r *Response) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return 0, ErrResponseFinished
	}
	r.wroteHeader = true
	return r.body.Write(p)
}

// End writes chunk, if any, and finishes the response. Only the first call
// has an effect; later calls return ErrResponseFinished.
func (r *Response) End(chunk []byte) error {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return ErrResponseFinished
	}
	r.body.Write(chunk)
	r.wroteHeader = true
	r.finished = true
	r.mu.Unlock()

	r.doneOnce.Do(func() { close(r.done) })
	return nil
}

// JSON serializes data as the body and finishes the response.
func (r *Response) JSON(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	r.Set("Content-Type", "application/json; charset=utf-8")
	return r.End(payload)
}

// Redirect sends a 302 to url and finishes the response.
func (r *Response) Redirect(url string) error {
	r.Set("Location", url)
	r.Status(http.StatusFound)
	return r.End(nil)
}

// HeadersSent reports whether status or body have been written.
func (r *Response) HeadersSent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wroteHeader
}

// Finished reports whether End has been called.
func (r *Response) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// Done is closed when the response is finished.
func (r *Response) Done() <-chan struct{} { return r.done }

// StatusCode returns the status that will be sent.
func (r *Response) StatusCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Body returns a copy of the body written so far.
func (r *Response) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.body.Bytes())
}

// reset discards status and body so an error response can replace a partial
// one. Headers already set (CORS) are kept, except the length of the
// discarded body.
func (r *Response) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.header.Del("Content-Length")
	r.body.Reset()
	r.status = http.StatusOK
	r.wroteHeader = false
}
