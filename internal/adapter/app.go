package adapter

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// NextFunc is called by the application when the chain ends without writing
// a response. A non-nil error reports a processing failure.
type NextFunc func(err error)

// App is a middleware-chain application. Serve must either finish res (End,
// JSON, Redirect) or call next, possibly from another goroutine.
type App interface {
	Serve(req *Request, res *Response, next NextFunc)
}

// AppFunc adapts a function to App.
type AppFunc func(req *Request, res *Response, next NextFunc)

func (f AppFunc) Serve(req *Request, res *Response, next NextFunc) { f(req, res, next) }

// AppSource hands out the application instance, booting it if needed.
type AppSource interface {
	Instance(ctx context.Context) (App, error)
}

// HandlerApp runs an http.Handler chain as an App. The response is finished
// when the handler returns; a panic is reported through next.
func HandlerApp(h http.Handler) App {
	return AppFunc(func(req *Request, res *Response, next NextFunc) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					next(errors.New("handler aborted"))
					return
				}
				next(errors.Errorf("handler panicked: %v", r))
			}
		}()
		h.ServeHTTP(res, req.Raw())
		if !res.Finished() {
			_ = res.End(nil)
		}
	})
}
