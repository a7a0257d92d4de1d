// Package adapter runs a middleware-chain application inside a single Lambda
// invocation.
//
// Each invocation gets a fresh Request and Response. The adapter waits for
// the application to finish the response (End, JSON or Redirect) or to give
// up through next, and converts the result into the platform response.
// Handle never returns an error: failures become 500 JSON responses.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pricofy/cms-lambda/internal/metrics"
)

// CORS headers set on every response.
var corsHeaders = [][2]string{
	{"Access-Control-Allow-Credentials", "true"},
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET,OPTIONS,PATCH,DELETE,POST,PUT"},
	{"Access-Control-Allow-Headers", "X-CSRF-Token, X-Requested-With, Accept, Accept-Version, Content-Length, Content-MD5, Content-Type, Date, X-Api-Version, Authorization"},
}

// LocalRequestID is the Locals key holding the invocation's request id.
const LocalRequestID = "requestId"

// ErrorBody is the JSON body of adapter-generated error responses.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Adapter handles invocations for one application source.
type Adapter struct {
	source     AppSource
	log        *zap.Logger
	production bool
	accessor   core.RequestAccessorV2
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithProduction controls whether failure responses omit stack traces.
func WithProduction(production bool) Option {
	return func(a *Adapter) { a.production = production }
}

// New returns an Adapter. Production mode is on unless disabled.
func New(source AppSource, opts ...Option) *Adapter {
	a := &Adapter{
		source:     source,
		log:        zap.NewNop(),
		production: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle serves one invocation.
func (a *Adapter) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	start := time.Now()

	res := NewResponse()
	for _, h := range corsHeaders {
		res.Set(h[0], h[1])
	}

	requestID := event.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	method := strings.ToUpper(event.RequestContext.HTTP.Method)
	log := a.log.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", event.RawPath),
	)

	var outcome string
	if method == http.MethodOptions {
		_ = res.Status(http.StatusOK).End(nil)
		outcome = metrics.OutcomePreflight
	} else {
		var err error
		outcome, err = a.dispatch(ctx, event, requestID, res, log)
		if err != nil {
			log.Error("Invocation failed", zap.Error(err))
			a.fail(res, err)
			outcome = metrics.OutcomeFailed
		}
	}

	elapsed := time.Since(start)
	metrics.RecordInvocation(outcome, elapsed)
	log.Debug("Invocation finished",
		zap.String("outcome", outcome),
		zap.Int("status", res.StatusCode()),
		zap.Duration("elapsed", elapsed))

	return toEvent(res)
}

// dispatch runs the application and blocks until it finishes the response
// or calls next.
func (a *Adapter) dispatch(ctx context.Context, event events.APIGatewayV2HTTPRequest, requestID string, res *Response, log *zap.Logger) (string, error) {
	app, err := a.source.Instance(ctx)
	if err != nil {
		return "", err
	}

	httpReq, err := a.accessor.EventToRequestWithContext(ctx, event)
	if err != nil {
		return "", errors.Wrap(err, "convert event to request")
	}
	req := NewRequest(httpReq)
	res.Locals()[LocalRequestID] = requestID

	nextCh := make(chan error, 1)
	var once sync.Once
	next := func(err error) {
		once.Do(func() { nextCh <- err })
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				next(errors.Errorf("application panicked: %v", r))
			}
		}()
		app.Serve(req, res, next)
	}()

	select {
	case <-res.Done():
		return metrics.OutcomeCompleted, nil
	case err := <-nextCh:
		if res.Finished() {
			return metrics.OutcomeCompleted, nil
		}
		if err != nil {
			log.Error("Application processing error", zap.Error(err))
			res.reset()
			_ = res.Status(http.StatusInternalServerError).JSON(ErrorBody{Error: "Internal server error"})
			return metrics.OutcomeAppError, nil
		}
		res.reset()
		_ = res.Status(http.StatusNotFound).JSON(ErrorBody{Error: "Not found"})
		return metrics.OutcomeNotFound, nil
	}
}

func (a *Adapter) fail(res *Response, err error) {
	body := ErrorBody{
		Error:   "Failed to initialize application",
		Message: err.Error(),
	}
	if !a.production {
		body.Stack = fmt.Sprintf("%+v", err)
	}
	res.reset()
	_ = res.Status(http.StatusInternalServerError).JSON(body)
}
