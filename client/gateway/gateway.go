// Package gateway is the client's only door to the REST API: JSON in, JSON out,
// with bearer authentication, failure reporting and in-flight request tracking.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
)

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	// Fields holds the per-field messages of a validation failure.
	Fields map[string]string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of err, or 0 when err is not an *HTTPError.
func StatusCode(err error) int {
	if herr, ok := errors.Cause(err).(*HTTPError); ok {
		return herr.StatusCode
	}
	return 0
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// ErrorHandler is called with every failure, before it is returned to the caller.
	ErrorHandler func(error)
}

type Gateway struct {
	baseURL      string
	client       *rest.Client
	errorHandler func(error)

	mu       sync.Mutex
	token    string
	nextID   uint64
	inFlight map[uint64]struct{}
}

func New(conf Config) *Gateway {
	return &Gateway{
		baseURL:      strings.TrimRight(conf.BaseURL, "/"),
		client:       &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
		errorHandler: conf.ErrorHandler,
		inFlight:     make(map[uint64]struct{}),
	}
}

// SetToken sets the bearer token sent with every request. An empty token signs out.
func (g *Gateway) SetToken(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
}

// InFlight returns the number of requests awaiting a response.
func (g *Gateway) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}

func (g *Gateway) IsLoading() bool {
	return g.InFlight() > 0
}

// Call is one tracked request.
type Call struct {
	gw   *Gateway
	id   uint64
	done chan struct{}
	err  error
}

// Pending reports whether the call still awaits its response.
func (c *Call) Pending() bool {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	_, ok := c.gw.inFlight[c.id]
	return ok
}

// Wait blocks until the call completes and returns its error.
func (c *Call) Wait() error {
	<-c.done
	return c.err
}

// Start sends the request in the background. out, when not nil, receives the decoded response.
func (g *Gateway) Start(ctx context.Context, method, path string, body, out interface{}) *Call {
	g.mu.Lock()
	g.nextID++
	call := &Call{gw: g, id: g.nextID, done: make(chan struct{})}
	g.inFlight[call.id] = struct{}{}
	token := g.token
	g.mu.Unlock()

	go func() {
		defer close(call.done)
		call.err = g.send(ctx, token, method, path, body, out)

		g.mu.Lock()
		delete(g.inFlight, call.id)
		g.mu.Unlock()

		if call.err != nil && g.errorHandler != nil {
			g.errorHandler(call.err)
		}
	}()
	return call
}

func (g *Gateway) Do(ctx context.Context, method, path string, body, out interface{}) error {
	return g.Start(ctx, method, path, body, out).Wait()
}

func (g *Gateway) Get(ctx context.Context, path string, out interface{}) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

func (g *Gateway) Post(ctx context.Context, path string, body, out interface{}) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

func (g *Gateway) Put(ctx context.Context, path string, body, out interface{}) error {
	return g.Do(ctx, http.MethodPut, path, body, out)
}

func (g *Gateway) Delete(ctx context.Context, path string, body, out interface{}) error {
	return g.Do(ctx, http.MethodDelete, path, body, out)
}

func (g *Gateway) send(ctx context.Context, token, method, path string, body, out interface{}) error {
	req := rest.Request{
		Method:  rest.Method(method),
		BaseURL: g.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s body", method, path)
		}
		req.Headers["Content-Type"] = "application/json"
		req.Body = data
	}

	res, err := Send(ctx, g.client, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return newHTTPError(method, path, res)
	}
	if out == nil || res.Body == "" {
		return nil
	}
	if err = json.Unmarshal([]byte(res.Body), out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}
	return nil
}

// Send performs req with client, bound to ctx.
func Send(ctx context.Context, client *rest.Client, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	httpRes, err := client.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(httpRes)
}

func newHTTPError(method, path string, res *rest.Response) *HTTPError {
	herr := &HTTPError{Method: method, Path: path, StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}

	// the API answers {"error": "..."} or a field -> message map
	var body map[string]string
	if err := json.Unmarshal([]byte(res.Body), &body); err == nil {
		if msg, ok := body["error"]; ok && len(body) == 1 {
			herr.Message = msg
		} else if len(body) > 0 {
			herr.Fields = body
		}
	}
	return herr
}
