// internal/browser/page.go
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mockpage/internal/browser/dom"
	"github.com/xkilldash9x/mockpage/internal/browser/expect"
	"github.com/xkilldash9x/mockpage/internal/browser/network"
	"github.com/xkilldash9x/mockpage/internal/config"
)

// ErrPageClosed is returned by operations on a closed page.
var ErrPageClosed = errors.New("page is closed")

const DefaultFetchTimeout = 10 * time.Second

// PageOptions configures a new page.
type PageOptions struct {
	UnhandledPolicy network.UnhandledPolicy
	FetchTimeout    time.Duration
	Expect          expect.Options
	// Registry supplies the behaviors that content may reference.
	Registry *dom.Registry
}

// PageOptionsFromConfig builds page options from the harness configuration.
func PageOptionsFromConfig(cfg config.Interface, registry *dom.Registry) PageOptions {
	h := cfg.Harness()
	return PageOptions{
		UnhandledPolicy: network.UnhandledPolicy(strings.ToLower(h.UnhandledPolicy)),
		FetchTimeout:    h.FetchTimeout,
		Expect:          expect.OptionsFromConfig(h),
		Registry:        registry,
	}
}

// Page pairs a route interceptor with a simulated document. Pages share no
// mutable state, so separate pages can be driven from separate goroutines.
type Page struct {
	id     string
	logger *zap.Logger
	router *network.Router
	doc    *dom.Document
	client *http.Client
	expect *expect.Expect

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	onClose func()
}

// NewPage creates a standalone page. Use Manager.NewPage to have it tracked.
func NewPage(id string, logger *zap.Logger, opts PageOptions) *Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("page").With(zap.String("page_id", id))
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	router := network.NewRouter(logger, network.WithUnhandledPolicy(opts.UnhandledPolicy))
	ctx, cancel := context.WithCancel(context.Background())
	return &Page{
		id:     id,
		logger: logger,
		router: router,
		doc:    dom.NewDocument(logger, opts.Registry),
		client: network.NewClient(router, opts.FetchTimeout),
		expect: expect.New(opts.Expect),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the page identifier.
func (p *Page) ID() string { return p.id }

// Router exposes the route interceptor.
func (p *Page) Router() *network.Router { return p.router }

// Document exposes the simulated document.
func (p *Page) Document() *dom.Document { return p.doc }

// Expect returns assertions bound to this page's polling bounds.
func (p *Page) Expect() *expect.Expect { return p.expect }

// Client returns an HTTP client whose requests are answered by the page's routes.
func (p *Page) Client() *http.Client { return p.client }

func (p *Page) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Route registers responder for pattern, replacing an existing rule for the same pattern.
func (p *Page) Route(pattern string, responder network.Responder) error {
	if p.isClosed() {
		return ErrPageClosed
	}
	return p.router.Register(pattern, responder)
}

// RouteRegexp registers responder for URLs matching re.
func (p *Page) RouteRegexp(re *regexp.Regexp, responder network.Responder) error {
	if p.isClosed() {
		return ErrPageClosed
	}
	return p.router.RegisterRegexp(re, responder)
}

// Unroute removes the rule for pattern.
func (p *Page) Unroute(pattern string) bool {
	return p.router.Unroute(pattern)
}

// ClearRoutes removes every rule.
func (p *Page) ClearRoutes() {
	p.router.Clear()
}

// Requests returns every request the page's routes intercepted.
func (p *Page) Requests() []network.Request {
	return p.router.Requests()
}

// SetContent replaces the document with markup.
func (p *Page) SetContent(markup string) error {
	if p.isClosed() {
		return ErrPageClosed
	}
	return p.doc.SetContent(markup)
}

// Content serializes the current document.
func (p *Page) Content() string {
	return p.doc.HTML()
}

// Title returns the current document title.
func (p *Page) Title() string {
	return p.doc.Title()
}

// FetchRequest describes a request issued through the page's routes.
type FetchRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	// JSON, when set, is encoded as the body with a JSON content type.
	JSON interface{}
	Body []byte
}

// FetchResult is a fully read response.
type FetchResult struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// OK reports a 2xx status.
func (r *FetchResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON decodes the body into v.
func (r *FetchResult) JSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Text returns the body as a string.
func (r *FetchResult) Text() string {
	return string(r.Body)
}

// Fetch sends req through the page's HTTP client. It never reaches a real
// network: unrouted requests fail with the router's unhandled error.
func (p *Page) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	if p.isClosed() {
		return nil, ErrPageClosed
	}
	ctx, cancel := CombineContext(ctx, p.ctx)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body := req.Body
	if req.JSON != nil {
		encoded, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = encoded
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if req.JSON != nil {
		httpReq.Header.Set("Content-Type", network.ContentTypeJSON)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", method, req.URL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	p.logger.Debug("Fetch completed.", zap.String("method", method), zap.String("url", req.URL), zap.Int("status", resp.StatusCode))
	return &FetchResult{Status: resp.StatusCode, Headers: resp.Header, Body: payload}, nil
}

// Post is shorthand for a JSON POST.
func (p *Page) Post(ctx context.Context, url string, data interface{}) (*FetchResult, error) {
	return p.Fetch(ctx, FetchRequest{Method: http.MethodPost, URL: url, JSON: data})
}

// Close releases the page. It is idempotent.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	onClose := p.onClose
	p.mu.Unlock()

	p.cancel()
	p.router.Clear()
	if onClose != nil {
		onClose()
	}
	p.logger.Debug("Page closed.")
	return nil
}
