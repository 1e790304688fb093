// internal/browser/network/router.go
package network

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UnhandledPolicy decides how a request that matches no rule fails.
type UnhandledPolicy string

const (
	// UnhandledFail returns an UnhandledRequestError.
	UnhandledFail UnhandledPolicy = "fail"
	// UnhandledNetworkError returns a NetworkError wrapping the UnhandledRequestError.
	UnhandledNetworkError UnhandledPolicy = "network_error"
)

type ruleKind int

// Ordered from least to most specific.
const (
	kindRegexp ruleKind = iota
	kindGlob
	kindExact
)

// globMeta are the characters that always make a pattern a glob. A '?' alone
// does not, since it also starts the query of an absolute URL.
const globMeta = "*[{"

type rule struct {
	pattern   string
	kind      ruleKind
	exact     string
	glob      glob.Glob
	re        *regexp.Regexp
	literal   int
	seq       uint64
	responder Responder
}

func (r *rule) matches(rawURL string) bool {
	switch r.kind {
	case kindExact:
		return normalizeURL(rawURL) == r.exact
	case kindGlob:
		if r.glob.Match(rawURL) {
			return true
		}
		// A pattern without a query part still matches a URL that carries one.
		if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
			return r.glob.Match(rawURL[:i])
		}
		return false
	default:
		return r.re.MatchString(rawURL)
	}
}

// moreSpecific reports whether r should win over other.
func (r *rule) moreSpecific(other *rule) bool {
	if r.kind != other.kind {
		return r.kind > other.kind
	}
	if r.kind == kindGlob && r.literal != other.literal {
		return r.literal > other.literal
	}
	return r.seq > other.seq
}

// Router is the route interceptor. It holds the rules of one page and the
// log of every request it has seen.
type Router struct {
	logger *zap.Logger
	policy UnhandledPolicy

	mu       sync.RWMutex
	rules    map[string]*rule
	seq      uint64
	requests []Request
}

// Option configures a Router.
type Option func(*Router)

// WithUnhandledPolicy sets the policy for requests that match no rule.
func WithUnhandledPolicy(p UnhandledPolicy) Option {
	return func(r *Router) {
		if p == UnhandledNetworkError {
			r.policy = p
		} else {
			r.policy = UnhandledFail
		}
	}
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		logger: logger.Named("router"),
		policy: UnhandledFail,
		rules:  make(map[string]*rule),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the configured unhandled policy.
func (r *Router) Policy() UnhandledPolicy {
	return r.policy
}

// Register adds a rule for pattern, replacing any rule registered with the same pattern.
// A pattern is either an absolute URL, matched exactly, or a glob in which
// '*' stops at '/' and '**' crosses it.
func (r *Router) Register(pattern string, responder Responder) error {
	compiled, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	if responder == nil {
		return NewInvalidPatternError(pattern, "responder is nil", nil)
	}
	compiled.responder = responder
	r.add(compiled)
	return nil
}

// RegisterRegexp adds a rule matching URLs against re. Rules are keyed by re.String().
func (r *Router) RegisterRegexp(re *regexp.Regexp, responder Responder) error {
	if re == nil {
		return NewInvalidPatternError("", "regexp is nil", nil)
	}
	if responder == nil {
		return NewInvalidPatternError(re.String(), "responder is nil", nil)
	}
	r.add(&rule{
		pattern:   regexpKey(re),
		kind:      kindRegexp,
		re:        re,
		responder: responder,
	})
	return nil
}

func (r *Router) add(rl *rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rl.seq = r.seq
	_, replaced := r.rules[rl.pattern]
	r.rules[rl.pattern] = rl
	r.logger.Debug("Route registered", zap.String("pattern", rl.pattern), zap.Bool("replaced", replaced))
}

// Unroute removes the rule registered for pattern. Regexp rules are removed by their source text.
func (r *Router) Unroute(pattern string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[pattern]; ok {
		delete(r.rules, pattern)
		return true
	}
	if _, ok := r.rules[regexpKeyFromSource(pattern)]; ok {
		delete(r.rules, regexpKeyFromSource(pattern))
		return true
	}
	return false
}

// Clear removes every rule. The request log is kept.
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = make(map[string]*rule)
}

// Len returns the number of registered rules.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Resolve records req and answers it with the most specific matching rule.
func (r *Router) Resolve(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("resolve: nil request")
	}
	// Normalize a copy; the caller's request is left as it was passed in.
	local := *req
	req = &local
	if req.Method == "" {
		req.Method = "GET"
	}
	req.Method = strings.ToUpper(req.Method)
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Time.IsZero() {
		req.Time = time.Now()
	}

	r.mu.Lock()
	r.requests = append(r.requests, req.clone())
	var best *rule
	for _, rl := range r.rules {
		if rl.matches(req.URL) && (best == nil || rl.moreSpecific(best)) {
			best = rl
		}
	}
	r.mu.Unlock()

	logger := r.logger.With(zap.String("request_id", req.ID), zap.String("method", req.Method), zap.String("url", req.URL))

	if best == nil {
		unhandled := NewUnhandledRequestError(req.Method, req.URL)
		logger.Warn("Request matched no route", zap.String("policy", string(r.policy)))
		if r.policy == UnhandledNetworkError {
			return nil, NewNetworkError(req.URL, "no route", unhandled)
		}
		return nil, unhandled
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("Request matched route", zap.String("pattern", best.pattern))
	resp, err := best.responder(ctx, req)
	if err != nil {
		logger.Debug("Responder failed", zap.Error(err))
		return nil, err
	}
	if resp == nil {
		return nil, NewNetworkError(req.URL, "responder returned no response", nil)
	}
	return resp, nil
}

// Requests returns a copy of every recorded request in arrival order.
func (r *Router) Requests() []Request {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Request, len(r.requests))
	for i, req := range r.requests {
		out[i] = req.clone()
	}
	return out
}

// RequestsFor returns the recorded requests whose URL matches pattern.
func (r *Router) RequestsFor(pattern string) ([]Request, error) {
	compiled, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	var out []Request
	for _, req := range r.Requests() {
		if compiled.matches(req.URL) {
			out = append(out, req)
		}
	}
	return out, nil
}

// ValidatePattern reports whether pattern would be accepted by Register.
func ValidatePattern(pattern string) error {
	_, err := compilePattern(pattern)
	return err
}

func compilePattern(pattern string) (*rule, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, NewInvalidPatternError(pattern, "pattern is empty", nil)
	}

	if !strings.ContainsAny(pattern, globMeta) {
		u, err := url.Parse(pattern)
		switch {
		case err == nil && u.Scheme != "" && u.Host != "":
			return &rule{pattern: pattern, kind: kindExact, exact: normalizeURL(pattern)}, nil
		case !strings.Contains(pattern, "?"):
			if err != nil {
				return nil, NewInvalidPatternError(pattern, "not a valid URL", err)
			}
			return nil, NewInvalidPatternError(pattern, "must be an absolute URL or a glob", nil)
		}
	}

	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, NewInvalidPatternError(pattern, "glob does not compile", err)
	}
	return &rule{pattern: pattern, kind: kindGlob, glob: g, literal: literalLength(pattern)}, nil
}

// literalLength counts the characters of a glob that match only themselves.
func literalLength(pattern string) int {
	n := 0
	depth := 0
	escaped := false
	for _, c := range pattern {
		switch {
		case escaped:
			escaped = false
			if depth == 0 {
				n++
			}
		case c == '\\':
			escaped = true
		case c == '[':
			depth++
		case c == ']' && depth > 0:
			depth--
		case depth > 0:
		case c == '*', c == '?', c == '{', c == '}', c == ',':
		default:
			n++
		}
	}
	return n
}

// normalizeURL lower-cases scheme and host and drops the fragment.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func regexpKey(re *regexp.Regexp) string {
	return regexpKeyFromSource(re.String())
}

func regexpKeyFromSource(src string) string {
	return "regexp:" + src
}
