// internal/browser/network/router_test.go
package network

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const loginURL = "https://api.apprabbit.com/auth/login"

func newTestRouter(t *testing.T, opts ...Option) *Router {
	t.Helper()
	return NewRouter(zaptest.NewLogger(t), opts...)
}

func resolve(t *testing.T, r *Router, method, url string) (*Response, error) {
	t.Helper()
	return r.Resolve(context.Background(), &Request{Method: method, URL: url})
}

func TestRouter_Register(t *testing.T) {
	t.Run("Rejects Invalid Patterns", func(t *testing.T) {
		r := newTestRouter(t)
		for _, pattern := range []string{"", "   ", "not a url", "/auth/login", "api.apprabbit.com/auth", "**/[unclosed"} {
			err := r.Register(pattern, Fulfill(NewResponse(200, "", nil)))
			var invalid *InvalidPatternError
			require.Error(t, err, "pattern %q", pattern)
			assert.True(t, errors.As(err, &invalid), "pattern %q should give InvalidPatternError", pattern)
			assert.Equal(t, pattern, invalid.Pattern)
		}
		assert.Equal(t, 0, r.Len())
	})

	t.Run("Rejects Nil Responder", func(t *testing.T) {
		r := newTestRouter(t)
		var invalid *InvalidPatternError
		assert.True(t, errors.As(r.Register(loginURL, nil), &invalid))
		assert.True(t, errors.As(r.RegisterRegexp(nil, Abort("x")), &invalid))
	})

	t.Run("Same Pattern Replaces Rule", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register(loginURL, Fulfill(NewResponse(200, "text/plain", []byte("first")))))
		require.NoError(t, r.Register(loginURL, Fulfill(NewResponse(201, "text/plain", []byte("second")))))
		assert.Equal(t, 1, r.Len())

		resp, err := resolve(t, r, "POST", loginURL)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.Status())
		assert.Equal(t, "second", string(resp.Body()))
	})
}

func TestRouter_Resolve(t *testing.T) {
	t.Run("Returns Registered Response Unmodified", func(t *testing.T) {
		r := newTestRouter(t)
		payload := map[string]interface{}{
			"success": true,
			"token":   "abc123token",
			"user":    map[string]string{"email": "admin@apprabbit.com", "role": "admin"},
		}
		require.NoError(t, r.Register(loginURL, FulfillJSON(200, payload)))

		resp, err := resolve(t, r, "post", loginURL)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Status())
		assert.Equal(t, ContentTypeJSON, resp.ContentType())
		assert.JSONEq(t, `{"success":true,"token":"abc123token","user":{"email":"admin@apprabbit.com","role":"admin"}}`, string(resp.Body()))
	})

	t.Run("Exact Match Ignores Host Case And Fragment", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register(loginURL, Fulfill(NewResponse(204, "", nil))))
		resp, err := resolve(t, r, "GET", "https://API.apprabbit.com/auth/login#top")
		require.NoError(t, err)
		assert.Equal(t, 204, resp.Status())
	})

	t.Run("Unmatched Request Fails", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register(loginURL, Fulfill(NewResponse(200, "", nil))))

		_, err := resolve(t, r, "GET", "https://api.apprabbit.com/users")
		var unhandled *UnhandledRequestError
		require.True(t, errors.As(err, &unhandled))
		assert.Equal(t, "GET", unhandled.Method)
		assert.Equal(t, "https://api.apprabbit.com/users", unhandled.URL)

		var netErr *NetworkError
		assert.False(t, errors.As(err, &netErr))
	})

	t.Run("Network Error Policy Wraps Unhandled", func(t *testing.T) {
		r := newTestRouter(t, WithUnhandledPolicy(UnhandledNetworkError))
		assert.Equal(t, UnhandledNetworkError, r.Policy())

		_, err := resolve(t, r, "GET", "https://api.apprabbit.com/users")
		var netErr *NetworkError
		var unhandled *UnhandledRequestError
		require.True(t, errors.As(err, &netErr))
		assert.True(t, errors.As(err, &unhandled))
	})

	t.Run("Unknown Policy Falls Back To Fail", func(t *testing.T) {
		r := newTestRouter(t, WithUnhandledPolicy("ignore"))
		assert.Equal(t, UnhandledFail, r.Policy())
	})

	t.Run("Abort Yields Network Error", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register("**/auth/login", Abort("connection refused")))

		_, err := resolve(t, r, "POST", loginURL)
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, "connection refused", netErr.Reason)
		assert.Equal(t, loginURL, netErr.URL)
	})

	t.Run("Responder Honors Context", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register(loginURL, func(ctx context.Context, req *Request) (*Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := r.Resolve(ctx, &Request{Method: "GET", URL: loginURL})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Nil Response Is A Network Error", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register(loginURL, func(ctx context.Context, req *Request) (*Response, error) {
			return nil, nil
		}))
		_, err := resolve(t, r, "GET", loginURL)
		var netErr *NetworkError
		assert.True(t, errors.As(err, &netErr))
	})
}

func TestRouter_Specificity(t *testing.T) {
	answer := func(body string) Responder {
		return Fulfill(NewResponse(200, "text/plain", []byte(body)))
	}
	winner := func(t *testing.T, r *Router, url string) string {
		t.Helper()
		resp, err := resolve(t, r, "GET", url)
		require.NoError(t, err)
		return string(resp.Body())
	}

	t.Run("Exact Beats Glob Beats Regexp", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register(loginURL, answer("exact")))
		require.NoError(t, r.Register("**/auth/login", answer("glob")))
		require.NoError(t, r.RegisterRegexp(regexp.MustCompile(`/auth/`), answer("regexp")))

		assert.Equal(t, "exact", winner(t, r, loginURL))
		require.True(t, r.Unroute(loginURL))
		assert.Equal(t, "glob", winner(t, r, loginURL))
		require.True(t, r.Unroute("**/auth/login"))
		assert.Equal(t, "regexp", winner(t, r, loginURL))
		require.True(t, r.Unroute(`/auth/`))
		assert.False(t, r.Unroute(`/auth/`))

		_, err := resolve(t, r, "GET", loginURL)
		var unhandled *UnhandledRequestError
		assert.True(t, errors.As(err, &unhandled))
	})

	t.Run("Longer Literal Glob Wins", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register("**/auth/login", answer("long")))
		require.NoError(t, r.Register("**/login", answer("short")))
		assert.Equal(t, "long", winner(t, r, loginURL))
	})

	t.Run("Tie Goes To Most Recent", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register("**/auth/logi?", answer("older")))
		require.NoError(t, r.Register("**/auth/log?n", answer("newer")))
		assert.Equal(t, "newer", winner(t, r, loginURL))

		// Re-registering moves a rule to the front of its tie.
		require.NoError(t, r.Register("**/auth/logi?", answer("refreshed")))
		assert.Equal(t, "refreshed", winner(t, r, loginURL))
	})

	t.Run("Single Star Stops At Slash", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register("https://api.apprabbit.com/*", answer("top")))
		assert.Equal(t, "top", winner(t, r, "https://api.apprabbit.com/health"))

		_, err := resolve(t, r, "GET", loginURL)
		var unhandled *UnhandledRequestError
		assert.True(t, errors.As(err, &unhandled))
	})

	t.Run("Absolute URL With Query Is Exact", func(t *testing.T) {
		r := newTestRouter(t)
		const search = "https://api.apprabbit.com/search?q=1"
		require.NoError(t, r.Register(search, answer("exact")))
		require.NoError(t, r.Register("**/search*", answer("glob")))
		assert.Equal(t, "exact", winner(t, r, search))
		assert.Equal(t, "glob", winner(t, r, "https://api.apprabbit.com/search?q=2"))

		require.True(t, r.Unroute("**/search*"))
		for _, other := range []string{"https://api.apprabbit.com/searchXq=1", "https://api.apprabbit.com/search?q=12"} {
			_, err := resolve(t, r, "GET", other)
			var unhandled *UnhandledRequestError
			assert.True(t, errors.As(err, &unhandled), "%s should not match", other)
		}
	})

	t.Run("Glob Matches URL With Query", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register("**/auth/login", answer("glob")))
		assert.Equal(t, "glob", winner(t, r, loginURL+"?redirect=/home"))
	})

	t.Run("Clear Removes All Rules", func(t *testing.T) {
		r := newTestRouter(t)
		require.NoError(t, r.Register("**/auth/login", answer("glob")))
		r.Clear()
		assert.Equal(t, 0, r.Len())
	})
}

func TestRouter_Requests(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.Register("**/auth/login", FulfillJSON(401, map[string]interface{}{"success": false})))

	_, err := r.Resolve(context.Background(), &Request{
		Method: "POST",
		URL:    loginURL,
		Body:   []byte(`{"email":"wrong@example.com","password":"wrongpass"}`),
	})
	require.NoError(t, err)
	_, err = resolve(t, r, "GET", "https://api.apprabbit.com/users")
	require.Error(t, err)

	all := r.Requests()
	require.Len(t, all, 2, "unhandled requests are recorded too")
	assert.NotEmpty(t, all[0].ID)
	assert.NotEqual(t, all[0].ID, all[1].ID)
	assert.False(t, all[0].Time.IsZero())

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	require.NoError(t, all[0].JSON(&creds))
	assert.Equal(t, "wrong@example.com", creds.Email)

	// Mutating the copy leaves the log untouched.
	all[0].Body[0] = 'X'
	assert.Equal(t, byte('{'), r.Requests()[0].Body[0])

	matched, err := r.RequestsFor("**/auth/*")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "POST", matched[0].Method)

	_, err = r.RequestsFor("")
	var invalid *InvalidPatternError
	assert.True(t, errors.As(err, &invalid))
}

func TestRouter_ResolveLeavesCallerRequest(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.Register(loginURL, Fulfill(NewResponse(204, "", nil))))

	req := &Request{Method: "post", URL: loginURL}
	_, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "post", req.Method)
	assert.Empty(t, req.ID)
	assert.True(t, req.Time.IsZero())

	recorded := r.Requests()
	require.Len(t, recorded, 1)
	assert.Equal(t, "POST", recorded[0].Method)
	assert.NotEmpty(t, recorded[0].ID)
}

func TestResponse_Immutable(t *testing.T) {
	body := []byte("hello")
	resp := NewResponse(0, "text/plain", body)
	body[0] = 'j'
	assert.Equal(t, 200, resp.Status())
	assert.Equal(t, "hello", string(resp.Body()))

	resp.Body()[0] = 'j'
	assert.Equal(t, "hello", string(resp.Body()))

	withHeader := resp.WithHeader("X-Fixture", "login")
	assert.Empty(t, resp.Headers().Get("X-Fixture"))
	assert.Equal(t, "login", withHeader.Headers().Get("X-Fixture"))
	assert.Equal(t, "text/plain", withHeader.Headers().Get("Content-Type"))
}
