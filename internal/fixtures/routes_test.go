package fixtures

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/mockpage/internal/browser/network"
)

func TestDefaultRoutes(t *testing.T) {
	set, err := DefaultRoutes()
	require.NoError(t, err)
	assert.Equal(t, []string{"login_invalid", "login_missing_fields", "login_success"}, set.ScenarioNames())
	assert.Empty(t, set.Routes)

	router := network.NewRouter(zaptest.NewLogger(t))
	require.NoError(t, set.Apply(router, "login_invalid"))
	resp, err := router.Resolve(context.Background(), &network.Request{Method: "POST", URL: "https://api.apprabbit.com/auth/login"})
	require.NoError(t, err)
	assert.Equal(t, 401, resp.Status())
	assert.Equal(t, `{"message":"Invalid credentials","success":false}`, string(resp.Body()))

	assert.Error(t, set.Apply(router, "no_such_scenario"))
}

func TestLoadRoutes(t *testing.T) {
	t.Run("Body Abort And Headers", func(t *testing.T) {
		set, err := LoadRoutes(strings.NewReader(`
routes:
  - pattern: "**/health"
    body: ok
    headers:
      X-Mock: "1"
  - pattern: https://down.example.test/
    abort: connection refused
`))
		require.NoError(t, err)

		router := network.NewRouter(zaptest.NewLogger(t))
		require.NoError(t, set.Apply(router))
		assert.Equal(t, 2, router.Len())

		resp, err := router.Resolve(context.Background(), &network.Request{Method: "GET", URL: "https://svc.example.test/health"})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Status())
		assert.Equal(t, "ok", string(resp.Body()))
		assert.Equal(t, "text/plain; charset=utf-8", resp.ContentType())
		assert.Equal(t, "1", resp.Headers().Get("X-Mock"))

		_, err = router.Resolve(context.Background(), &network.Request{Method: "GET", URL: "https://down.example.test/"})
		var netErr *network.NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, "connection refused", netErr.Reason)
	})

	t.Run("Encoded Body", func(t *testing.T) {
		set, err := LoadRoutes(strings.NewReader(`
routes:
  - pattern: "**/catalog"
    encoding: br
    json: {items: [a, b]}
`))
		require.NoError(t, err)

		router := network.NewRouter(zaptest.NewLogger(t))
		require.NoError(t, set.Apply(router))
		client := network.NewClient(router, time.Second)

		resp, err := client.Get("https://cdn.example.test/catalog")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"items":["a","b"]}`, string(body))
		assert.True(t, resp.Uncompressed)
	})

	t.Run("Empty Document", func(t *testing.T) {
		set, err := LoadRoutes(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, set.ScenarioNames())
	})

	invalid := map[string]string{
		"Unknown Field":   "routes:\n  - pattern: https://a.test/\n    stauts: 200\n",
		"Missing Pattern": "routes:\n  - status: 200\n",
		"Json And Body":   "routes:\n  - pattern: https://a.test/\n    body: x\n    json: {a: 1}\n",
		"Abort With Body": "routes:\n  - pattern: https://a.test/\n    abort: boom\n    status: 500\n",
		"Bad Status":      "scenarios:\n  s:\n    - pattern: https://a.test/\n      status: 42\n",
		"Not Yaml":        "routes: [",
		"Bad Encoding":    "routes:\n  - pattern: https://a.test/\n    encoding: lzma\n",
		"Abort Encoded":   "routes:\n  - pattern: https://a.test/\n    abort: boom\n    encoding: gzip\n",
	}
	for name, doc := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRoutes(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	t.Run("Invalid Pattern Surfaces On Apply", func(t *testing.T) {
		set, err := LoadRoutes(strings.NewReader("routes:\n  - pattern: https://ok.test/\n  - pattern: not-a-url\n"))
		require.NoError(t, err)
		router := network.NewRouter(zaptest.NewLogger(t))
		err = set.Apply(router)
		var invalid *network.InvalidPatternError
		assert.True(t, errors.As(err, &invalid))
		assert.Equal(t, 0, router.Len(), "a failed apply registers nothing")
	})

	t.Run("Unknown Scenario Registers Nothing", func(t *testing.T) {
		set, err := DefaultRoutes()
		require.NoError(t, err)
		router := network.NewRouter(zaptest.NewLogger(t))
		assert.Error(t, set.Apply(router, "login_success", "no_such_scenario"))
		assert.Equal(t, 0, router.Len())
	})
}

func TestLoginPage(t *testing.T) {
	for _, v := range Variants() {
		markup, err := LoginPage(v)
		require.NoError(t, err)
		assert.Contains(t, markup, "<title>"+LoginTitle+"</title>")
	}
	_, err := LoginPage("signup")
	assert.Error(t, err)
}
