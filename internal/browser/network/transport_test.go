// internal/browser/network/transport_test.go
package network

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_RoundTrip(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.Register(loginURL, FulfillJSON(http.StatusUnauthorized, map[string]interface{}{
		"success": false,
		"message": "Invalid credentials",
	})))
	client := NewClient(r, time.Second)

	t.Run("Answers From Router", func(t *testing.T) {
		body := bytes.NewBufferString(`{"email":"wrong@example.com","password":"wrongpass"}`)
		req, err := http.NewRequest(http.MethodPost, loginURL, body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", ContentTypeJSON)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "401 Unauthorized", resp.Status)
		assert.Equal(t, ContentTypeJSON, resp.Header.Get("Content-Type"))

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, int64(len(raw)), resp.ContentLength)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, false, decoded["success"])
		assert.Equal(t, "Invalid credentials", decoded["message"])

		recorded, err := r.RequestsFor(loginURL)
		require.NoError(t, err)
		require.NotEmpty(t, recorded)
		last := recorded[len(recorded)-1]
		assert.Equal(t, http.MethodPost, last.Method)
		assert.Equal(t, ContentTypeJSON, last.Headers.Get("Content-Type"))
		assert.True(t, strings.Contains(string(last.Body), "wrong@example.com"))
	})

	t.Run("Unhandled Request Never Dials", func(t *testing.T) {
		resp, err := client.Get("https://unrouted.invalid/anything")
		if resp != nil {
			resp.Body.Close()
		}
		require.Error(t, err)

		var urlErr *url.Error
		assert.True(t, errors.As(err, &urlErr))
		var unhandled *UnhandledRequestError
		require.True(t, errors.As(err, &unhandled))
		assert.Equal(t, "https://unrouted.invalid/anything", unhandled.URL)
	})
}

func TestTransport_ContentEncoding(t *testing.T) {
	payload := []byte(`{"success":true,"token":"abc123token"}`)

	for _, enc := range []string{EncodingGzip, EncodingBrotli, EncodingDeflate, EncodingIdentity} {
		t.Run(enc, func(t *testing.T) {
			r := newTestRouter(t)
			resp, err := NewResponse(http.StatusOK, ContentTypeJSON, payload).WithEncoding(enc)
			require.NoError(t, err)
			if enc != EncodingIdentity {
				assert.NotEqual(t, payload, resp.Body(), "body should be stored encoded")
				assert.Equal(t, enc, resp.Headers().Get("Content-Encoding"))
			}
			require.NoError(t, r.Register(loginURL, Fulfill(resp)))

			got, err := NewClient(r, time.Second).Get(loginURL)
			require.NoError(t, err)
			defer got.Body.Close()

			raw, err := io.ReadAll(got.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, raw)
			assert.Empty(t, got.Header.Get("Content-Encoding"))
			assert.Equal(t, enc != EncodingIdentity, got.Uncompressed)
		})
	}

	t.Run("Corrupt Body", func(t *testing.T) {
		r := newTestRouter(t)
		corrupt := NewResponse(http.StatusOK, "", []byte("not gzip")).WithHeader("Content-Encoding", EncodingGzip)
		require.NoError(t, r.Register(loginURL, Fulfill(corrupt)))

		_, err := NewClient(r, time.Second).Get(loginURL)
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, "content decoding failed", netErr.Reason)
	})

	_, err := EncodeBody("compress", payload)
	assert.Error(t, err)
}
