// internal/browser/network/transport.go
package network

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Transport is an http.RoundTripper that answers every request from a Router.
// It never opens a connection.
type Transport struct {
	router *Router
}

// NewTransport creates a transport backed by router.
func NewTransport(router *Router) *Transport {
	return &Transport{router: router}
}

// Transport returns a RoundTripper backed by this router.
func (r *Router) Transport() http.RoundTripper {
	return NewTransport(r)
}

// RoundTrip implements http.RoundTripper. Encoded bodies are decoded the
// way a browser fetch would, and Content-Encoding is removed.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	intercepted := &Request{
		ID:      uuid.NewString(),
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: req.Header.Clone(),
		Body:    body,
		Time:    time.Now(),
	}

	resp, err := t.router.Resolve(req.Context(), intercepted)
	if err != nil {
		return nil, err
	}

	payload := resp.Body()
	header := resp.Headers()
	uncompressed := false
	if encodings := header.Values("Content-Encoding"); len(encodings) > 0 {
		decoded, err := decodeBody(encodings, payload)
		if err != nil {
			return nil, NewNetworkError(intercepted.URL, "content decoding failed", err)
		}
		payload = decoded
		header.Del("Content-Encoding")
		uncompressed = true
	}
	header.Set("Content-Length", strconv.Itoa(len(payload)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.Status(), http.StatusText(resp.Status())),
		StatusCode:    resp.Status(),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(payload)),
		ContentLength: int64(len(payload)),
		Uncompressed:  uncompressed,
		Request:       req,
	}, nil
}

// NewClient returns an http.Client whose every request is answered by router.
func NewClient(router *Router, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: router.Transport(),
		Timeout:   timeout,
	}
}
