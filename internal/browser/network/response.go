// internal/browser/network/response.go
package network

import (
	"context"
	"net/http"
	"time"

	json "github.com/json-iterator/go"
)

const ContentTypeJSON = "application/json"

// Request is the record of one intercepted call.
type Request struct {
	ID      string
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
	Time    time.Time
}

// clone returns a deep copy so recorded requests cannot be altered by callers.
func (r Request) clone() Request {
	out := r
	out.Headers = r.Headers.Clone()
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// JSON decodes the request body into v.
func (r Request) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Response is a canned answer. It is immutable once constructed; accessors hand out copies.
type Response struct {
	status      int
	contentType string
	headers     http.Header
	body        []byte
}

// NewResponse builds a response. A zero status is treated as 200.
func NewResponse(status int, contentType string, body []byte) *Response {
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		status:      status,
		contentType: contentType,
		headers:     make(http.Header),
		body:        append([]byte(nil), body...),
	}
}

// WithHeader returns a copy of the response with an extra header.
func (r *Response) WithHeader(key, value string) *Response {
	out := &Response{
		status:      r.status,
		contentType: r.contentType,
		headers:     r.headers.Clone(),
		body:        r.body,
	}
	out.headers.Add(key, value)
	return out
}

func (r *Response) Status() int         { return r.status }
func (r *Response) ContentType() string { return r.contentType }

// Headers returns a copy of the extra headers; Content-Type is included when set.
func (r *Response) Headers() http.Header {
	h := r.headers.Clone()
	if h == nil {
		h = make(http.Header)
	}
	if r.contentType != "" {
		h.Set("Content-Type", r.contentType)
	}
	return h
}

// Body returns a copy of the body bytes.
func (r *Response) Body() []byte {
	return append([]byte(nil), r.body...)
}

// Responder produces the response for a matched request. Responders run
// synchronously inside Resolve and may block on ctx.
type Responder func(ctx context.Context, req *Request) (*Response, error)

// Fulfill always answers with resp.
func Fulfill(resp *Response) Responder {
	return func(ctx context.Context, req *Request) (*Response, error) {
		return resp, nil
	}
}

// FulfillJSON answers with v encoded as JSON. The value is encoded once, at
// registration time, so later changes to v are not observed.
func FulfillJSON(status int, v interface{}) Responder {
	body, err := json.Marshal(v)
	return func(ctx context.Context, req *Request) (*Response, error) {
		if err != nil {
			return nil, NewNetworkError(req.URL, "failed to encode JSON fixture", err)
		}
		return NewResponse(status, ContentTypeJSON, body), nil
	}
}

// Abort fails every matched request with a NetworkError.
func Abort(reason string) Responder {
	if reason == "" {
		reason = "failed"
	}
	return func(ctx context.Context, req *Request) (*Response, error) {
		return nil, NewNetworkError(req.URL, reason, nil)
	}
}
