// internal/browser/network/encoding.go
package network

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Supported Content-Encoding values.
const (
	EncodingGzip     = "gzip"
	EncodingBrotli   = "br"
	EncodingDeflate  = "deflate"
	EncodingIdentity = "identity"
)

// EncodeBody compresses body with encoding. "" and identity return body unchanged.
func EncodeBody(encoding string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingIdentity:
		return body, nil
	case EncodingGzip:
		w = gzip.NewWriter(&buf)
	case EncodingBrotli:
		w = brotli.NewWriter(&buf)
	case EncodingDeflate:
		w = zlib.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("unsupported Content-Encoding: %s", encoding)
	}

	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("%s encoding failed: %w", encoding, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s encoding failed: %w", encoding, err)
	}
	return buf.Bytes(), nil
}

// WithEncoding returns a copy of the response with its body compressed and
// the Content-Encoding header set. The transport decodes it again, so a
// fetch sees the original bytes.
func (r *Response) WithEncoding(encoding string) (*Response, error) {
	encoded, err := EncodeBody(encoding, r.body)
	if err != nil {
		return nil, err
	}
	out := &Response{
		status:      r.status,
		contentType: r.contentType,
		headers:     r.headers.Clone(),
		body:        encoded,
	}
	if enc := strings.ToLower(strings.TrimSpace(encoding)); enc != "" && enc != EncodingIdentity {
		out.headers.Add("Content-Encoding", enc)
	}
	return out, nil
}

// decodeBody undoes the listed encodings. They are listed in the order they
// were applied, so they are removed in reverse.
func decodeBody(encodings []string, body []byte) ([]byte, error) {
	for i := len(encodings) - 1; i >= 0; i-- {
		encoding := strings.ToLower(strings.TrimSpace(encodings[i]))

		var r io.Reader
		var closer io.Closer
		switch encoding {
		case "", EncodingIdentity:
			continue
		case EncodingGzip:
			zr, err := gzip.NewReader(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("gzip initialization error: %w", err)
			}
			r, closer = zr, zr
		case EncodingDeflate:
			zr, err := zlib.NewReader(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("deflate initialization error: %w", err)
			}
			r, closer = zr, zr
		case EncodingBrotli:
			r = brotli.NewReader(bytes.NewReader(body))
		default:
			return nil, fmt.Errorf("unsupported Content-Encoding layer: %s", encoding)
		}

		decoded, err := io.ReadAll(r)
		if closer != nil {
			closer.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("%s decoding failed: %w", encoding, err)
		}
		body = decoded
	}
	return body, nil
}
