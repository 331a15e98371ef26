package binder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// DefaultMaxJSONSize bounds the request body read by JSON.
const DefaultMaxJSONSize = 1 << 20

// Option configures the JSON binder.
type Option func(*jsonBinder)

// WithMaxSize overrides DefaultMaxJSONSize.
func WithMaxSize(n int64) Option {
	return func(b *jsonBinder) {
		if n > 0 {
			b.maxSize = n
		}
	}
}

// WithStrictFields rejects objects carrying fields the target does not declare.
func WithStrictFields() Option {
	return func(b *jsonBinder) {
		b.strict = true
	}
}

type jsonBinder struct {
	maxSize int64
	strict  bool
}

// JSON returns a binder that decodes a single JSON value from the request body.
func JSON(opts ...Option) func(r *http.Request, v any) error {
	b := &jsonBinder{maxSize: DefaultMaxJSONSize}
	for _, opt := range opts {
		opt(b)
	}
	return b.bind
}

func (b *jsonBinder) bind(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !isJSONMediaType(mediaType) {
			return fmt.Errorf("%w: got %q, expected application/json", ErrUnsupportedMediaType, ct)
		}
	}
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, b.maxSize+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
	}
	if int64(len(body)) > b.maxSize {
		return fmt.Errorf("%w: max %d bytes", ErrBodyTooLarge, b.maxSize)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if b.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON value", ErrFailedToParseJSON)
	}
	return nil
}

func isJSONMediaType(mt string) bool {
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
