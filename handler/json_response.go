package handler

import (
	"encoding/json"
	"net/http"
)

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	data, err := json.Marshal(j.body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	_, err = w.Write(append(data, '\n'))
	return err
}

// JSONOption configures JSON.
type JSONOption func(*jsonResponse)

// WithJSONStatus overrides the default 200.
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// JSON encodes v as the whole response body.
// Encoding happens before any header is written, so a value that cannot be
// encoded still reaches the error handler with a clean writer.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
