package handler

import "net/http"

type rawResponse struct {
	status      int
	contentType string
	body        []byte
}

func (r rawResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	if r.contentType != "" {
		w.Header().Set("Content-Type", r.contentType)
	}
	w.WriteHeader(r.status)
	_, err := w.Write(r.body)
	return err
}

// Raw writes body unchanged. An empty contentType leaves the header unset.
func Raw(status int, contentType string, body []byte) Response {
	return rawResponse{status: status, contentType: contentType, body: body}
}

type failResponse struct{ err error }

func (f failResponse) Render(http.ResponseWriter, *http.Request) error { return f.err }

// Fail hands err to the configured ErrorHandler.
func Fail(err error) Response {
	if err == nil {
		err = ErrInternalServerError
	}
	return failResponse{err: err}
}
