package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/replyflow/pkg/binder"
	"github.com/dmitrymomot/replyflow/pkg/logger"
	"github.com/dmitrymomot/replyflow/pkg/requestid"
)

// ErrorInfo is the classified form of an error.
type ErrorInfo struct {
	StatusCode int
	Message    string
	LogLevel   slog.Level
}

// ErrorMapper translates a domain error into an HTTPError.
type ErrorMapper func(err error) (HTTPError, bool)

// Classify maps err to a status and client-facing message.
// Binder failures become 400 "Invalid JSON body", an HTTPError in the chain
// supplies its own code and key, and anything else is a 500.
func Classify(err error, mappers ...ErrorMapper) ErrorInfo {
	info := ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Message:    ErrInternalServerError.Key,
	}

	var httpErr HTTPError
	switch {
	case mapped(err, mappers, &httpErr), errors.As(err, &httpErr):
		info.StatusCode = httpErr.Code
		info.Message = httpErr.Key
	case errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrUnsupportedMediaType),
		errors.Is(err, binder.ErrBodyTooLarge):
		info.StatusCode = http.StatusBadRequest
		info.Message = "Invalid JSON body"
	}

	info.LogLevel = slog.LevelError
	if info.StatusCode < http.StatusInternalServerError {
		info.LogLevel = slog.LevelWarn
	}
	return info
}

func mapped(err error, mappers []ErrorMapper, out *HTTPError) bool {
	for _, m := range mappers {
		if he, ok := m(err); ok {
			*out = he
			return true
		}
	}
	return false
}

type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// NewErrorHandler returns an ErrorHandler that logs err and writes a JSON
// {"ok": false, "error": message} body. Mappers are consulted in order before
// the default classification.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx Context, err error) {
		r := ctx.Request()
		info := Classify(err, mappers...)

		log.LogAttrs(r.Context(), info.LogLevel, "request failed",
			logger.Component("http"),
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Status(info.StatusCode),
			logger.Error(err),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		resp := JSON(errorBody{OK: false, Error: info.Message}, WithJSONStatus(info.StatusCode))
		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to write error response",
				logger.Component("http"),
				logger.Error(renderErr),
			)
		}
	}
}
