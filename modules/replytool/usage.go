package replytool

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/replyflow/handler"
	"github.com/dmitrymomot/replyflow/pkg/binder"
	"github.com/dmitrymomot/replyflow/pkg/usage"
)

// UsageReader loads the bundle shown in the UI usage bars.
type UsageReader interface {
	GetUsageBundle(ctx context.Context, userID string) (usage.Bundle, error)
}

// UsageRequest is the body of POST /api/usage.
type UsageRequest struct {
	UserID string `json:"userId"`
}

// UsageResponse is the 200 body of POST /api/usage.
type UsageResponse struct {
	OK bool `json:"ok"`
	usage.Bundle
}

type UsageService struct {
	usage        UsageReader
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewUsageService(r UsageReader, errorHandler handler.ErrorHandler[handler.Context]) *UsageService {
	return &UsageService{usage: r, errorHandler: errorHandler}
}

func (s *UsageService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/", handler.Wrap(s.query,
		handler.WithBinder[handler.Context, UsageRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, UsageRequest](s.errorHandler),
	))
	return r
}

func (s *UsageService) query(ctx handler.Context, req UsageRequest) handler.Response {
	if req.UserID == "" {
		return handler.Fail(errMissingUsageUserID)
	}
	bundle, err := s.usage.GetUsageBundle(ctx, req.UserID)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(UsageResponse{OK: true, Bundle: bundle})
}
