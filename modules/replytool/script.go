package replytool

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/replyflow/handler"
	"github.com/dmitrymomot/replyflow/pkg/binder"
	"github.com/dmitrymomot/replyflow/pkg/quota"
	"github.com/dmitrymomot/replyflow/pkg/usage"
)

// Gate is the quota gate used by the action endpoint.
type Gate interface {
	Handle(ctx context.Context, userID, action string, payload json.RawMessage) (quota.Result, error)
}

// ScriptRequest is the body of POST /api/script.
type ScriptRequest struct {
	UserID  string          `json:"userId"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// LimitReachedResponse is the 402 body.
type LimitReachedResponse struct {
	OK      bool         `json:"ok"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Plan    usage.Tier   `json:"plan"`
	Usage   usage.Record `json:"usage"`
	Limits  usage.Limits `json:"limits"`
}

type ScriptService struct {
	gate         Gate
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewScriptService(gate Gate, errorHandler handler.ErrorHandler[handler.Context]) *ScriptService {
	return &ScriptService{gate: gate, errorHandler: errorHandler}
}

func (s *ScriptService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/", handler.Wrap(s.script,
		handler.WithBinder[handler.Context, ScriptRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, ScriptRequest](s.errorHandler),
	))
	return r
}

func (s *ScriptService) script(ctx handler.Context, req ScriptRequest) handler.Response {
	res, err := s.gate.Handle(ctx, req.UserID, req.Action, req.Payload)

	var limitErr *quota.LimitError
	switch {
	case errors.As(err, &limitErr):
		return handler.JSON(LimitReachedResponse{
			OK:      false,
			Code:    "LIMIT_REACHED",
			Message: limitErr.Message(),
			Plan:    limitErr.Bundle.Tier,
			Usage:   limitErr.Bundle.Usage,
			Limits:  limitErr.Bundle.Limits,
		}, handler.WithJSONStatus(http.StatusPaymentRequired))
	case err != nil:
		return handler.Fail(err)
	case res.Passthrough():
		return handler.Raw(res.Status, res.ContentType, res.Body)
	default:
		return handler.JSON(res.Fields, handler.WithJSONStatus(res.Status))
	}
}
