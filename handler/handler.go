package handler

import "net/http"

// HandlerFunc handles a decoded request value R within context C.
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response renders itself to the writer.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind decodes the request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes the response for a failed request.
type ErrorHandler[C Context] func(ctx C, err error)

// WrapOption configures Wrap.
type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	binders        []Bind
	errorHandler   ErrorHandler[C]
	contextFactory func(http.ResponseWriter, *http.Request) C
}

// WithBinder appends a binder. Binders run in the order given.
func WithBinder[C Context, R any](b Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if b != nil {
			c.binders = append(c.binders, b)
		}
	}
}

// WithErrorHandler replaces the plain-text default error handler.
func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithContextFactory is required when C is not the default Context.
func WithContextFactory[C Context, R any](f func(http.ResponseWriter, *http.Request) C) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if f != nil {
			c.contextFactory = f
		}
	}
}

func plainErrorHandler[C Context](ctx C, err error) {
	info := Classify(err)
	http.Error(ctx.ResponseWriter(), info.Message, info.StatusCode)
}

// Wrap converts a typed HandlerFunc into an http.HandlerFunc.
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{
		errorHandler: plainErrorHandler[C],
		contextFactory: func(w http.ResponseWriter, r *http.Request) C {
			c, ok := NewContext(w, r).(C)
			if !ok {
				panic("handler: custom context type requires WithContextFactory")
			}
			return c
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := cfg.contextFactory(w, r)

		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				cfg.errorHandler(ctx, err)
				return
			}
		}

		resp := h(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
