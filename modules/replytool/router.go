package replytool

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/replyflow/pkg/httpserver"
	"github.com/dmitrymomot/replyflow/pkg/logger"
	"github.com/dmitrymomot/replyflow/pkg/requestid"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures what Router mounts. Nil services are skipped.
type RouterOptions struct {
	Script Mountable
	Usage  Mountable

	// Readiness checks for GET /health/ready, keyed by dependency name.
	Readiness    map[string]httpserver.Check
	ReadyTimeout time.Duration

	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler

	Logger *slog.Logger
}

// Router builds the service's root handler.
//
//	r := replytool.Router(replytool.RouterOptions{
//		Script:  replytool.NewScriptService(gate, errHandler),
//		Usage:   replytool.NewUsageService(usageSvc, errHandler),
//		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
//	})
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(log))

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, opts.ReadyTimeout, opts.Readiness))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		if opts.Script != nil {
			api.Mount("/script", opts.Script.Handle())
		}
		if opts.Usage != nil {
			api.Mount("/usage", opts.Usage.Handle())
		}
	})

	return r
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.DebugContext(r.Context(), "request served",
				logger.Component("http"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				logger.Status(ww.Status()),
				logger.Duration(time.Since(start)),
			)
		})
	}
}
