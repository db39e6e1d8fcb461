package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"radrush-quiz-service/internal/app"
	"radrush-quiz-service/internal/logging"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter wires the REST endpoints, metrics and the websocket entry point.
func NewRouter(service *app.QuizService, ws *WSHandler, opts RouterOptions) http.Handler {
	api := &API{service: service, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", api.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(90 * time.Second))
		r.Get("/leaderboard", api.handleLeaderboard)
		r.Get("/players/{name}/eligibility", api.handleEligibility)
		r.Post("/questions/generate", api.handleGenerate)
	})
	return r
}

// requestLogger logs each request and puts a request-scoped logger in the context.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			logger := base.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("remote_addr", r.RemoteAddr).
					Msg("http request")
			}()

			next.ServeHTTP(ww, r.WithContext(logging.IntoContext(r.Context(), logger)))
		})
	}
}
