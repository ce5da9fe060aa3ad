package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anirudhsk/prepsprint/internal/auth"
	"github.com/anirudhsk/prepsprint/internal/config"
)

// Deps carries the handler groups the API server exposes.
type Deps struct {
	Verifier  *auth.Verifier
	Sessions  *SessionHandlers
	Questions *QuestionHandlers
	Admin     *AdminHandlers
}

// NewHTTPServer wires all API routes: health, metrics, practice sessions,
// question fetch, and the admin generation endpoints.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, deps Deps) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, rdb); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	if deps.Questions != nil {
		mux.HandleFunc("GET /v1/taxonomy", deps.Questions.ListTaxonomy)
		mux.Handle("POST /v1/questions/batch", auth.RequireAuth(http.HandlerFunc(deps.Questions.FetchBatch)))
	}

	if deps.Sessions != nil {
		requireAuth := func(h http.HandlerFunc) http.Handler {
			return auth.RequireAuth(h)
		}
		mux.Handle("POST /v1/sessions", requireAuth(deps.Sessions.Start))
		mux.Handle("GET /v1/sessions/{id}", requireAuth(deps.Sessions.Snapshot))
		mux.Handle("POST /v1/sessions/{id}/answer", requireAuth(deps.Sessions.SubmitAnswer))
		mux.Handle("POST /v1/sessions/{id}/continue", requireAuth(deps.Sessions.Continue))
		mux.Handle("POST /v1/sessions/{id}/try-similar", requireAuth(deps.Sessions.TrySimilar))
		mux.Handle("POST /v1/sessions/{id}/difficulty", requireAuth(deps.Sessions.SetDifficulty))
		mux.Handle("POST /v1/sessions/{id}/finalize", requireAuth(deps.Sessions.Finalize))
	}

	if deps.Admin != nil {
		mux.HandleFunc("POST /v1/generate-question", deps.Admin.GenerateQuestion)
		mux.HandleFunc("POST /v1/generate-batch", deps.Admin.GenerateBatch)
		mux.HandleFunc("POST /v1/generate-tips", deps.Admin.GenerateTips)
		mux.HandleFunc("POST /v1/generate-diagram", deps.Admin.GenerateDiagram)
		mux.HandleFunc("POST /v1/enrich-questions-batch", deps.Admin.EnrichQuestions)
	}

	var handler http.Handler = mux
	if deps.Verifier != nil {
		handler = auth.Middleware(deps.Verifier, logger)(handler)
	}
	handler = RequestLog(logger)(handler)
	handler = CORS(cfg.CORS)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
