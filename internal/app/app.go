package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anirudhsk/prepsprint/internal/auth"
	"github.com/anirudhsk/prepsprint/internal/config"
	"github.com/anirudhsk/prepsprint/internal/db/repository"
	"github.com/anirudhsk/prepsprint/internal/diagram"
	"github.com/anirudhsk/prepsprint/internal/genpipe"
	"github.com/anirudhsk/prepsprint/internal/llm"
	"github.com/anirudhsk/prepsprint/internal/logging"
	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/question/contentfilter"
	"github.com/anirudhsk/prepsprint/internal/server"
	"github.com/anirudhsk/prepsprint/internal/session"
	"github.com/anirudhsk/prepsprint/internal/session/scoring"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server)
// and the background workers around the question pipeline.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	engine         *session.Engine
	prefetchWorker *question.PrefetchWorker
	diagramWorker  *diagram.Worker
}

// New bootstraps config, logger, Postgres, Redis, the LLM pipeline and
// the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	catalog := taxonomy.Default()
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	llmClient, err := llm.NewClient(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("initialize llm client: %w", err)
	}

	pipeline := genpipe.NewGenerator(llmClient, genpipe.Config{
		Verify:         cfg.AI.Verify,
		VerifyParallel: cfg.AI.VerifyParallel,
		MaxTokens:      cfg.AI.MaxTokens,
		Temperature:    cfg.AI.Temperature,
	}, logger)

	filter := contentfilter.New(contentfilter.DefaultRules(), logger)
	questionCache := question.NewCache(redisClient, cfg.Practice.CacheTTL)
	questionSvc := question.NewService(
		questionRepo,
		questionCache,
		genpipe.NewPoolGenerator(pipeline, catalog),
		filter,
		catalog,
		logger,
	)

	prefetchQueue := make(chan question.BatchRequest, 32)
	prefetchWorker := question.NewPrefetchWorker(questionSvc, prefetchQueue, logger, cfg.Practice.QuestionFetchTimeout)

	stateMgr := session.NewStateManager(redisClient, cfg.Practice.SessionStateTTL, logger)
	engine := session.NewEngine(
		questionSvc,
		sessionRepo,
		stateMgr,
		scoring.NewEngine(scoring.DefaultRules()),
		catalog,
		session.Config{
			BatchSize:         cfg.Practice.DefaultBatchSize,
			PrefetchThreshold: cfg.Practice.PrefetchThreshold,
			AdvanceDelay:      cfg.Practice.AdvanceDelay,
			FetchTimeout:      cfg.Practice.QuestionFetchTimeout,
		},
		logger,
	)
	// The engine warms upcoming batches through the worker so the cache
	// is hot before a session crosses a batch boundary.
	engine.SetPrefetchQueue(prefetchQueue)

	// Diagrams need both an image provider and a blob store; skip the
	// whole concern when either is unconfigured.
	var diagramSvc *diagram.Service
	var diagramWorker *diagram.Worker
	if cfg.Storage.Endpoint != "" && cfg.AI.OpenAIKey != "" {
		blobStore, err := diagram.NewMinioStore(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("initialize blob store: %w", err)
		}
		renderer := diagram.NewOpenAIRenderer(cfg.AI.OpenAIKey, "")
		diagramSvc = diagram.NewService(renderer, blobStore, questionRepo, logger)

		diagramQueue := make(chan diagram.Request, 32)
		diagramWorker = diagram.NewWorker(diagramSvc, diagramQueue, logger, 0)

		// Fire-and-forget: questions ship immediately and their diagrams
		// patch in whenever the worker gets to them.
		questionSvc.SetDiagramNotify(func(q question.Question) {
			select {
			case diagramQueue <- diagram.Request{QuestionUUID: q.UUID, VisualDescription: q.VisualDescription}:
			default:
				logger.Warn().Str("question", q.UUID).Msg("diagram queue full, skipping")
			}
		})
	} else {
		logger.Warn().Msg("diagram generation disabled (storage or OpenAI key unconfigured)")
	}

	verifier := auth.NewVerifier([]byte(cfg.Security.JWTSecret), "")

	var diagramGen server.DiagramGenerator
	if diagramSvc != nil {
		diagramGen = diagramSvc
	}

	deps := server.Deps{
		Verifier:  verifier,
		Sessions:  server.NewSessionHandlers(engine, logger),
		Questions: server.NewQuestionHandlers(questionSvc, catalog, logger),
		Admin:     server.NewAdminHandlers(pipeline, questionRepo, diagramGen, catalog, logger),
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, deps)

	return &Application{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		http:           apiServer,
		engine:         engine,
		prefetchWorker: prefetchWorker,
		diagramWorker:  diagramWorker,
	}, nil
}

// Run starts the HTTP server and workers, then waits for termination.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.prefetchWorker.Run()
	if a.diagramWorker != nil {
		go a.diagramWorker.Run()
	}

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.engine.Stop()
	a.prefetchWorker.Stop()
	if a.diagramWorker != nil {
		a.diagramWorker.Stop()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
