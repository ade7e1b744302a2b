package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/careline/clinic-agent/agent/driver"
	"github.com/careline/clinic-agent/agent/httpapi"
	"github.com/careline/clinic-agent/agent/intent"
	"github.com/careline/clinic-agent/agent/prompt"
	"github.com/careline/clinic-agent/agent/schedule"
	"github.com/careline/clinic-agent/agent/session"
	"github.com/careline/clinic-agent/agent/tool"
	configx "github.com/careline/clinic-agent/pkg/config"
	llmx "github.com/careline/clinic-agent/pkg/llm"
	_ "github.com/careline/clinic-agent/pkg/logger/autoload"
	"github.com/careline/clinic-agent/pkg/metrics"
	"github.com/careline/clinic-agent/pkg/notify"
)

type AppConfig struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	DatabaseURL     string        `envconfig:"DATABASE_URL" split_words:"true"`
	DefaultDoctor   string        `envconfig:"DEFAULT_DOCTOR" split_words:"true"`
	SessionMaxTurns int           `envconfig:"SESSION_MAX_TURNS" split_words:"true" default:"20"`
	ModelTimeout    time.Duration `envconfig:"MODEL_TIMEOUT" split_words:"true" default:"45s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("OPENAI")
	notifyCfg := configx.MustNew[notify.Config]("NOTIFY")

	store := newScheduleStore(ctx, appCfg.DatabaseURL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	notifier := notify.NewService(*notifyCfg, log.Logger)
	tools := tool.NewRegistry(tool.Deps{Store: store, Notifier: notifier})
	dispatcher := tool.NewDispatcher(tools, log.Logger, m)
	responder := intent.NewResponder(dispatcher, appCfg.DefaultDoctor, nil)
	sessions := session.NewStore(session.WithMaxTurns(appCfg.SessionMaxTurns))

	opts := []driver.Option{
		driver.WithMetrics(m),
		driver.WithModelTimeout(appCfg.ModelTimeout),
	}
	if client := llmx.NewClient(*llmCfg); client != nil {
		opts = append(opts, driver.WithModel(client, prompt.System()))
		log.Info().Str("model", llmCfg.Model).Msg("model client configured")
	} else {
		log.Warn().Msg("no model API key configured, running rule-based only")
	}
	d := driver.New(sessions, dispatcher, responder, log.Logger, opts...)

	router := httpapi.Router(
		httpapi.NewHandler(d, log.Logger),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)

	srv := &http.Server{
		Addr:              appCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", appCfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// newScheduleStore prefers Postgres when a DSN is configured and falls back
// to the seeded in-memory store for local runs.
func newScheduleStore(ctx context.Context, dsn string) schedule.Store {
	if dsn == "" {
		log.Info().Msg("no DATABASE_URL, using in-memory schedule store")
		return schedule.NewMemoryStore()
	}

	store, err := schedule.NewPostgresStore(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres store init failed")
	}
	if err := store.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres schema init failed")
	}
	log.Info().Msg("postgres schedule store ready")
	return store
}
