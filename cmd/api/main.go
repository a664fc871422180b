package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"placement-optimizer/internal/allocation"
	"placement-optimizer/internal/api"
	"placement-optimizer/internal/config"
	"placement-optimizer/internal/data"
	"placement-optimizer/internal/frontier"
	"placement-optimizer/internal/logger"
	"placement-optimizer/internal/model"
	"placement-optimizer/internal/solver"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// settings are read from PLACEMENT_* environment variables.
type settings struct {
	Port            string
	Env             string
	ConfigFile      string
	AllowedOrigins  []string
	CacheTTL        time.Duration
	ProviderURL     string
	ProviderAPIKey  string
	SubmissionID    string
	ShutdownTimeout time.Duration
}

func loadSettings() settings {
	v := viper.New()
	v.SetEnvPrefix("PLACEMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("env", "production")
	v.SetDefault("config", "")
	v.SetDefault("cors_origins", "")
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("provider_url", "")
	v.SetDefault("provider_api_key", "")
	v.SetDefault("submission_id", "")
	v.SetDefault("shutdown_timeout", "10s")

	var origins []string
	for _, o := range strings.Split(v.GetString("cors_origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return settings{
		Port:            v.GetString("port"),
		Env:             v.GetString("env"),
		ConfigFile:      v.GetString("config"),
		AllowedOrigins:  origins,
		CacheTTL:        v.GetDuration("cache_ttl"),
		ProviderURL:     v.GetString("provider_url"),
		ProviderAPIKey:  v.GetString("provider_api_key"),
		SubmissionID:    v.GetString("submission_id"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}
}

func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	s := loadSettings()
	if err := run(s, log); err != nil {
		log.Fatalw("server stopped", "error", err)
	}
}

func run(s settings, log *zap.SugaredLogger) error {
	cfg := config.Default()
	if s.ConfigFile != "" {
		loaded, err := config.Load(s.ConfigFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(ctx, s, cfg, log)
	if err != nil {
		return err
	}
	log.Infow("catalog loaded", "quotes", cat.Len(), "layers", len(cat.Layers()), "carriers", len(cat.Carriers()))

	opt, err := allocation.New(cat, solver.New(cfg.SolverOptions()),
		allocation.WithLogger(log.Named("allocation")),
		allocation.WithDegeneracyGuard(cfg.DegeneracyGuard()),
	)
	if err != nil {
		return err
	}

	cache := data.NewResultCache(s.CacheTTL)
	go cache.Run(ctx, 5*time.Minute)

	if s.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Catalog:   cat,
		Optimizer: opt,
		Sweeper: &frontier.Explorer{
			Optimizer: opt,
			Workers:   cfg.Frontier.Workers,
			Log:       log.Named("frontier"),
		},
		Defaults:       cfg.Defaults,
		FrontierPoints: cfg.Frontier.Points,
		Cache:          cache,
		Log:            log.Named("http"),
		AllowedOrigins: s.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infow("starting API server", "addr", srv.Addr, "env", s.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadCatalog prefers a remote submission when one is configured, then the
// config's catalog file, then the built-in sample market.
func loadCatalog(ctx context.Context, s settings, cfg *config.Config, log *zap.SugaredLogger) (*model.Catalog, error) {
	if s.SubmissionID != "" {
		client := data.NewQuoteProviderClient(s.ProviderAPIKey, s.ProviderURL, log.Named("provider"))
		cf, err := client.FetchSubmission(ctx, s.SubmissionID)
		if err != nil {
			return nil, fmt.Errorf("fetch submission %s: %w", s.SubmissionID, err)
		}
		return cf.Catalog(cfg.ModelLayers())
	}
	return cfg.LoadCatalog()
}
