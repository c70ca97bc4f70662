package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/skafferi/internal/api"
	"github.com/cognicore/skafferi/pkg/skafferi"
	"github.com/cognicore/skafferi/pkg/skafferi/config"
	"github.com/cognicore/skafferi/pkg/skafferi/normalize"
	"github.com/cognicore/skafferi/pkg/skafferi/store/sqlite"
)

func main() {
	configFile := flag.String("config", "", "server config file (yaml)")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skafferi-server: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skafferi-server: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *serverConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := (&config.Loader{EnginePath: cfg.Engine.ConfigPath, CatalogPath: cfg.Engine.CatalogPath}).Load()
	if err != nil {
		return err
	}

	st, err := sqlite.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	if comps.Catalog != nil {
		res, err := config.Seed(ctx, st, comps.Catalog, normalize.NewFromString(comps.Engine.Locale))
		if err != nil {
			st.Close()
			return fmt.Errorf("seed catalog: %w", err)
		}
		log.Info("catalog seeded",
			zap.String("path", cfg.Engine.CatalogPath),
			zap.Int("foods", res.Foods),
			zap.Int("aliases", res.Aliases),
			zap.Int("units", res.Units))
	}

	eng, err := skafferi.New(skafferi.Options{Store: st, Config: comps.Engine, Logger: log.Named("engine")})
	if err != nil {
		st.Close()
		return err
	}
	defer eng.Close()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(eng, log.Named("http"), api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RateLimit:      cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newLogger builds a production JSON logger at level, or a development
// logger for "debug".
func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
