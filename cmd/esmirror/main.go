package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/esmirror/esmirror/internal/backoff"
	"github.com/esmirror/esmirror/internal/config"
	"github.com/esmirror/esmirror/internal/domain"
	"github.com/esmirror/esmirror/internal/enrich"
	"github.com/esmirror/esmirror/internal/es"
	"github.com/esmirror/esmirror/internal/gateway"
	"github.com/esmirror/esmirror/internal/indexer"
	logpkg "github.com/esmirror/esmirror/internal/logger"
	"github.com/esmirror/esmirror/internal/metrics"
	"github.com/esmirror/esmirror/internal/registry"
	redisSource "github.com/esmirror/esmirror/internal/source/redis"
	"github.com/esmirror/esmirror/internal/syncer"
	"github.com/esmirror/esmirror/internal/transport/httpapi"
	"github.com/esmirror/esmirror/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting esmirror daemon",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("search_host", cfg.Search.Host),
		zap.Int("search_port", cfg.Search.Port),
		zap.Strings("source_addrs", cfg.Source.Addrs),
	)

	// Primary-store record source
	source, err := redisSource.NewSource(redisSource.Config{
		Addrs:     cfg.Source.Addrs,
		Username:  cfg.Source.Username,
		Password:  cfg.Source.Password,
		DB:        cfg.Source.DB,
		KeyPrefix: cfg.Source.KeyPrefix,
	})
	if err != nil {
		logger.Fatal("Failed to create record source", zap.Error(err))
	}
	defer source.Close()

	ctx := context.Background()
	if err := source.WaitForReady(ctx, time.Duration(cfg.Source.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Record source not ready", zap.Error(err))
	}
	logger.Info("Connected to record source")

	// Register sync metrics explicitly (no init())
	metrics.RegisterMirrorMetrics()

	// Process-wide default connection options
	reg := registry.New()
	reg.Configure(domain.ConnOptions{
		Host:   cfg.Search.Host,
		Port:   cfg.Search.Port,
		Index:  cfg.Search.Index,
		Type:   cfg.Search.Type,
		Prefix: cfg.Search.Prefix,
	})

	retry := backoff.Config{
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Retry.MaxDelaySec) * time.Second,
		MaxAttempts: cfg.Retry.MaxAttempts,
	}
	transport := es.New(nil, retry, logger)

	idx := indexer.New(transport, reg, logger).
		WithListener(eventLogger(logger))
	if cfg.Embedding.APIKey != "" {
		idx = idx.WithEnricher(enrich.New(&enrich.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Fields:     cfg.Embedding.Fields,
			Logger:     logger,
		}))
		logger.Info("Embedding enrichment enabled",
			zap.String("model", cfg.Embedding.Model),
			zap.Strings("fields", cfg.Embedding.Fields),
		)
	}

	engine := syncer.New(idx, logger).WithInFlight(cfg.Sync.InFlight)
	gw := gateway.New(transport, reg, logger)

	collections := buildCollections(cfg)
	logger.Info("Collections registered", zap.Int("count", len(collections)))

	server := httpapi.New(
		engine, gw, idx,
		func(collection string) syncer.Cursor { return source.Records(collection) },
		collections,
		pingerFunc(func(c context.Context) error { return transport.Ping(c, mustResolve(reg)) }),
		source,
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildCollections converts configured schemas into registered collections
// with their field selections computed once.
func buildCollections(cfg config.Config) map[string]httpapi.Collection {
	out := make(map[string]httpapi.Collection, len(cfg.Collections))
	for name, sc := range cfg.Collections {
		schema := domain.Schema{Fields: toDomainFields(sc.Fields)}
		out[name] = httpapi.Collection{
			Fields: schema.IndexedFields(),
			Opts:   domain.ConnOptions{Index: sc.Index, Type: sc.Type},
		}
	}
	return out
}

func toDomainFields(fields []config.FieldConfig) []domain.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]domain.Field, len(fields))
	for i, f := range fields {
		out[i] = domain.Field{
			Name:    f.Name,
			NoIndex: f.NoIndex,
			Fields:  toDomainFields(f.Fields),
		}
	}
	return out
}

// eventLogger reports per-record notifications into the process log.
func eventLogger(logger *zap.Logger) domain.Listener {
	return domain.ListenerFunc(func(e domain.Event) {
		if e.Kind == domain.EventError {
			logger.Warn("record propagation failed",
				zap.String("collection", e.Collection),
				zap.String("id", e.ID),
				zap.Error(e.Err),
			)
			return
		}
		logger.Debug("record propagated",
			zap.String("kind", string(e.Kind)),
			zap.String("collection", e.Collection),
			zap.String("id", e.ID),
		)
	})
}

// mustResolve yields the default-addressed options for health probes.
func mustResolve(reg *registry.Registry) domain.ConnOptions {
	return reg.Defaults()
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// jsonRecoverer is a recovery middleware that returns JSON instead of a
// plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and
// propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if strings.HasPrefix(r.URL.Path, "/metrics") {
				return
			}
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
