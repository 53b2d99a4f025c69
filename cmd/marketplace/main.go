// Package main runs the marketplace server: catalog, accounts and favorites over HTTP,
// plus the optional gRPC health and pprof listeners.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/marketplace/internal/app"
	"github.com/abgdnv/marketplace/internal/cache"
	"github.com/abgdnv/marketplace/internal/config"
	"github.com/abgdnv/marketplace/internal/store"
	"github.com/abgdnv/marketplace/pkg/auth"
	"github.com/abgdnv/marketplace/pkg/bootstrap"
	"github.com/abgdnv/marketplace/pkg/config/configloader"
	"github.com/abgdnv/marketplace/pkg/messaging"
	natsclient "github.com/abgdnv/marketplace/pkg/nats"
	"github.com/abgdnv/marketplace/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "marketplace"

// shutdownFunc releases one piece of infrastructure when the process stops.
type shutdownFunc func(ctx context.Context) error

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, connects the infrastructure and serves until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	var shutdowns []shutdownFunc

	// create tracer provider
	if cfg.Telemetry.Traces.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			logger.Error("error creating tracer provider", slog.Any("error", err))
			return err
		}
		shutdowns = append(shutdowns, tracerProvider.Shutdown)
	}

	infra := app.Infrastructure{}
	if cfg.Telemetry.Metrics.Enabled {
		meterProvider, metricsHandler, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			logger.Error("error creating meter provider", slog.Any("error", err))
			return err
		}
		shutdowns = append(shutdowns, meterProvider.Shutdown)
		infra.Metrics = metricsHandler
		infra.MetricsPath = cfg.Telemetry.Metrics.Path
	}

	closeInfra, err := setupInfrastructure(ctx, logger, cfg, &infra)
	defer closeInfra()
	if err != nil {
		return err
	}

	deps := app.SetupDependencies(infra, logger)
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.GRPC.Enabled {
		grpcServer := app.SetupGrpcServer(deps, cfg)
		// Start the gRPC server
		g.Go(func() error {
			grpcAddr := ":" + cfg.GRPC.Port
			lis, err := net.Listen("tcp", grpcAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on gRPC port: %w", err)
			}
			logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
			return grpcServer.Serve(lis)
		})
		// gracefully shutdown gRPC server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down gRPC server...")
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
				logger.Info("gRPC server stopped gracefully.")
				return nil
			case <-time.After(cfg.Shutdown.Timeout):
				logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
				grpcServer.Stop()
				return fmt.Errorf("grpc server graceful stop timed out")
			}
		})
	}

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	// flush telemetry providers
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down telemetry providers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		var errs []error
		for _, shutdown := range shutdowns {
			errs = append(errs, shutdown(shutdownCtx))
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("failed to shutdown telemetry: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// setupInfrastructure fills infra with the store, credential authority, catalog cache and event publisher.
// The returned func closes every client that was opened, even when an error is returned.
func setupInfrastructure(ctx context.Context, logger *slog.Logger, cfg *config.Config, infra *app.Infrastructure) (func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		if cfg.Database.Migrate {
			if err := store.Migrate(cfg.Database.URL); err != nil {
				return closeAll, fmt.Errorf("failed to apply migrations: %w", err)
			}
			logger.Info("Database migrations applied")
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return closeAll, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		closers = append(closers, dbPool.Close)
		logger.Info("Successfully connected to the database!")
		infra.Store = store.NewPgStore(dbPool)
	default:
		memory := store.NewMemoryStore()
		if err := store.Seed(ctx, memory, store.DemoProducts...); err != nil {
			return closeAll, fmt.Errorf("failed to seed in-memory store: %w", err)
		}
		logger.Warn("Using in-memory store, data is lost on restart", slog.Int("products", len(store.DemoProducts)))
		infra.Store = memory
	}

	authority, err := auth.NewHMACAuthority(cfg.Token)
	if err != nil {
		return closeAll, fmt.Errorf("failed to create token authority: %w", err)
	}
	infra.Authority = authority

	if cfg.Redis.Enabled {
		rdb, err := bootstrap.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return closeAll, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		infra.Cache = cache.NewRedisCatalogCache(rdb, cfg.Redis.TTL, logger)
		logger.Info("Catalog cache enabled", slog.String("addr", cfg.Redis.Addr))
	}

	if cfg.Nats.Enabled {
		nc, err := natsclient.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return closeAll, err
		}
		closers = append(closers, nc.Close)
		js, err := natsclient.NewJetStreamContext(nc)
		if err != nil {
			return closeAll, err
		}
		if err := natsclient.EnsureStream(ctx, js, cfg.Nats.Stream, messaging.FavoritesSubjects); err != nil {
			return closeAll, err
		}
		infra.Publisher = natsclient.NewNatsPublisher(js)
		logger.Info("Favorite events enabled", slog.String("stream", cfg.Nats.Stream))
	}

	return closeAll, nil
}
