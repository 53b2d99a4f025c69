// Package app wires the marketplace components into servers.
package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/marketplace/internal/cache"
	"github.com/abgdnv/marketplace/internal/config"
	"github.com/abgdnv/marketplace/internal/service"
	"github.com/abgdnv/marketplace/internal/store"
	grpcImpl "github.com/abgdnv/marketplace/internal/transport/grpc"
	"github.com/abgdnv/marketplace/internal/transport/rest"
	"github.com/abgdnv/marketplace/pkg/auth"
	"github.com/abgdnv/marketplace/pkg/messaging"
	"github.com/abgdnv/marketplace/pkg/server"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

// Infrastructure carries the clients created at startup. Cache and Publisher may be nil.
type Infrastructure struct {
	Store     store.Store
	Cache     cache.CatalogCache
	Publisher messaging.Publisher
	Authority *auth.HMACAuthority
	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	// BcryptCost overrides the password hashing cost when positive.
	BcryptCost int
}

type Dependencies struct {
	Store            store.Store
	CatalogService   service.CatalogService
	AccountService   service.AccountService
	FavoritesService service.FavoritesService
	Authority        *auth.HMACAuthority
	Metrics          http.Handler
	MetricsPath      string
	Logger           *slog.Logger
}

func SetupDependencies(infra Infrastructure, logger *slog.Logger) *Dependencies {
	var accountOpts []service.AccountsOption
	if infra.BcryptCost > 0 {
		accountOpts = append(accountOpts, service.WithBcryptCost(infra.BcryptCost))
	}
	return &Dependencies{
		Store:            infra.Store,
		CatalogService:   service.NewCatalogService(infra.Store, infra.Cache),
		AccountService:   service.NewAccountService(infra.Store, infra.Store, infra.Authority, accountOpts...),
		FavoritesService: service.NewFavoritesService(infra.Store, infra.Store, infra.Publisher),
		Authority:        infra.Authority,
		Metrics:          infra.Metrics,
		MetricsPath:      infra.MetricsPath,
		Logger:           logger,
	}
}

// SetupHttpHandler builds the traced HTTP handler with every route of the marketplace.
// Used by E2E tests to run the application in an httptest.Server.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "marketplace",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// wireRoutes sets up the HTTP routes for the marketplace application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(rest.Services{
		Catalog:   deps.CatalogService,
		Accounts:  deps.AccountService,
		Favorites: deps.FavoritesService,
	}, deps.Store, deps.Authority, deps.Logger)
	handler.RegisterRoutes(mux)

	if deps.Metrics != nil && deps.MetricsPath != "" {
		mux.Method(http.MethodGet, deps.MetricsPath, deps.Metrics)
	}
}

// SetupHttpServer creates and configures an HTTP server for the marketplace application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(server.FromConfig(cfg.HTTPServer), SetupHttpHandler(deps))
}

// SetupGrpcServer initializes the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, cfg *config.Config) *grpc.Server {
	health := grpcImpl.NewHealthServer(deps.Store, healthTimeout(cfg), deps.Logger)
	return server.NewGRPCServer(deps.Logger, cfg.GRPC.ReflectionEnabled, health.Register)
}

func healthTimeout(cfg *config.Config) time.Duration {
	if cfg.Database.Timeout > 0 {
		return cfg.Database.Timeout
	}
	return 2 * time.Second
}
