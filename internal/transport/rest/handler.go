// Package rest provides the HTTP API of the marketplace.
package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/abgdnv/marketplace/internal/service"
	"github.com/abgdnv/marketplace/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Pinger reports whether the backing storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the business services served over HTTP.
type Services struct {
	Catalog   service.CatalogService
	Accounts  service.AccountService
	Favorites service.FavoritesService
}

type Handler struct {
	catalog   service.CatalogService
	accounts  service.AccountService
	favorites service.FavoritesService
	readiness Pinger
	verifier  web.SubjectVerifier
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewHandler creates the HTTP handler. verifier resolves bearer credentials on protected routes.
func NewHandler(services Services, readiness Pinger, verifier web.SubjectVerifier, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:   services.Catalog,
		accounts:  services.Accounts,
		favorites: services.Favorites,
		readiness: readiness,
		verifier:  verifier,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the marketplace.
func (h *Handler) RegisterRoutes(r chi.Router) {
	authenticated := web.Authenticate(h.verifier, h.logger)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.With(authenticated).Post("/", h.CreateProduct)
		r.With(authenticated).Post("/favorite/{id}", h.ToggleFavorite)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindProductByID)
			r.With(authenticated).Put("/", h.UpdateProduct)
			r.With(authenticated).Delete("/", h.DeleteProduct)
		})
	})

	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadinessCheck)
}

// HealthCheck is a simple liveness endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReadinessCheck answers 200 only while the store is reachable.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.readiness.Ping(r.Context()); err != nil {
		mLogger := h.loggerWithReqID(r)
		mLogger.WarnContext(r.Context(), "Store is not reachable", "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
