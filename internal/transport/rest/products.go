package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/abgdnv/marketplace/internal/service"
	"github.com/abgdnv/marketplace/pkg/web"
)

const (
	defaultPage  = 1
	defaultLimit = 5
	maxLimit     = 100
)

// ListProducts returns one page of the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := web.QueryInt(w, r, mLogger, "page", defaultPage, "page must be a positive integer", web.Gte(1))
	if !ok {
		return
	}
	limit, ok := web.QueryInt(w, r, mLogger, "limit", defaultLimit, "limit must be an integer between 1 and 100", web.Gte(1), web.Lte(maxLimit))
	if !ok {
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	mLogger.DebugContext(r.Context(), "Received request to list products", "page", page, "limit", limit, "search", search)
	list, err := h.catalog.List(r.Context(), service.ProductQuery{Page: page, Limit: limit, Search: search})
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list.Products), "total", list.Total)
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindProductByID retrieves a product by its ID.
func (h *Handler) FindProductByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger, "product")
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.catalog.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, marketerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, "Product not found")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.ProductCreateDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	dto.Normalize()
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, r, mLogger, err)
		return
	}

	created, err := h.catalog.Create(r.Context(), dto)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Title", created.Title)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// UpdateProduct applies a partial update. Only the catalog fields may be sent.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger, "product")
	if !ok {
		return
	}

	var dto service.ProductUpdateDto
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&dto); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding update body", "error", err)
		if strings.Contains(err.Error(), "unknown field") {
			web.RespondError(w, mLogger, http.StatusBadRequest, "Only title, price, description, image can be updated")
			return
		}
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if dto.Empty() {
		web.RespondError(w, mLogger, http.StatusBadRequest, "At least one field is required for update")
		return
	}
	dto.Normalize()
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, r, mLogger, err)
		return
	}

	updated, err := h.catalog.Update(r.Context(), id, dto)
	if err != nil {
		if errors.Is(err, marketerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found for update", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, "Product not found")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error updating product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to update product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteProduct removes a product. Favorites that reference it are left in place.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger, "product")
	if !ok {
		return
	}

	if err := h.catalog.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, marketerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found for deletion", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, "Product not found")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error deleting product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}
