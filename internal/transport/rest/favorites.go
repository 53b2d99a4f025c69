package rest

import (
	"errors"
	"net/http"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/abgdnv/marketplace/pkg/web"
)

// ToggleFavorite flips the product in the caller's favorite set and returns the whole set.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	productID, ok := web.ParseID(w, r, mLogger, "product")
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to toggle favorite", "userID", userID, "productID", productID)
	result, err := h.favorites.Toggle(r.Context(), userID, productID)
	if err != nil {
		switch {
		case errors.Is(err, marketerrors.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Product not found for favorite toggle", "productID", productID)
			web.RespondError(w, mLogger, http.StatusNotFound, "Product not found")
		case errors.Is(err, marketerrors.ErrInvalidArgument):
			web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid product id")
		case errors.Is(err, marketerrors.ErrUnauthorized):
			mLogger.WarnContext(r.Context(), "Credential does not map to a user", "userID", userID)
			web.RespondError(w, mLogger, http.StatusUnauthorized, web.UnauthorizedMessage)
		default:
			mLogger.ErrorContext(r.Context(), "Error toggling favorite", "productID", productID, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to toggle favorite")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Favorite toggled", "productID", productID, "count", len(result.Favorites))
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}
