package rest

import (
	"errors"
	"net/http"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/abgdnv/marketplace/internal/service"
	"github.com/abgdnv/marketplace/pkg/web"
)

// Register creates an account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.RegisterDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	dto.Normalize()
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, r, mLogger, err)
		return
	}

	registered, err := h.accounts.Register(r.Context(), dto)
	if err != nil {
		if errors.Is(err, marketerrors.ErrEmailTaken) {
			mLogger.WarnContext(r.Context(), "Email already registered")
			web.RespondError(w, mLogger, http.StatusConflict, "Email already registered")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error registering user", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to register user")
		return
	}
	mLogger.InfoContext(r.Context(), "User registered", "userID", registered.UserID)
	web.RespondJSON(w, mLogger, http.StatusCreated, registered)
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.LoginDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	dto.Normalize()
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, r, mLogger, err)
		return
	}

	token, err := h.accounts.Login(r.Context(), dto)
	if err != nil {
		if errors.Is(err, marketerrors.ErrInvalidCredentials) {
			mLogger.WarnContext(r.Context(), "Rejected login")
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error logging in", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to log in")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, token)
}

// Me describes the authenticated user including the authoritative favorite set.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}

	profile, err := h.accounts.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, marketerrors.ErrUserNotFound) {
			mLogger.WarnContext(r.Context(), "User not found", "userID", userID)
			web.RespondError(w, mLogger, http.StatusNotFound, "User not found")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving user", "userID", userID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, profile)
}
