package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/abgdnv/marketplace/internal/store"
	"github.com/abgdnv/marketplace/pkg/auth"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccountService registers users, logs them in and describes the current user.
type AccountService interface {
	// Register creates an account with an empty favorite set.
	// req must already be normalized and validated.
	// Returns ErrEmailTaken if the email is already registered.
	Register(ctx context.Context, req RegisterDto) (*RegisteredDto, error)

	// Login exchanges credentials for a bearer token. req must already be normalized.
	// Returns ErrInvalidCredentials for an unknown email and for a wrong password alike.
	Login(ctx context.Context, req LoginDto) (*TokenDto, error)

	// Me returns the profile and the authoritative favorite set of the user.
	// Returns ErrUserNotFound if the account no longer exists.
	Me(ctx context.Context, userID uuid.UUID) (*ProfileDto, error)
}

// RegisterDto represents the registration payload.
type RegisterDto struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Normalize trims the name and lower-cases the email. The password is kept verbatim.
func (d *RegisterDto) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = normalizeEmail(d.Email)
}

// LoginDto represents the login payload.
type LoginDto struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize lower-cases the email.
func (d *LoginDto) Normalize() {
	d.Email = normalizeEmail(d.Email)
}

// RegisteredDto is returned after a successful registration.
type RegisteredDto struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// TokenDto carries a freshly issued bearer token.
type TokenDto struct {
	Token string `json:"token"`
}

// ProfileDto describes the authenticated user.
type ProfileDto struct {
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Favorites []uuid.UUID `json:"favorites"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Accounts implements AccountService.
type Accounts struct {
	users     store.UserStore
	favorites store.FavoriteStore
	issuer    auth.Issuer
	cost      int
	// dummyHash is compared against when the email is unknown so both failures cost the same.
	dummyHash []byte
}

// AccountsOption customizes Accounts.
type AccountsOption func(*Accounts)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) AccountsOption {
	return func(a *Accounts) {
		a.cost = cost
	}
}

// NewAccountService creates an account service that signs tokens with issuer.
func NewAccountService(users store.UserStore, favorites store.FavoriteStore, issuer auth.Issuer, opts ...AccountsOption) *Accounts {
	a := &Accounts{
		users:     users,
		favorites: favorites,
		issuer:    issuer,
		cost:      bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("marketplace-placeholder"), a.cost)
	if err != nil {
		panic(fmt.Sprintf("failed to prepare placeholder hash: %v", err))
	}
	a.dummyHash = hash
	return a
}

func (s *Accounts) Register(ctx context.Context, req RegisterDto) (*RegisteredDto, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, store.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", req.Email, err)
	}

	return &RegisteredDto{Message: "User registered", UserID: user.ID.String()}, nil
}

func (s *Accounts) Login(ctx context.Context, req LoginDto) (*TokenDto, error) {
	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, marketerrors.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
			return nil, marketerrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, marketerrors.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &TokenDto{Token: token}, nil
}

func (s *Accounts) Me(ctx context.Context, userID uuid.UUID) (*ProfileDto, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	favorites, err := s.favorites.Favorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}
	return &ProfileDto{Name: user.Name, Email: user.Email, Favorites: favorites}, nil
}
