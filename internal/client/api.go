// Package client is the consumer side of the marketplace API: an HTTP client, the optimistic
// favorites controller and the login session that owns it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/abgdnv/marketplace/pkg/client/resilience"
	"github.com/abgdnv/marketplace/pkg/config"
)

// DefaultTimeout bounds every request. Hitting it counts as a failed request.
const DefaultTimeout = 12 * time.Second

const fallbackMessage = "Request failed"

var (
	// ErrTimeout is returned when the server did not answer within the request timeout.
	ErrTimeout = errors.New("network timeout")
	// ErrNetwork is returned when the request could not be delivered.
	ErrNetwork = errors.New("network request failed")
)

// APIError is a non-2xx answer from the server. Message is the server's message, or a generic one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Product is a catalog entry as served by the API.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

// ProductPage is one page of the catalog.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
}

// Profile is the answer of GET /auth/me.
type Profile struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Favorites []string `json:"favorites"`
}

// Registration is the answer of POST /auth/register.
type Registration struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type favoritesResponse struct {
	Favorites []string `json:"favorites"`
}

type errorResponse struct {
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	ValidationErrors map[string]string `json:"validation_errors"`
}

// APIClient talks JSON to the marketplace. Requests go through a circuit breaker.
type APIClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// Option customizes an APIClient.
type Option func(*APIClient)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *APIClient) {
		c.timeout = timeout
	}
}

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(cfg config.CircuitBreakerConfig) Option {
	return func(c *APIClient) {
		c.httpClient.Transport = &resilience.Transport{
			Base:    http.DefaultTransport,
			Breaker: resilience.NewCircuitBreaker("marketplace-api", cfg),
		}
	}
}

// NewAPIClient creates a client for the API rooted at baseURL.
func NewAPIClient(baseURL string, opts ...Option) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		httpClient: &http.Client{
			Transport: &resilience.Transport{
				Base:    http.DefaultTransport,
				Breaker: resilience.NewCircuitBreaker("marketplace-api", config.DefaultCircuitBreaker()),
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *APIClient) Register(ctx context.Context, name, email, password string) (*Registration, error) {
	var out Registration
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login returns a bearer token for the credentials.
func (c *APIClient) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *APIClient) Me(ctx context.Context, token string) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	if out.Favorites == nil {
		out.Favorites = []string{}
	}
	return &out, nil
}

func (c *APIClient) Products(ctx context.Context, page, limit int, search string) (*ProductPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("search", search)
	var out ProductPage
	if err := c.do(ctx, http.MethodGet, "/products?"+query.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Product(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleFavorite flips productID server side and returns the authoritative set.
func (c *APIClient) ToggleFavorite(ctx context.Context, token, productID string) ([]string, error) {
	var out favoritesResponse
	if err := c.do(ctx, http.MethodPost, "/products/favorite/"+url.PathEscape(productID), token, struct{}{}, &out); err != nil {
		return nil, err
	}
	if out.Favorites == nil {
		out.Favorites = []string{}
	}
	return out.Favorites, nil
}

func (c *APIClient) do(ctx context.Context, method, path, token string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: check backend at %s", ErrTimeout, c.baseURL)
		}
		return fmt.Errorf("%w: check backend at %s: %w", ErrNetwork, c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: check backend at %s", ErrTimeout, c.baseURL)
		}
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the human readable message of an error body.
func errorMessage(raw []byte) string {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return fallbackMessage
	}
	switch {
	case body.Error != "":
		return body.Error
	case body.Message != "":
		return body.Message
	case len(body.ValidationErrors) > 0:
		fields := make([]string, 0, len(body.ValidationErrors))
		for field, rule := range body.ValidationErrors {
			fields = append(fields, field+" "+rule)
		}
		slices.Sort(fields)
		return "Invalid input: " + strings.Join(fields, "; ")
	default:
		return fallbackMessage
	}
}
