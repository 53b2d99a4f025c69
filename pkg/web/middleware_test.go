package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockVerifier is a mock implementation of SubjectVerifier.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Subject(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.MustParse("123e4567-e89b-12d3-a456-426614174001")

	testCases := []struct {
		name               string
		authHeader         string
		setupMock          func(m *MockVerifier)
		expectedStatusCode int
		shouldCallNext     bool
	}{
		{
			name:       "Success - valid bearer token",
			authHeader: "Bearer valid-token",
			setupMock: func(m *MockVerifier) {
				m.On("Subject", mock.Anything, "valid-token").Return(userID, nil)
			},
			expectedStatusCode: http.StatusOK,
			shouldCallNext:     true,
		},
		{
			name:               "Failure - no auth header",
			setupMock:          func(m *MockVerifier) {},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "Failure - not a bearer token",
			authHeader:         "Basic some-credentials",
			setupMock:          func(m *MockVerifier) {},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "Failure - empty bearer token",
			authHeader:         "Bearer   ",
			setupMock:          func(m *MockVerifier) {},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "Failure - verifier rejects token",
			authHeader: "Bearer expired-token",
			setupMock: func(m *MockVerifier) {
				m.On("Subject", mock.Anything, "expired-token").Return(uuid.Nil, errors.New(`"exp" not satisfied`))
			},
			expectedStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			verifier := new(MockVerifier)
			tc.setupMock(verifier)
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				got, ok := UserIDFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, userID, got)
				w.WriteHeader(http.StatusOK)
			})
			handler := Authenticate(verifier, discardLogger())(next)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()

			// when
			handler.ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			assert.Equal(t, tc.shouldCallNext, nextCalled)
			if !tc.shouldCallNext {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String(), "rejection reason must not leak")
			}
			verifier.AssertExpectations(t)
		})
	}
}

func TestQueryInt(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		expected int32
		ok       bool
	}{
		{name: "missing uses default", query: "", expected: 5, ok: true},
		{name: "valid value", query: "?limit=20", expected: 20, ok: true},
		{name: "below lower bound", query: "?limit=0", ok: false},
		{name: "above upper bound", query: "?limit=101", ok: false},
		{name: "not a number", query: "?limit=abc", ok: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/products"+tc.query, nil)
			rr := httptest.NewRecorder()

			got, ok := QueryInt(rr, req, discardLogger(), "limit", 5, "limit must be an integer between 1 and 100", Gte(1), Lte(100))

			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, got)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.JSONEq(t, `{"error":"limit must be an integer between 1 and 100"}`, rr.Body.String())
		})
	}
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
}

func TestNotFound(t *testing.T) {
	rr := httptest.NewRecorder()

	NotFound(discardLogger())(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Route not found: /nope"}`, rr.Body.String())
}
