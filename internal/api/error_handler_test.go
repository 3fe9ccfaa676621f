package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/service"
	"github.com/neopos/auth-service/internal/validation"
)

func handleError(t *testing.T, err error) (int, models.ErrorResponse) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec := httptest.NewRecorder()

	ErrorHandler(zap.NewNop().Sugar())(err, e.NewContext(req, rec))

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandler_TokenErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantErrorType string
	}{
		{"expired", service.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{"invalid", service.ErrTokenInvalid, http.StatusUnauthorized, "token_invalid"},
		{"revoked", service.ErrTokenRevoked, http.StatusUnauthorized, "token_invalid"},
		{"bad signing method", service.ErrInvalidSigningMethod, http.StatusUnauthorized, "token_invalid"},
		{"missing", service.ErrTokenMissing, http.StatusUnauthorized, "token_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := handleError(t, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantErrorType, body.ErrorType)
			assert.False(t, body.Success)
		})
	}
}

func TestErrorHandler_AccountLocked(t *testing.T) {
	status, body := handleError(t, &service.AccountLockedError{Wait: 30 * time.Minute})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body.Message, "account is locked")
	assert.Contains(t, body.Message, "30 minutes")
}

func TestErrorHandler_IPRateLimited(t *testing.T) {
	status, _ := handleError(t, service.ErrIPRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestErrorHandler_InvalidCredentials(t *testing.T) {
	status, body := handleError(t, service.ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body.Message)
	assert.Empty(t, body.ErrorType)
}

func TestErrorHandler_ValidationErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
	rec := httptest.NewRecorder()

	err := &validation.FailedError{Errors: []models.FieldError{
		{Field: "email", Message: "must be a valid email address"},
		{Field: "password", Message: "is required"},
	}}
	ErrorHandler(zap.NewNop().Sugar())(err, e.NewContext(req, rec))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body models.ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Errors, 2)
}

func TestErrorHandler_UnknownErrorStaysGeneric(t *testing.T) {
	status, body := handleError(t, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, body.Message, "pq:")
}
