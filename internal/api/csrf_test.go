package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/util"
)

func newCsrfFixture(t *testing.T) (*CsrfGuard, echo.HandlerFunc) {
	t.Helper()

	guard := NewCsrfGuard(
		&util.CsrfConfig{TokenTTL: time.Hour, Secure: false},
		seclog.NewRecorder(zap.NewNop().Sugar()),
	)
	handler := guard.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return guard, handler
}

func csrfCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == models.CsrfCookieName {
			return cookie
		}
	}
	t.Fatal("csrf cookie not set")
	return nil
}

func TestCsrf_SafeMethodMintsCookie(t *testing.T) {
	_, handler := newCsrfFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/csrf-token", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := csrfCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestCsrf_RejectsMutatingRequestWithoutToken(t *testing.T) {
	_, handler := newCsrfFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or missing CSRF token")
}

func TestCsrf_MissingAndMismatchedAreIndistinguishable(t *testing.T) {
	_, handler := newCsrfFixture(t)
	e := echo.New()

	missing := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	missingRec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(missing, missingRec)))

	mismatched := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	mismatched.AddCookie(&http.Cookie{Name: models.CsrfCookieName, Value: "expected-token"})
	mismatched.Header.Set(models.CsrfHeaderName, "attacker-guess")
	mismatchedRec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(mismatched, mismatchedRec)))

	assert.Equal(t, missingRec.Code, mismatchedRec.Code)
	assert.Equal(t, missingRec.Body.String(), mismatchedRec.Body.String())
}

func TestCsrf_AcceptsMatchingHeader(t *testing.T) {
	_, handler := newCsrfFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: models.CsrfCookieName, Value: "session-token"})
	req.Header.Set(models.CsrfHeaderName, "session-token")
	rec := httptest.NewRecorder()

	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCsrf_AcceptsMatchingFormField(t *testing.T) {
	_, handler := newCsrfFixture(t)
	e := echo.New()

	form := url.Values{csrfFormField: {"session-token"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: models.CsrfCookieName, Value: "session-token"})
	rec := httptest.NewRecorder()

	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCsrf_EnsureTokenIsIdempotent(t *testing.T) {
	guard, _ := newCsrfFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: models.CsrfCookieName, Value: "existing-token"})
	rec := httptest.NewRecorder()

	token, err := guard.EnsureToken(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, "existing-token", token)
	assert.Empty(t, rec.Result().Cookies())
}
