package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/util"
)

const (
	csrfTokenLength = 32
	csrfFormField   = "csrf_token"
)

// CsrfGuard implements double-submit CSRF protection: the token lives in a
// cookie and must be echoed back in the X-CSRF-Token header (or form field)
// on every state-changing request. Missing and mismatched tokens produce the
// exact same response so the guard leaks nothing about the expected value.
type CsrfGuard struct {
	cfg    *util.CsrfConfig
	events *seclog.Recorder
}

func NewCsrfGuard(cfg *util.CsrfConfig, events *seclog.Recorder) *CsrfGuard {
	return &CsrfGuard{cfg: cfg, events: events}
}

func (g *CsrfGuard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isSafeMethod(c.Request().Method) {
				if _, err := g.EnsureToken(c); err != nil {
					return err
				}
				return next(c)
			}

			cookie, err := c.Cookie(models.CsrfCookieName)
			if err != nil || cookie.Value == "" {
				return g.reject(c)
			}

			submitted := c.Request().Header.Get(models.CsrfHeaderName)
			if submitted == "" {
				submitted = c.FormValue(csrfFormField)
			}

			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
				return g.reject(c)
			}

			return next(c)
		}
	}
}

// EnsureToken returns the session's CSRF token, minting one and setting the
// cookie if the browser has none yet.
func (g *CsrfGuard) EnsureToken(c echo.Context) (string, error) {
	if cookie, err := c.Cookie(models.CsrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	raw := make([]byte, csrfTokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	c.SetCookie(&http.Cookie{
		Name:     models.CsrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.cfg.TokenTTL.Seconds()),
		Secure:   g.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	return token, nil
}

// reject answers every failure identically and records the attempt.
func (g *CsrfGuard) reject(c echo.Context) error {
	req := c.Request()
	g.events.Event(seclog.EventCsrfAttackAttempt,
		"ip", c.RealIP(),
		"path", req.URL.Path,
		"method", req.Method,
		"deviceId", deviceID(req),
		"userAgent", req.UserAgent(),
	)

	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Message: "Invalid or missing CSRF token",
	})
}

func deviceID(req *http.Request) string {
	if id := req.Header.Get(models.DeviceIDHeader); id != "" {
		return id
	}
	return "unknown"
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
