package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/service"
	"github.com/neopos/auth-service/internal/storage"
	"github.com/neopos/auth-service/internal/util"
)

const bearerPrefix = "Bearer "

// BearerAuthMiddleware guards protected routes. The raw token goes through
// ValidateAccess, which consults the blacklist before trusting any claim.
func BearerAuthMiddleware(tokens *service.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return service.ErrTokenMissing
			}
			token := strings.TrimPrefix(header, bearerPrefix)

			userID, err := tokens.ValidateAccess(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(models.MwUserIDKey, userID)
			c.Set(models.MwTokenKey, token)

			return next(c)
		}
	}
}

// DocsGuardMiddleware protects the OpenAPI documentation endpoint in
// production: basic auth, a per-IP rate limit and access logging.
func DocsGuardMiddleware(cfg *util.DocsConfig, counters storage.CounterStore, events *seclog.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			events.Event(seclog.EventDocsAccess, "ip", ip, "path", c.Request().URL.Path)

			if !cfg.Protected {
				return next(c)
			}

			hits, err := counters.Increment(c.Request().Context(), "docs:ip:"+ip, cfg.RateWindow)
			if err != nil {
				return err
			}
			if hits > cfg.RateLimit {
				return util.NewResponseError(http.StatusTooManyRequests, "Too many requests")
			}

			username, password, ok := c.Request().BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="docs"`)
				return util.NewResponseError(http.StatusUnauthorized, "Unauthorized")
			}

			return next(c)
		}
	}
}

func GetLoggerMiddlewareConfig(log *zap.SugaredLogger) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Errorw("Request", fields...)
			} else {
				log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
