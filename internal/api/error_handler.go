package api

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/service"
	"github.com/neopos/auth-service/internal/util"
	"github.com/neopos/auth-service/internal/validation"
)

const (
	errorTypeExpired = "token_expired"
	errorTypeInvalid = "token_invalid"
	errorTypeMissing = "token_error"
)

// ErrorHandler maps the error taxonomy onto HTTP responses. Token-refresh
// errors distinguish expired vs invalid vs missing because the client acts on
// that; everything else stays generic to avoid account enumeration.
func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var lockedErr *service.AccountLockedError
		var validationErr *validation.FailedError
		var customErr util.MyResponseError

		switch {
		case errors.Is(err, service.ErrTokenExpired):
			writeJSON(c, log, http.StatusUnauthorized, models.ErrorResponse{
				Message:   "Token expired. Please log in again",
				ErrorType: errorTypeExpired,
			})
		case errors.Is(err, service.ErrTokenInvalid),
			errors.Is(err, service.ErrTokenRevoked),
			errors.Is(err, service.ErrInvalidSigningMethod),
			errors.Is(err, service.ErrInvalidUserID):
			writeJSON(c, log, http.StatusUnauthorized, models.ErrorResponse{
				Message:   "Invalid token",
				ErrorType: errorTypeInvalid,
			})
		case errors.Is(err, service.ErrTokenMissing):
			writeJSON(c, log, http.StatusUnauthorized, models.ErrorResponse{
				Message:   "Refresh token not found",
				ErrorType: errorTypeMissing,
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			writeJSON(c, log, http.StatusUnauthorized, models.ErrorResponse{
				Message: "Invalid credentials",
			})
		case errors.As(err, &lockedErr):
			writeJSON(c, log, http.StatusForbidden, models.ErrorResponse{
				Message: lockedErr.Error(),
			})
		case errors.Is(err, service.ErrIPRateLimited):
			writeJSON(c, log, http.StatusTooManyRequests, models.ErrorResponse{
				Message: service.ErrIPRateLimited.Error(),
			})
		case errors.As(err, &validationErr):
			writeJSON(c, log, http.StatusBadRequest, models.ValidationErrorResponse{
				Message: "Invalid request data",
				Errors:  validationErr.Errors,
			})
		case errors.Is(err, service.ErrEmailTaken):
			writeJSON(c, log, http.StatusBadRequest, models.ErrorResponse{
				Message: service.ErrEmailTaken.Error(),
			})
		case errors.As(err, &customErr):
			writeJSON(c, log, customErr.Status, models.ErrorResponse{Message: customErr.Msg})
		default:
			he, ok := err.(*echo.HTTPError)
			if ok {
				msg, _ := he.Message.(string)
				if msg == "" {
					msg = http.StatusText(he.Code)
				}
				if he.Code >= http.StatusInternalServerError {
					log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
					sentry.CaptureException(err)
				}
				writeJSON(c, log, he.Code, models.ErrorResponse{Message: msg})
				return
			}

			log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
			sentry.CaptureException(err)
			writeJSON(c, log, http.StatusInternalServerError, models.ErrorResponse{Message: "internal server error"})
		}
	}
}

func writeJSON(c echo.Context, log *zap.SugaredLogger, status int, body interface{}) {
	if err := c.JSON(status, body); err != nil {
		log.Errorw("failed to write json response", "error", err)
	}
}
