package validation

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/seclog"
)

// FailedError carries the full field-level error list; every
// invalid field is reported, not just the first.
type FailedError struct {
	Errors []models.FieldError
}

func (e *FailedError) Error() string { return "request validation failed" }

// NewValidator builds the validator used by the request gate; field names in
// error output come from json tags.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// Decode is the sanitization+validation gate in front of every
// handler: the raw body is parsed into a generic map, every string leaf is
// HTML-escaped, the sanitized map is re-decoded into the typed request
// (dropping unknown fields) and validated. The raw body never reaches
// business logic.
func Decode[T any](c echo.Context, validate *validator.Validate, events *seclog.Recorder) (*T, error) {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, &FailedError{Errors: []models.FieldError{
			{Field: "body", Message: "must be a JSON object"},
		}}
	}

	sanitized := sanitizeValue(generic)
	cleaned, err := json.Marshal(sanitized)
	if err != nil {
		return nil, fmt.Errorf("re-encode sanitized body: %w", err)
	}

	var req T
	if err := json.Unmarshal(cleaned, &req); err != nil {
		return nil, &FailedError{Errors: []models.FieldError{
			{Field: "body", Message: "contains fields of the wrong type"},
		}}
	}

	if err := validate.Struct(&req); err != nil {
		fieldErrors := collectFieldErrors(err)
		events.Event(seclog.EventValidationFailed,
			"path", c.Request().URL.Path,
			"method", c.Request().Method,
			"ip", c.RealIP(),
			"errors", fieldErrors,
		)
		return nil, &FailedError{Errors: fieldErrors}
	}

	return &req, nil
}

// sanitizeValue walks the decoded body and HTML-escapes every string leaf to
// neutralize stored-XSS payloads before validation sees them.
func sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return html.EscapeString(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = sanitizeValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

func collectFieldErrors(err error) []models.FieldError {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []models.FieldError{{Field: "body", Message: "is invalid"}}
	}

	out := make([]models.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, models.FieldError{
			Field:   fe.Field(),
			Message: fieldErrorMessage(fe),
		})
	}
	return out
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "eqfield":
		return "does not match " + fe.Param()
	default:
		return "is invalid"
	}
}
