package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/seclog"
)

func decodeBody[T any](t *testing.T, body string) (*T, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	return Decode[T](c, NewValidator(), seclog.NewRecorder(zap.NewNop().Sugar()))
}

func TestDecode_ValidBody(t *testing.T) {
	req, err := decodeBody[models.LoginRequest](t, `{"email":"owner@example.com","password":"sesame123"}`)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", req.Email)
	assert.Equal(t, "sesame123", req.Password)
}

func TestDecode_EscapesHTMLInStrings(t *testing.T) {
	req, err := decodeBody[models.RegisterRequest](t,
		`{"email":"owner@example.com","password":"sesame123","confirmPassword":"sesame123","shopName":"<script>alert(1)</script>"}`)
	require.NoError(t, err)
	assert.NotContains(t, req.ShopName, "<script>")
	assert.Contains(t, req.ShopName, "&lt;script&gt;")
}

func TestDecode_CollectsEveryFieldError(t *testing.T) {
	_, err := decodeBody[models.LoginRequest](t, `{"email":"not-an-email","password":"abc"}`)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	require.Len(t, failed.Errors, 2)

	byField := map[string]string{}
	for _, fe := range failed.Errors {
		byField[fe.Field] = fe.Message
	}
	assert.Equal(t, "must be a valid email address", byField["email"])
	assert.Equal(t, "must be at least 6 characters long", byField["password"])
}

func TestDecode_EmptyBodyReportsRequiredFields(t *testing.T) {
	_, err := decodeBody[models.LoginRequest](t, "")

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Len(t, failed.Errors, 2)
}

func TestDecode_RejectsNonObjectBody(t *testing.T) {
	_, err := decodeBody[models.LoginRequest](t, `[1,2,3]`)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	require.Len(t, failed.Errors, 1)
	assert.Equal(t, "body", failed.Errors[0].Field)
}

func TestDecode_DropsUnknownFields(t *testing.T) {
	req, err := decodeBody[models.LoginRequest](t,
		`{"email":"owner@example.com","password":"sesame123","role":"admin","__proto__":{"polluted":true}}`)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", req.Email)
}

func TestDecode_PasswordMismatch(t *testing.T) {
	_, err := decodeBody[models.RegisterRequest](t,
		`{"email":"owner@example.com","password":"sesame123","confirmPassword":"different","shopName":"Deli"}`)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)

	fields := make([]string, 0, len(failed.Errors))
	for _, fe := range failed.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "confirmPassword")
}
