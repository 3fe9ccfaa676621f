package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/service"
	"github.com/neopos/auth-service/internal/storage"
	"github.com/neopos/auth-service/internal/validation"
)

const refreshCookiePath = "/api/auth"

// CsrfTokenIssuer is implemented by the CSRF guard; the csrf-token endpoint
// uses it to hand the session token to the client.
type CsrfTokenIssuer interface {
	EnsureToken(ctx echo.Context) (string, error)
}

type Controller struct {
	zapLogger    *zap.SugaredLogger
	authService  *service.AuthService
	tokenService *service.TokenService
	users        storage.UserRepository
	csrf         CsrfTokenIssuer
	validate     *validator.Validate
	events       *seclog.Recorder
	secureCookie bool
}

func NewController(
	logger *zap.SugaredLogger,
	authService *service.AuthService,
	tokenService *service.TokenService,
	users storage.UserRepository,
	csrf CsrfTokenIssuer,
	events *seclog.Recorder,
	secureCookie bool,
) *Controller {
	return &Controller{
		zapLogger:    logger,
		authService:  authService,
		tokenService: tokenService,
		users:        users,
		csrf:         csrf,
		validate:     validation.NewValidator(),
		events:       events,
		secureCookie: secureCookie,
	}
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	req, err := validation.Decode[models.LoginRequest](ctx, c.validate, c.events)
	if err != nil {
		return err
	}

	issued, user, err := c.authService.Login(ctx.Request().Context(), ctx.RealIP(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.setRefreshCookie(ctx, issued.RefreshToken, issued.RefreshTTL)

	return ctx.JSON(http.StatusOK, models.LoginResponse{
		Success:      true,
		Message:      "Login successful",
		Token:        issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.ExpiresAt,
		User: &models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			Role:     user.Role,
			ShopName: user.ShopName,
		},
	})
}

// (POST /api/auth/register).
func (c *Controller) Register(ctx echo.Context) error {
	req, err := validation.Decode[models.RegisterRequest](ctx, c.validate, c.events)
	if err != nil {
		return err
	}

	user, err := c.authService.Register(ctx.Request().Context(), req.Email, req.Password, req.ShopName)
	if err != nil {
		return err
	}

	c.zapLogger.Infow("user registered", "userId", user.ID)

	return ctx.JSON(http.StatusCreated, models.MessageResponse{
		Success: true,
		Message: "User registered successfully",
	})
}

// (POST /api/auth/refresh-token).
// The cookie is preferred; a body refreshToken is accepted for clients that
// cannot carry cookies.
func (c *Controller) RefreshToken(ctx echo.Context) error {
	refreshToken := c.refreshTokenFromRequest(ctx)

	issued, err := c.tokenService.Refresh(ctx.Request().Context(), refreshToken)
	if err != nil {
		return err
	}

	c.setRefreshCookie(ctx, issued.RefreshToken, issued.RefreshTTL)

	return ctx.JSON(http.StatusOK, models.TokenPairResponse{
		Success:      true,
		Token:        issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.ExpiresAt,
	})
}

// (POST /api/auth/logout).
// Best-effort revocation: tokens are decoded without validity checks, and
// whatever parses gets blacklisted.
func (c *Controller) Logout(ctx echo.Context) error {
	accessToken := bearerToken(ctx)
	refreshToken := c.refreshTokenFromRequest(ctx)

	if err := c.tokenService.Logout(ctx.Request().Context(), accessToken, refreshToken); err != nil {
		return err
	}

	c.clearRefreshCookie(ctx)
	c.events.Event(seclog.EventLogout, "ip", ctx.RealIP())

	return ctx.JSON(http.StatusOK, models.MessageResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// (POST /api/auth/logout-all). Requires a valid access token.
func (c *Controller) LogoutAll(ctx echo.Context) error {
	userID, ok := ctx.Get(models.MwUserIDKey).(int64)
	if !ok {
		return service.ErrTokenInvalid
	}

	accessToken, _ := ctx.Get(models.MwTokenKey).(string)
	refreshToken := c.refreshTokenFromRequest(ctx)

	if err := c.tokenService.Logout(ctx.Request().Context(), accessToken, refreshToken); err != nil {
		return err
	}
	if _, err := c.tokenService.RevokeAll(ctx.Request().Context(), userID); err != nil {
		return err
	}

	c.clearRefreshCookie(ctx)

	return ctx.JSON(http.StatusOK, models.MessageResponse{
		Success: true,
		Message: "Logged out everywhere",
	})
}

// (GET /api/auth/csrf-token).
func (c *Controller) CsrfToken(ctx echo.Context) error {
	token, err := c.csrf.EnsureToken(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.CsrfTokenResponse{
		Success:   true,
		CsrfToken: token,
	})
}

// (GET /api/auth/me). Sample protected endpoint; exercises the
// blacklist-first bearer middleware.
func (c *Controller) Me(ctx echo.Context) error {
	userID, ok := ctx.Get(models.MwUserIDKey).(int64)
	if !ok {
		return service.ErrTokenInvalid
	}

	user, err := c.users.GetUserByID(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		ShopName: user.ShopName,
	})
}

func (c *Controller) refreshTokenFromRequest(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(models.RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var body models.RefreshRequest
	if err := ctx.Bind(&body); err == nil {
		return body.RefreshToken
	}
	return ""
}

func (c *Controller) setRefreshCookie(ctx echo.Context, token string, ttl time.Duration) {
	ctx.SetCookie(&http.Cookie{
		Name:     models.RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c *Controller) clearRefreshCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     models.RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func bearerToken(ctx echo.Context) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
