package controller

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

// GetSwagger builds the OpenAPI document served at the docs endpoint and fed
// to the request validator. Request bodies are left unconstrained here: the
// sanitization/validation gate owns body validation.
func GetSwagger() (*openapi3.T, error) {
	paths := openapi3.NewPaths()

	paths.Set("/api/ping", &openapi3.PathItem{
		Get: newOperation("checkServer", "Liveness probe"),
	})
	paths.Set("/api/auth/login", &openapi3.PathItem{
		Post: newOperation("login", "Authenticate with email and password"),
	})
	paths.Set("/api/auth/register", &openapi3.PathItem{
		Post: newOperation("register", "Register a shop owner account"),
	})
	paths.Set("/api/auth/refresh-token", &openapi3.PathItem{
		Post: newOperation("refreshToken", "Rotate the refresh token and mint a new access token"),
	})
	paths.Set("/api/auth/logout", &openapi3.PathItem{
		Post: newOperation("logout", "Revoke the presented tokens"),
	})
	paths.Set("/api/auth/logout-all", &openapi3.PathItem{
		Post: newOperation("logoutAll", "Revoke tokens everywhere for the current user"),
	})
	paths.Set("/api/auth/csrf-token", &openapi3.PathItem{
		Get: newOperation("csrfToken", "Issue the per-session CSRF token"),
	})
	paths.Set("/api/auth/me", &openapi3.PathItem{
		Get: newOperation("me", "Current authenticated user"),
	})

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "NeoPOS Auth Service",
			Description: "Authentication and session-security API for the NeoPOS backend",
			Version:     "1.0.0",
		},
		Paths: paths,
	}, nil
}

func newOperation(id, summary string) *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: id,
		Summary:     summary,
		Responses:   openapi3.NewResponses(),
	}
}

// RegisterHandlers wires the controller into the API group. authMiddleware
// guards the routes that require a valid, non-blacklisted access token.
func RegisterHandlers(g *echo.Group, c *Controller, authMiddleware echo.MiddlewareFunc) {
	g.GET("/ping", c.CheckServer)

	auth := g.Group("/auth")
	auth.POST("/login", c.Login)
	auth.POST("/register", c.Register)
	auth.POST("/refresh-token", c.RefreshToken)
	auth.POST("/logout", c.Logout)
	auth.POST("/logout-all", c.LogoutAll, authMiddleware)
	auth.GET("/csrf-token", c.CsrfToken)
	auth.GET("/me", c.Me, authMiddleware)
}
