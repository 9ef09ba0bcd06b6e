package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/cmd/gate/middleware"
	"github.com/liqk/gate/cmd/gate/templates"
	"github.com/liqk/gate/common/auth"
	"github.com/liqk/gate/common/bootstrap"
)

// AuthHandler serves the login surface
type AuthHandler struct {
	components *bootstrap.Components
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(components *bootstrap.Components) *AuthHandler {
	return &AuthHandler{components: components}
}

// LoginPage renders the login form
// GET /gate/login
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.HTML(http.StatusOK, templates.LoginHTML)
}

// LoginSubmit checks the submitted credential against the registered
// Credential digests and, on success, issues the session cookie.
// POST /gate/login
//
// The response never distinguishes a wrong credential from an unknown
// one; both re-render the error view.
func (h *AuthHandler) LoginSubmit(c echo.Context) error {
	log := middleware.GetLogger(c, h.components.Logger)

	if limiter := h.components.LoginLimiter; limiter != nil {
		if res := limiter.Check(c.Request().Context(), c.RealIP()); !res.Allowed {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
		}
	}

	credential := c.FormValue("token")
	if credential == "" || !h.components.Policy.CredentialRegistered(c.Request().Context(), credential) {
		log.Warn("login failed")
		return c.HTML(http.StatusUnauthorized, templates.LoginErrorHTML)
	}

	log.Info("login successful")

	c.SetCookie(auth.SessionCookie(credential, h.components.Config.Auth.SecureCookies))
	return c.Redirect(http.StatusSeeOther, "/")
}
