package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/common/auth"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// CredentialKey is the context key the extracted bearer credential is
// stored under
const CredentialKey ContextKey = "gate.credential"

// ExtractCredential pulls at most one candidate credential from each
// request (token header, then Bearer authorization, then session cookie)
// and stores it in the echo context. It makes no upstream call and never
// rejects a request: what the credential authorizes is decided per route.
func ExtractCredential() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cred, ok := auth.ExtractCredential(c.Request()); ok {
				c.Set(string(CredentialKey), cred)
			}
			return next(c)
		}
	}
}

// GetCredential retrieves the request's credential, "" when absent
func GetCredential(c echo.Context) string {
	cred := c.Get(string(CredentialKey))
	if cred == nil {
		return ""
	}
	return cred.(string)
}
