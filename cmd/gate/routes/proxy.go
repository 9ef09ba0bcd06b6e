package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/cmd/gate/container"
)

// RegisterProxyRoutes installs the transparent reverse proxy as the
// fallback for every path no other route claims.
func RegisterProxyRoutes(e *echo.Echo, ct *container.Container) {
	e.Any("/*", ct.Proxy.Forward)
}
