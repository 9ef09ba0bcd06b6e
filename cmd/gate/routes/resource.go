package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/cmd/gate/container"
)

// RegisterResourceRoutes registers the UUID-addressed resource API
func RegisterResourceRoutes(e *echo.Echo, ct *container.Container) {
	e.POST("/res", ct.Resources.Post)
	e.GET("/res/:uuid", ct.Resources.Get)
	e.PUT("/res/:uuid", ct.Resources.Put)
}
