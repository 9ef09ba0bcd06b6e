package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/cmd/gate/container"
)

// RegisterGateRoutes registers the login, browse, and upload surfaces
func RegisterGateRoutes(e *echo.Echo, ct *container.Container) {
	e.GET("/gate/login", ct.Auth.LoginPage)
	e.POST("/gate/login", ct.Auth.LoginSubmit)

	e.GET("/gate/file", ct.Files.Browse)
	e.GET("/gate/file/*", ct.Files.Browse)

	e.GET("/gate/upload", ct.Upload.UploadPage)
	e.POST("/gate/upload", ct.Upload.UploadSubmit)
}
