package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/liqk/gate/cmd/gate/container"
	"github.com/liqk/gate/cmd/gate/middleware"
	"github.com/liqk/gate/cmd/gate/routes"
	"github.com/liqk/gate/common/bootstrap"
	"github.com/liqk/gate/common/logger"
	"github.com/liqk/gate/common/server"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap gateway: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	serviceContainer := container.NewContainer(components)

	e := setupEcho()
	setupMiddleware(e, components.Logger)
	setupHealthCheck(e)
	registerRoutes(e, serviceContainer)

	srv := server.New("gate", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server.
// CORS deliberately does not allow credentials: cross-origin clients
// authenticate with the token header, never with the session cookie.
func setupMiddleware(e *echo.Echo, log *logger.Logger) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{"*"},
	}))
	e.Use(middleware.ExtractCredential())
}

// setupHealthCheck registers the health check endpoint ahead of the
// proxy fallback
func setupHealthCheck(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "gate",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterGateRoutes(e, serviceContainer)
	routes.RegisterResourceRoutes(e, serviceContainer)
	routes.RegisterProxyRoutes(e, serviceContainer)
}
