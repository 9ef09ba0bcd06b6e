package container

import (
	"github.com/liqk/gate/cmd/gate/handlers"
	"github.com/liqk/gate/common/bootstrap"
)

// Container holds all request handlers, created once at startup
type Container struct {
	Components *bootstrap.Components

	Auth      *handlers.AuthHandler
	Files     *handlers.FileHandler
	Upload    *handlers.UploadHandler
	Resources *handlers.ResourceHandler
	Proxy     *handlers.ProxyHandler
}

// NewContainer wires handlers to the bootstrapped components
func NewContainer(components *bootstrap.Components) *Container {
	return &Container{
		Components: components,
		Auth:       handlers.NewAuthHandler(components),
		Files:      handlers.NewFileHandler(components),
		Upload:     handlers.NewUploadHandler(components),
		Resources:  handlers.NewResourceHandler(components),
		Proxy:      handlers.NewProxyHandler(components),
	}
}
