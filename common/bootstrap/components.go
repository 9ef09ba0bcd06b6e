package bootstrap

import (
	"context"
	"net/http"

	"github.com/liqk/gate/common/blob"
	"github.com/liqk/gate/common/config"
	"github.com/liqk/gate/common/fsgraph"
	"github.com/liqk/gate/common/logger"
	"github.com/liqk/gate/common/policy"
	"github.com/liqk/gate/common/ratelimit"
	"github.com/liqk/gate/common/sparql"
	"github.com/liqk/gate/common/transfer"
)

// Components holds everything the gateway wires together at startup.
// All fields are safe for concurrent use by request goroutines.
type Components struct {
	Config   *config.Config
	Logger   *logger.Logger
	Upstream *http.Client
	Sparql   *sparql.Client
	Policy   *policy.Resolver
	Fsgraph  *fsgraph.Resolver
	Blobs    *blob.Store
	Transfer *transfer.Manager

	// LoginLimiter is nil when no Redis address is configured
	LoginLimiter *ratelimit.LoginLimiter

	cleanupFuncs []func() error
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown runs cleanup functions in reverse registration order
func (c *Components) Shutdown(ctx context.Context) {
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			c.Logger.Error("cleanup failed", "error", err)
		}
	}
}
