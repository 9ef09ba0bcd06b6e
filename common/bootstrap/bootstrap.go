package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/liqk/gate/common/blob"
	"github.com/liqk/gate/common/config"
	"github.com/liqk/gate/common/fsgraph"
	"github.com/liqk/gate/common/logger"
	"github.com/liqk/gate/common/policy"
	"github.com/liqk/gate/common/ratelimit"
	"github.com/liqk/gate/common/sparql"
	"github.com/liqk/gate/common/transfer"
	"github.com/redis/go-redis/v9"
)

// Setup initializes all gateway components: configuration, logger, the
// shared upstream HTTP pool, the SPARQL client, resolvers, the blob store,
// the transfer manager, and the optional login limiter.
func Setup(ctx context.Context, configFile string) (*Components, error) {
	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	var err error
	components.Config, err = config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	components.Logger = logger.New(
		components.Config.Service.LogLevel,
		components.Config.Service.LogFormat,
	)

	components.Logger.Info("initializing gateway",
		"upstream", components.Config.Upstream.URL,
		"files_dir", components.Config.Files.Dir,
		"secure_cookies", components.Config.Auth.SecureCookies,
	)

	if !components.Config.Auth.SecureCookies {
		components.Logger.Warn("secure cookies disabled; session cookies will travel over plain HTTP")
	}

	// One upstream pool, shared by the SPARQL client and the proxy path.
	// No overall timeout: uploads and proxied queries can be long-lived;
	// per-request contexts bound individual calls.
	components.Upstream = &http.Client{}

	components.Sparql = sparql.NewClient(components.Config.Upstream.URL, components.Upstream, components.Logger)
	components.Policy = policy.NewResolver(components.Sparql, components.Logger, components.Config.Auth.AdminToken)
	components.Fsgraph = fsgraph.NewResolver(components.Sparql, components.Logger)

	components.Blobs, err = blob.NewStore(components.Config.Files.Dir, components.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	components.Transfer = transfer.NewManager(
		components.Blobs,
		components.Sparql,
		components.Logger,
		components.Config.Files.MaxUploadBytes,
	)

	if addr := components.Config.RateLimit.RedisAddr; addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: addr})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			components.Logger.Warn("redis unreachable at startup, login throttling degraded", "addr", addr, "error", err)
		}

		components.LoginLimiter = ratelimit.NewLoginLimiter(
			redisClient,
			components.Logger,
			components.Config.RateLimit.LoginLimit,
			components.Config.RateLimit.LoginWindowSec,
		)

		components.addCleanup(func() error {
			return redisClient.Close()
		})
	}

	components.Logger.Info("gateway initialization complete",
		"login_limiter", components.LoginLimiter != nil,
	)

	return components, nil
}
