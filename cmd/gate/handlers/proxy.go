package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/cmd/gate/middleware"
	"github.com/liqk/gate/common/bootstrap"
	"github.com/liqk/gate/common/policy"
)

// deniedHeaders are never forwarded in either direction: connection
// management, credentials, and anything a client could use to
// impersonate the gateway toward the store.
var deniedHeaders = map[string]struct{}{
	"host":                {},
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"x-access-token":      {},
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
}

func forwardable(name string) bool {
	_, denied := deniedHeaders[strings.ToLower(name)]
	return !denied
}

// ProxyHandler relays unmatched routes to the upstream engine
type ProxyHandler struct {
	components *bootstrap.Components
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(components *bootstrap.Components) *ProxyHandler {
	return &ProxyHandler{components: components}
}

// requiredRank maps a proxied path to the rank it needs: update-style
// paths mutate the store and need edit, everything else needs view.
func requiredRank(path string) int {
	if strings.HasPrefix(strings.ToLower(path), "/update") {
		return policy.RankEdit
	}
	return policy.RankView
}

// Forward relays the request to the upstream store with credential and
// hop-by-hop headers stripped in both directions. The body is streamed
// and never transformed.
func (h *ProxyHandler) Forward(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()
	log := middleware.GetLogger(c, h.components.Logger)
	credential := middleware.GetCredential(c)

	required := requiredRank(req.URL.Path)
	rank := h.components.Policy.Rank(ctx, policy.ActionTarget(policy.PolicyGraph), credential)
	if rank < required {
		log.Warn("proxy denied",
			"method", req.Method,
			"path", req.URL.RequestURI(),
			"rank", rank,
			"required", required)
		return deny(c, false, credential != "")
	}

	targetURL := h.components.Sparql.BaseURL() + req.URL.RequestURI()

	outReq, err := http.NewRequestWithContext(ctx, req.Method, targetURL, req.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	outReq.ContentLength = req.ContentLength

	for name, values := range req.Header {
		if !forwardable(name) {
			continue
		}
		for _, v := range values {
			outReq.Header.Add(name, v)
		}
	}

	resp, err := h.components.Upstream.Do(outReq)
	if err != nil {
		log.Warn("upstream unreachable",
			"method", req.Method,
			"path", req.URL.RequestURI(),
			"error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "upstream unreachable")
	}
	defer resp.Body.Close()

	respHeader := c.Response().Header()
	for name, values := range resp.Header {
		if !forwardable(name) {
			continue
		}
		for _, v := range values {
			respHeader.Add(name, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)
	written, err := io.Copy(c.Response(), resp.Body)
	if err != nil {
		// Headers are gone; all that is left is logging the broken relay.
		log.Warn("proxy relay interrupted",
			"method", req.Method,
			"path", req.URL.RequestURI(),
			"bytes", written,
			"error", err)
		return nil
	}

	log.Info("request proxied",
		"method", req.Method,
		"path", req.URL.RequestURI(),
		"status", resp.StatusCode,
		"bytes", written)
	return nil
}
