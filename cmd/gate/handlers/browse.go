package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/cmd/gate/middleware"
	"github.com/liqk/gate/cmd/gate/templates"
	"github.com/liqk/gate/common/bootstrap"
	"github.com/liqk/gate/common/fsgraph"
	"github.com/liqk/gate/common/policy"
	"github.com/liqk/gate/common/transfer"
)

// FileHandler serves the path-addressed browse surface: directory
// listings and raw file bytes.
type FileHandler struct {
	components *bootstrap.Components
}

// NewFileHandler creates a new file handler
func NewFileHandler(components *bootstrap.Components) *FileHandler {
	return &FileHandler{components: components}
}

// Browse resolves a slash-separated label path and either lists a
// directory or streams a file, gated at view rank on the resolved node.
// GET /gate/file and GET /gate/file/*
func (h *FileHandler) Browse(c echo.Context) error {
	ctx := c.Request().Context()
	log := middleware.GetLogger(c, h.components.Logger)
	credential := middleware.GetCredential(c)
	rawPath := c.Param("*")

	labels := splitLabels(rawPath)

	node, err := h.components.Fsgraph.Resolve(ctx, labels)
	if err != nil {
		if errors.Is(err, fsgraph.ErrNotFound) {
			log.Warn("path not found", "path", rawPath)
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		log.Error("path resolution failed", "path", rawPath, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "lookup failed")
	}

	rank := h.components.Policy.Rank(ctx, policy.ResourceTarget(node.IRI), credential)
	if rank < policy.RankView {
		log.Warn("browse denied",
			"path", rawPath,
			"rank", rank,
			"required", policy.RankView)
		return deny(c, true, credential != "")
	}

	if node.IsDir {
		return h.listDirectory(c, node, strings.Join(labels, "/"))
	}
	return h.serveFile(c, node, rawPath)
}

func (h *FileHandler) listDirectory(c echo.Context, node *fsgraph.Node, dirPath string) error {
	children, err := h.components.Fsgraph.ListChildren(c.Request().Context(), node.IRI)
	if err != nil {
		middleware.GetLogger(c, h.components.Logger).Error("directory listing failed", "dir", node.IRI, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "listing failed")
	}

	entries := make([]templates.ListingEntry, len(children))
	for i, child := range children {
		entries[i] = templates.ListingEntry{Label: child.Label, IsDir: child.IsDir}
	}

	return c.HTML(http.StatusOK, templates.ListingHTML(dirPath, entries))
}

func (h *FileHandler) serveFile(c echo.Context, node *fsgraph.Node, rawPath string) error {
	log := middleware.GetLogger(c, h.components.Logger)

	if node.StoredAs == "" {
		log.Error("file node has no stored name", "node", node.IRI, "path", rawPath)
		return echo.NewHTTPError(http.StatusInternalServerError, "file record incomplete")
	}

	blobPath, err := h.components.Transfer.BlobPath(node.StoredAs)
	if err != nil {
		if errors.Is(err, transfer.ErrMissingBlob) {
			// Graph record exists but the bytes are gone: our fault, not
			// the client's.
			log.Error("blob missing for indexed file",
				"node", node.IRI,
				"stored_as", node.StoredAs)
			return echo.NewHTTPError(http.StatusInternalServerError, "file unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "file unavailable")
	}

	log.Info("file served",
		"path", rawPath,
		"stored_as", node.StoredAs)

	return c.File(blobPath)
}

// splitLabels turns a request path remainder into ordered labels. The
// empty path yields no labels, which resolves to the root.
func splitLabels(raw string) []string {
	var labels []string
	for _, part := range strings.Split(raw, "/") {
		if part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}
