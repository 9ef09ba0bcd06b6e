package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/cmd/gate/middleware"
	"github.com/liqk/gate/common/blob"
	"github.com/liqk/gate/common/bootstrap"
	"github.com/liqk/gate/common/policy"
	"github.com/liqk/gate/common/transfer"
)

// ResourceHandler serves the UUID-addressed resource API
type ResourceHandler struct {
	components *bootstrap.Components
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(components *bootstrap.Components) *ResourceHandler {
	return &ResourceHandler{components: components}
}

// Get streams a resource's bytes by identifier, gated at view rank.
// GET /res/:uuid
func (h *ResourceHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	log := middleware.GetLogger(c, h.components.Logger)
	credential := middleware.GetCredential(c)

	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource id")
	}

	target := policy.ResourceTarget(transfer.ResourceIRI(id))
	rank := h.components.Policy.Rank(ctx, target, credential)
	if rank < policy.RankView {
		log.Warn("resource read denied", "uuid", id, "rank", rank, "required", policy.RankView)
		return deny(c, false, credential != "")
	}

	storedAs, err := h.components.Transfer.StoredName(ctx, id)
	if err != nil {
		if errors.Is(err, transfer.ErrNoSuchResource) {
			return echo.NewHTTPError(http.StatusNotFound, "resource not found")
		}
		log.Error("stored name lookup failed", "uuid", id, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "lookup failed")
	}

	blobPath, err := h.components.Transfer.BlobPath(storedAs)
	if err != nil {
		log.Error("blob missing for indexed resource", "uuid", id, "stored_as", storedAs)
		return echo.NewHTTPError(http.StatusInternalServerError, "file unavailable")
	}

	log.Info("resource served", "uuid", id, "stored_as", storedAs)
	return c.File(blobPath)
}

// Put replaces a resource's bytes in place, gated at edit rank on the
// resource itself. Only the size attribute of the graph record changes.
// PUT /res/:uuid
func (h *ResourceHandler) Put(c echo.Context) error {
	ctx := c.Request().Context()
	log := middleware.GetLogger(c, h.components.Logger)
	credential := middleware.GetCredential(c)

	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource id")
	}

	target := policy.ResourceTarget(transfer.ResourceIRI(id))
	rank := h.components.Policy.Rank(ctx, target, credential)
	if rank < policy.RankEdit {
		log.Warn("resource replace denied", "uuid", id, "rank", rank, "required", policy.RankEdit)
		return deny(c, false, credential != "")
	}

	size, err := h.components.Transfer.Replace(ctx, id, c.Request().Body)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrNoSuchResource):
			return echo.NewHTTPError(http.StatusNotFound, "resource not found")
		case errors.Is(err, blob.ErrTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "upload size ceiling exceeded")
		default:
			log.Error("resource replace failed", "uuid", id, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "replace failed")
		}
	}

	log.Info("resource replaced", "uuid", id, "bytes", size)
	return c.JSON(http.StatusOK, map[string]any{
		"uuid": id,
		"size": size,
	})
}

// Post ingests a multipart batch and returns the created identifiers,
// gated at edit rank on the upload action.
// POST /res
func (h *ResourceHandler) Post(c echo.Context) error {
	ctx := c.Request().Context()
	log := middleware.GetLogger(c, h.components.Logger)
	credential := middleware.GetCredential(c)

	rank := h.components.Policy.Rank(ctx, policy.ActionTarget(UploadAction), credential)
	if rank < policy.RankEdit {
		log.Warn("resource create denied", "rank", rank, "required", policy.RankEdit)
		return deny(c, false, credential != "")
	}

	uploadDir, err := h.components.Fsgraph.UploadDir(ctx)
	if err != nil {
		log.Error("upload directory unresolved", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "upload directory not configured")
	}

	mr, err := c.Request().MultipartReader()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart upload")
	}

	results, err := h.components.Transfer.IngestMultipart(ctx, mr, uploadDir)
	if err != nil {
		if errors.Is(err, blob.ErrTooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "upload size ceiling exceeded")
		}
		log.Error("resource create failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read upload")
	}

	if len(results) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files uploaded")
	}

	return c.JSON(http.StatusOK, results)
}
