package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/cmd/gate/middleware"
	"github.com/liqk/gate/cmd/gate/templates"
	"github.com/liqk/gate/common/blob"
	"github.com/liqk/gate/common/bootstrap"
	"github.com/liqk/gate/common/policy"
)

// UploadHandler serves the multipart upload surface
type UploadHandler struct {
	components *bootstrap.Components
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(components *bootstrap.Components) *UploadHandler {
	return &UploadHandler{components: components}
}

// UploadPage renders the upload form, gated like the submission itself.
// GET /gate/upload
func (h *UploadHandler) UploadPage(c echo.Context) error {
	credential := middleware.GetCredential(c)
	rank := h.components.Policy.Rank(c.Request().Context(), policy.ActionTarget(UploadAction), credential)
	if rank < policy.RankEdit {
		middleware.GetLogger(c, h.components.Logger).Warn("upload page denied", "rank", rank, "required", policy.RankEdit)
		return deny(c, true, credential != "")
	}
	return c.HTML(http.StatusOK, templates.UploadHTML)
}

// UploadSubmit ingests a multipart batch, gated at edit rank on the
// upload action, and renders a per-file summary.
// POST /gate/upload
func (h *UploadHandler) UploadSubmit(c echo.Context) error {
	ctx := c.Request().Context()
	log := middleware.GetLogger(c, h.components.Logger)
	credential := middleware.GetCredential(c)

	rank := h.components.Policy.Rank(ctx, policy.ActionTarget(UploadAction), credential)
	if rank < policy.RankEdit {
		log.Warn("upload denied", "rank", rank, "required", policy.RankEdit)
		return deny(c, true, credential != "")
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
		log.Error("upload failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read upload")
	}

	if len(results) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files uploaded")
	}

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Filename
	}
	return c.HTML(http.StatusOK, templates.UploadSummaryHTML(names))
}
