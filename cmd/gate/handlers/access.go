package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// UploadAction is the fixed action identifier that gates ingestion
// endpoints. Action identifiers are matched by policies directly, with no
// containment traversal.
const UploadAction = "http://liqk.org/action/upload"

const loginPath = "/gate/login"

// deny maps an insufficient rank to the transport response. UI routes
// redirect anonymous clients to the login form; everything else is a
// plain 403. The response never carries the required or actual rank;
// those are logged server-side only.
func deny(c echo.Context, ui bool, hasCredential bool) error {
	if ui && !hasCredential {
		return c.Redirect(http.StatusSeeOther, loginPath)
	}
	return echo.NewHTTPError(http.StatusForbidden, "access denied")
}
