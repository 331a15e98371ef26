package replytool

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/replyflow/handler"
	"github.com/dmitrymomot/replyflow/pkg/automation"
	"github.com/dmitrymomot/replyflow/pkg/quota"
	"github.com/dmitrymomot/replyflow/pkg/usage"
)

var (
	errMissingUserID       = handler.NewHTTPError(http.StatusUnauthorized, "Missing userId")
	errMissingUsageUserID  = handler.NewHTTPError(http.StatusBadRequest, "Missing userId")
	errMissingAction       = handler.NewHTTPError(http.StatusBadRequest, "Missing action")
	errMissingScriptURL    = handler.NewHTTPError(http.StatusInternalServerError, "Missing APPS_SCRIPT_URL")
	errAutomationUnreached = handler.NewHTTPError(http.StatusBadGateway, "Automation endpoint unavailable")
)

// MapError translates gate and automation errors into client responses.
func MapError(err error) (handler.HTTPError, bool) {
	switch {
	case errors.Is(err, automation.ErrNotConfigured):
		return errMissingScriptURL, true
	case errors.Is(err, quota.ErrMissingUserID):
		return errMissingUserID, true
	case errors.Is(err, usage.ErrMissingUserID):
		return errMissingUsageUserID, true
	case errors.Is(err, quota.ErrMissingAction):
		return errMissingAction, true
	case errors.Is(err, automation.ErrRequestFailed), errors.Is(err, automation.ErrResponseTooLarge):
		return errAutomationUnreached, true
	}
	return handler.HTTPError{}, false
}
