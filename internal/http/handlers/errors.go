package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/splitlab/splitlab-backend/internal/http/response"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/apierr"
)

// respondServiceError maps the service taxonomy onto HTTP. Signature
// failures deliberately expose nothing beyond "invalid or expired";
// everything unexpected becomes a generic 500 and is logged server-side by
// the caller.
func respondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		response.RespondError(c, ae.Status, ae.Code, ae)
		return
	}

	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, pkgerrors.ErrSignatureExpired), errors.Is(err, pkgerrors.ErrSignatureInvalid):
		response.RespondError(c, http.StatusForbidden, "access_denied", errors.New("invalid or expired signature"))
	case errors.Is(err, pkgerrors.ErrImageDecode):
		response.RespondError(c, http.StatusUnprocessableEntity, "image_decode_failed", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", errors.New("internal error"))
	}
}

func jsonUnmarshal(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
