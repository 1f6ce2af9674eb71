package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/splitlab/splitlab-backend/internal/clients/gcp"
	"github.com/splitlab/splitlab-backend/internal/http/response"
	"github.com/splitlab/splitlab-backend/internal/platform/apierr"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
	"github.com/splitlab/splitlab-backend/internal/services"
)

type StorageHandler struct {
	log    *logger.Logger
	signer services.SignedURLService
	bucket gcp.BucketService
}

func NewStorageHandler(
	log *logger.Logger,
	signer services.SignedURLService,
	bucket gcp.BucketService,
) *StorageHandler {
	return &StorageHandler{
		log:    log.With("handler", "StorageHandler"),
		signer: signer,
		bucket: bucket,
	}
}

// SignKey issues a short-lived read grant. TTL is requested in milliseconds
// and clamped by the service.
func (h *StorageHandler) SignKey(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_key", nil)
		return
	}

	var ttl time.Duration
	if raw := strings.TrimSpace(c.Query("ttl")); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_ttl", err)
			return
		}
		ttl = time.Duration(ms) * time.Millisecond
	}

	signed, err := h.signer.Issue(key, ttl)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, signed)
}

// Download verifies the grant and streams the blob through unmodified.
func (h *StorageHandler) Download(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	sig := strings.TrimSpace(c.Query("sig"))
	exp, err := strconv.ParseInt(strings.TrimSpace(c.Query("exp")), 10, 64)
	if key == "" || sig == "" || err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_parameters", nil)
		return
	}

	if err := h.signer.Verify(key, exp, sig); err != nil {
		respondServiceError(c, err)
		return
	}

	reader, err := h.bucket.DownloadFile(c.Request.Context(), gcp.BucketCategoryDesign, key)
	if err != nil {
		h.log.Error("blob download failed", "key", key, "error", err)
		respondServiceError(c, apierr.New(http.StatusNotFound, "not_found", nil))
		return
	}
	defer reader.Close()

	c.Header("Content-Type", services.ContentTypeForKey(key))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.log.Warn("stream interrupted", "key", key, "error", err)
	}
}
