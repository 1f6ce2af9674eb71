package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/splitlab/splitlab-backend/internal/http/response"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
	"github.com/splitlab/splitlab-backend/internal/services"
)

type UploadHandler struct {
	log       *logger.Logger
	ingest    services.IngestService
	artifacts services.ArtifactService
}

func NewUploadHandler(
	log *logger.Logger,
	ingest services.IngestService,
	artifacts services.ArtifactService,
) *UploadHandler {
	return &UploadHandler{
		log:       log.With("handler", "UploadHandler"),
		ingest:    ingest,
		artifacts: artifacts,
	}
}

// CreateUpload ingests one design image from a multipart form ("file" field).
func (h *UploadHandler) CreateUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.log.Error("cannot open uploaded file", "error", err)
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.log.Error("cannot read uploaded file", "error", err)
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}

	var ownerID *uuid.UUID
	if raw := strings.TrimSpace(c.PostForm("owner_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_owner_id", err)
			return
		}
		ownerID = &id
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	upload, err := h.ingest.CreateUpload(dbc, services.CreateUploadInput{
		OwnerID:  ownerID,
		Filename: fh.Filename,
		MimeType: mimeType,
		Content:  content,
	})
	if err != nil {
		h.log.Error("create upload failed", "error", err)
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, upload)
}

func (h *UploadHandler) GetUpload(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	upload, err := h.artifacts.GetUpload(dbc, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, upload)
}

func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.artifacts.DeleteUploadCascade(dbc, id); err != nil {
		h.log.Error("cascade delete failed", "upload_id", id, "error", err)
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}
