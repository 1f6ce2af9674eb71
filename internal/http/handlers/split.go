package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/splitlab/splitlab-backend/internal/geometry"
	"github.com/splitlab/splitlab-backend/internal/http/response"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
	"github.com/splitlab/splitlab-backend/internal/services"
)

type SplitHandler struct {
	log       *logger.Logger
	artifacts services.ArtifactService
	cropper   services.CropService
}

func NewSplitHandler(
	log *logger.Logger,
	artifacts services.ArtifactService,
	cropper services.CropService,
) *SplitHandler {
	return &SplitHandler{
		log:       log.With("handler", "SplitHandler"),
		artifacts: artifacts,
		cropper:   cropper,
	}
}

type createSplitRequest struct {
	Status    string                 `json:"status,omitempty"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
	ProjectID *uuid.UUID             `json:"project_id,omitempty"`
}

func (h *SplitHandler) CreateSplit(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	var req createSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	split, err := h.artifacts.CreateSplit(dbc, uploadID, req.Status, req.Metrics, req.ProjectID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, split)
}

func (h *SplitHandler) GetSplit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	split, err := h.artifacts.GetSplit(dbc, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, split)
}

func (h *SplitHandler) ListRecentSplits(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	splits, err := h.artifacts.ListRecentSplits(dbc, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, splits)
}

type updateSplitStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *SplitHandler) UpdateSplitStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	var req updateSplitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.artifacts.UpdateSplitStatus(dbc, id, req.Status); err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"id": id, "status": req.Status})
}

type mergeSplitMetricsRequest struct {
	Metrics map[string]interface{} `json:"metrics" binding:"required"`
}

func (h *SplitHandler) MergeSplitMetrics(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	var req mergeSplitMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	split, err := h.artifacts.MergeSplitMetrics(dbc, id, req.Metrics)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, split)
}

func (h *SplitHandler) ListAssets(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	assets, err := h.artifacts.ListAssets(dbc, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, assets)
}

// GenerateCrops accepts a multipart form: the source image in "file" and the
// section list as JSON in "sections". The "force" field regenerates crops
// that already exist.
func (h *SplitHandler) GenerateCrops(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()
	source, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	var sections []geometry.Section
	if raw := c.PostForm("sections"); raw != "" {
		if err := jsonUnmarshal(raw, &sections); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_sections", err)
			return
		}
	}
	if len(sections) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_sections", nil)
		return
	}

	force := strings.EqualFold(c.PostForm("force"), "true")

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	assets, err := h.cropper.GenerateCrops(dbc, id, source, sections, force)
	if err != nil {
		h.log.Error("crop generation failed", "split_id", id, "error", err)
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, assets)
}
