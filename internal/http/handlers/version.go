package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/splitlab/splitlab-backend/internal/http/response"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
	"github.com/splitlab/splitlab-backend/internal/services"
)

type VersionHandler struct {
	log      *logger.Logger
	versions services.VersionStoreService
}

func NewVersionHandler(log *logger.Logger, versions services.VersionStoreService) *VersionHandler {
	return &VersionHandler{
		log:      log.With("handler", "VersionHandler"),
		versions: versions,
	}
}

type createVersionRequest struct {
	PackageID     uuid.UUID         `json:"package_id" binding:"required"`
	Files         map[string]string `json:"files" binding:"required"`
	ModuleName    string            `json:"module_name,omitempty"`
	Description   string            `json:"description,omitempty"`
	ChangeSummary string            `json:"change_summary,omitempty"`
	CreatedBy     string            `json:"created_by,omitempty"`
}

func (h *VersionHandler) CreateVersion(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("moduleId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}

	var req createVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	version, err := h.versions.CreateVersion(dbc, moduleID, req.PackageID, req.Files, services.CreateVersionMeta{
		ModuleName:    req.ModuleName,
		Description:   req.Description,
		ChangeSummary: req.ChangeSummary,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		h.log.Error("create version failed", "module_id", moduleID, "error", err)
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, version)
}

func (h *VersionHandler) ListVersions(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("moduleId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	summaries, err := h.versions.ListVersions(dbc, moduleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, summaries)
}

func (h *VersionHandler) GetVersion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	version, err := h.versions.GetVersion(dbc, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, version)
}

func (h *VersionHandler) CompareVersions(c *gin.Context) {
	a, err := uuid.Parse(c.Query("a"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_version_a", err)
		return
	}
	b, err := uuid.Parse(c.Query("b"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_version_b", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	diff, err := h.versions.CompareVersions(dbc, a, b)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, diff)
}

type updateVersionStatusRequest struct {
	Status         string                 `json:"status" binding:"required"`
	DeploymentInfo map[string]interface{} `json:"deployment_info,omitempty"`
}

func (h *VersionHandler) UpdateVersionStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	var req updateVersionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	version, err := h.versions.UpdateVersionStatus(dbc, id, req.Status, req.DeploymentInfo)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, version)
}

type rollbackRequest struct {
	CurrentID uuid.UUID `json:"current_id" binding:"required"`
	TargetID  uuid.UUID `json:"target_id" binding:"required"`
	Reason    string    `json:"reason,omitempty"`
	Actor     string    `json:"actor,omitempty"`
}

func (h *VersionHandler) RollbackToVersion(c *gin.Context) {
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	version, err := h.versions.RollbackToVersion(dbc, req.CurrentID, req.TargetID, req.Reason, req.Actor)
	if err != nil {
		h.log.Error("rollback failed",
			"current_id", req.CurrentID,
			"target_id", req.TargetID,
			"error", err,
		)
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, version)
}

type archiveRequest struct {
	KeepCount int `json:"keep_count" binding:"required"`
}

func (h *VersionHandler) ArchiveOldVersions(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("moduleId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}

	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	archived, err := h.versions.ArchiveOldVersions(dbc, moduleID, req.KeepCount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"archived": archived})
}

func (h *VersionHandler) DeleteArchivedVersions(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("moduleId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	deleted, err := h.versions.DeleteArchivedVersions(dbc, moduleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": deleted})
}

// DownloadArchive streams a version's manifest as a zip.
func (h *VersionHandler) DownloadArchive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	raw, filename, err := h.versions.PackageArchive(dbc, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/zip", raw)
}
