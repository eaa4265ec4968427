// Package http provides HTTP handlers for groups, pseudonyms and master keys.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/pseudonyms/internal/httputil"
	"github.com/allisson/pseudonyms/internal/pseudonym/http/dto"
	pseudonymUseCase "github.com/allisson/pseudonyms/internal/pseudonym/usecase"
	customValidation "github.com/allisson/pseudonyms/internal/validation"
)

// GroupHandler handles HTTP requests for group lifecycle and migration.
type GroupHandler struct {
	pseudonymUseCase pseudonymUseCase.PseudonymUseCase
	migrationUseCase pseudonymUseCase.MigrationUseCase
	logger           *slog.Logger
}

// NewGroupHandler creates a new group handler with required dependencies.
func NewGroupHandler(
	pseudonymUseCase pseudonymUseCase.PseudonymUseCase,
	migrationUseCase pseudonymUseCase.MigrationUseCase,
	logger *slog.Logger,
) *GroupHandler {
	return &GroupHandler{
		pseudonymUseCase: pseudonymUseCase,
		migrationUseCase: migrationUseCase,
		logger:           logger,
	}
}

// CreateHandler creates a group owned by the caller.
// POST /v1/groups - Returns 201 Created.
func (h *GroupHandler) CreateHandler(c *gin.Context) {
	requester, err := requesterID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	group, err := h.pseudonymUseCase.CreateGroup(c.Request.Context(), requester, req.Name)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapGroupToResponse(group))
}

// DeleteHandler deletes a group and all of its members.
// DELETE /v1/groups/:group_id - Owner only. Returns 204 No Content.
func (h *GroupHandler) DeleteHandler(c *gin.Context) {
	requester, err := requesterID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	groupID, err := int64Param(c, "group_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.pseudonymUseCase.DeleteGroup(c.Request.Context(), requester, groupID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// MigrateHandler encrypts every plaintext member of the group.
// POST /v1/groups/:group_id/migrate - Owner only. Returns 200 OK with the report,
// 423 Locked when another migration of the group is running.
func (h *GroupHandler) MigrateHandler(c *gin.Context) {
	requester, err := requesterID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	groupID, err := int64Param(c, "group_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	report, err := h.migrationUseCase.MigrateGroupAs(c.Request.Context(), requester, groupID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMigrationReportToResponse(report))
}
