package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	"github.com/allisson/pseudonyms/internal/httputil"
	"github.com/allisson/pseudonyms/internal/pseudonym/http/dto"
	pseudonymUseCase "github.com/allisson/pseudonyms/internal/pseudonym/usecase"
	customValidation "github.com/allisson/pseudonyms/internal/validation"
)

// PseudonymHandler handles HTTP requests for pseudonyms, mappings and master keys.
type PseudonymHandler struct {
	pseudonymUseCase pseudonymUseCase.PseudonymUseCase
	logger           *slog.Logger
}

// NewPseudonymHandler creates a new pseudonym handler with required dependencies.
func NewPseudonymHandler(
	pseudonymUseCase pseudonymUseCase.PseudonymUseCase,
	logger *slog.Logger,
) *PseudonymHandler {
	return &PseudonymHandler{
		pseudonymUseCase: pseudonymUseCase,
		logger:           logger,
	}
}

// GenerateHandler generates pseudonyms for a batch of real identifiers.
// POST /v1/groups/:group_id/pseudonyms - Owner only.
// Returns 200 OK with one entry per identifier, in request order.
func (h *PseudonymHandler) GenerateHandler(c *gin.Context) {
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

	var req dto.GeneratePseudonymsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	results, err := h.pseudonymUseCase.GeneratePseudonyms(
		c.Request.Context(),
		requester,
		groupID,
		req.RealIdentifiers,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapGeneratedToResponse(results))
}

// ListHandler lists the pseudonyms of a group.
// GET /v1/groups/:group_id/pseudonyms - Any authenticated principal.
func (h *PseudonymHandler) ListHandler(c *gin.Context) {
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

	views, err := h.pseudonymUseCase.ListPseudonyms(c.Request.Context(), requester, groupID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapViewsToListResponse(views))
}

// DecryptMappingHandler re-identifies every member of the group.
// POST /v1/groups/:group_id/mapping/decrypt - Owner only, with the owner's master key.
// Every authorization failure, including a missing or malformed key, returns the same
// 403 Forbidden.
func (h *PseudonymHandler) DecryptMappingHandler(c *gin.Context) {
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

	var req dto.DecryptMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	// A malformed key still goes to the gate so the attempt is audited and denied.
	key := req.DecodeKey()
	defer cryptoDomain.Zero(key)

	mapping, err := h.pseudonymUseCase.DecryptMapping(c.Request.Context(), requester, groupID, key)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MappingResponse{Mapping: mapping})
}

// RenameMemberHandler replaces a member's real identifier, keeping its pseudonym.
// PUT /v1/groups/:group_id/members/:pseudonym - Owner only.
func (h *PseudonymHandler) RenameMemberHandler(c *gin.Context) {
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

	pseudonym, err := pseudonymParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.RenameMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.pseudonymUseCase.RenameMember(
		c.Request.Context(),
		requester,
		groupID,
		pseudonym,
		req.RealIdentifier,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapGeneratedPseudonymToResponse(result))
}

// RemoveMemberHandler removes a member from the group.
// DELETE /v1/groups/:group_id/members/:pseudonym - Owner only. Returns 204 No Content.
func (h *PseudonymHandler) RemoveMemberHandler(c *gin.Context) {
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

	pseudonym, err := pseudonymParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.pseudonymUseCase.RemoveMember(c.Request.Context(), requester, groupID, pseudonym); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// GetMasterKeyHandler returns the caller's own master key.
// GET /v1/principals/:principal_id/master-key - Only for principal_id equal to the caller.
// SECURITY: The key is zeroed after the response is written.
func (h *PseudonymHandler) GetMasterKeyHandler(c *gin.Context) {
	requester, err := requesterID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	principalID, err := int64Param(c, "principal_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	key, err := h.pseudonymUseCase.GetMasterKey(c.Request.Context(), requester, principalID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(key)

	c.JSON(http.StatusOK, dto.MapMasterKeyToResponse(principalID, key))
}
