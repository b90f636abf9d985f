package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/dto"
	"github.com/forumhub/auth-service/internal/repository"
	"github.com/forumhub/auth-service/internal/service"
)

// AdminHandler handles administrative requests
type AdminHandler struct {
	authService service.AuthService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService service.AuthService) *AdminHandler {
	return &AdminHandler{
		authService: authService,
	}
}

// ChangeRole updates a user's role
// @Summary Change a user's role
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body dto.RoleChangeRequest true "Role change request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/users/{id}/role [patch]
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	var req dto.RoleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := h.authService.ChangeRole(c.Request.Context(), actorClaims(c), c.Param("id"), domain.Role(req.Role), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Role updated successfully",
	})
}

// ListLogs returns security log entries matching the query filters
// @Summary List security log entries
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param event_type query string false "Event type"
// @Param severity query string false "Severity"
// @Param username query string false "Username"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} domain.SecurityEvent
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/logs [get]
func (h *AdminHandler) ListLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	filter := repository.LogFilter{
		EventType: domain.EventType(c.Query("event_type")),
		Severity:  domain.Severity(c.Query("severity")),
		Username:  c.Query("username"),
		Limit:     limit,
		Offset:    offset,
	}

	events, err := h.authService.ListSecurityLog(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}
