package handler

import (
	"net/http"

	"garmentflow/internal/middleware"
	"garmentflow/internal/service"
	"garmentflow/pkg/pagination"
	"garmentflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, guard middleware.Guard) {
	group := router.Group("/api/audit-logs")
	group.Use(guard(middleware.PermAuditRead))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs pages through supervisor actions, newest first
// @Summary      Get audit logs
// @Description  Lists who started, split, advanced or assigned what, and every work log change
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        action  query     string  false  "Only this action, e.g. CREATE_REJECTION"
// @Success      200     {object}  response.Response{data=response.Paged}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), params.Page, params.Limit, c.Query("action"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Wrap(logs, total)))
}
