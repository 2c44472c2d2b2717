package handler

import (
	"net/http"

	"garmentflow/internal/middleware"
	"garmentflow/internal/service"
	"garmentflow/pkg/pagination"
	"garmentflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkLogHandler struct {
	workLogService service.WorkLogService
}

func NewWorkLogHandler(workLogService service.WorkLogService) *WorkLogHandler {
	return &WorkLogHandler{workLogService: workLogService}
}

func (h *WorkLogHandler) RegisterRoutes(router *gin.RouterGroup, guard middleware.Guard) {
	logs := router.Group("/api/work-logs")
	{
		logs.GET("", guard(middleware.PermProductionRead), h.ListWorkLogs)
		logs.POST("", guard(middleware.PermProductionWrite), h.RecordWorkLog)
		logs.PUT("/:id", guard(middleware.PermProductionWrite), h.UpdateWorkLog)
		logs.DELETE("/:id", guard(middleware.PermProductionWrite), h.DeleteWorkLog)
	}
}

// ListWorkLogs pages through the logs of a sub-batch at a stage
// @Summary      List work logs
// @Tags         work-logs
// @Security     BearerAuth
// @Produce      json
// @Param        sub_batch_id  query     string  true   "Sub-batch ID"
// @Param        stage_id      query     string  true   "Stage ID"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Number of items per page (default 20)"
// @Success      200           {object}  response.Response{data=response.Paged}
// @Failure      400           {object}  response.Response
// @Router       /api/work-logs [get]
func (h *WorkLogHandler) ListWorkLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.workLogService.ListWorkLogs(c.Request.Context(), c.Query("sub_batch_id"), c.Query("stage_id"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Wrap(logs, total)))
}

// RecordWorkLog records a worker's output against the active tranche
// @Summary      Record work log
// @Tags         work-logs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordWorkLogRequest  true  "Work Log Payload"
// @Success      201      {object}  response.Response{data=model.WorkLog}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-logs [post]
func (h *WorkLogHandler) RecordWorkLog(c *gin.Context) {
	var req service.RecordWorkLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	log, err := h.workLogService.RecordWorkLog(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, log))
}

// UpdateWorkLog corrects a log while its tranche is open
// @Summary      Update work log
// @Tags         work-logs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Work log ID"
// @Param        payload  body      service.UpdateWorkLogRequest  true  "Fields to correct"
// @Success      200      {object}  response.Response{data=model.WorkLog}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-logs/{id} [put]
func (h *WorkLogHandler) UpdateWorkLog(c *gin.Context) {
	var req service.UpdateWorkLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	log, err := h.workLogService.UpdateWorkLog(c.Request.Context(), middleware.ActorID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, log))
}

// DeleteWorkLog removes a log no split record refers to
// @Summary      Delete work log
// @Tags         work-logs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work log ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/work-logs/{id} [delete]
func (h *WorkLogHandler) DeleteWorkLog(c *gin.Context) {
	if err := h.workLogService.DeleteWorkLog(c.Request.Context(), middleware.ActorID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Work log deleted"}))
}
