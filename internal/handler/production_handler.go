package handler

import (
	"net/http"

	"garmentflow/internal/middleware"
	"garmentflow/internal/service"
	"garmentflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProductionHandler serves the ledger: starts, splits, hand-offs, assignments and their read views
type ProductionHandler struct {
	transitionService service.TransitionService
	taskService       service.TaskService
	historyService    service.HistoryService
}

func NewProductionHandler(
	transitionService service.TransitionService,
	taskService service.TaskService,
	historyService service.HistoryService,
) *ProductionHandler {
	return &ProductionHandler{
		transitionService: transitionService,
		taskService:       taskService,
		historyService:    historyService,
	}
}

func (h *ProductionHandler) RegisterRoutes(router *gin.RouterGroup, guard middleware.Guard) {
	read := guard(middleware.PermProductionRead)
	write := guard(middleware.PermProductionWrite)

	api := router.Group("/api")
	{
		api.POST("/sub-batches/:id/start", write, h.StartSubBatch)
		api.GET("/sub-batches/:id/history", read, h.GetSubBatchHistory)
		api.GET("/sub-batches/:id/ledger", read, h.ListLedgerEntries)
		api.GET("/tasks", read, h.GetTaskDetails)
		api.GET("/ledger-entries/active", read, h.FindActiveEntry)
		api.POST("/ledger-entries/:id/advance", write, h.Advance)
		api.PUT("/ledger-entries/:id/worker", write, h.AssignWorker)
		api.POST("/rejections", write, h.CreateRejection)
		api.POST("/alterations", write, h.CreateAlteration)
	}
}

// StartSubBatch places a sub-batch at the first stage of its workflow
// @Summary      Start sub-batch
// @Description  Creates the first MAIN tranche of a sub-batch at the first stage of its workflow
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sub-batch ID"
// @Success      201  {object}  response.Response{data=service.TransitionResult}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/sub-batches/{id}/start [post]
func (h *ProductionHandler) StartSubBatch(c *gin.Context) {
	result, err := h.transitionService.StartSubBatch(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetSubBatchHistory returns the planned route and every recorded arrival
// @Summary      Sub-batch history
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sub-batch ID"
// @Success      200  {object}  response.Response{data=service.SubBatchHistory}
// @Failure      404  {object}  response.Response
// @Router       /api/sub-batches/{id}/history [get]
func (h *ProductionHandler) GetSubBatchHistory(c *gin.Context) {
	history, err := h.historyService.GetSubBatchHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// ListLedgerEntries returns every tranche of a sub-batch
// @Summary      Sub-batch ledger
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sub-batch ID"
// @Success      200  {object}  response.Response{data=[]model.LedgerEntry}
// @Failure      404  {object}  response.Response
// @Router       /api/sub-batches/{id}/ledger [get]
func (h *ProductionHandler) ListLedgerEntries(c *gin.Context) {
	entries, err := h.transitionService.ListLedgerEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// GetTaskDetails returns the work of one sub-batch at one stage
// @Summary      Task details
// @Description  Totals, per-worker rows, status and route of a sub-batch at a stage
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Param        sub_batch_id  query     string  true  "Sub-batch ID"
// @Param        stage_id      query     string  true  "Stage ID"
// @Success      200           {object}  response.Response{data=service.TaskDetailsView}
// @Failure      400           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/tasks [get]
func (h *ProductionHandler) GetTaskDetails(c *gin.Context) {
	view, err := h.taskService.GetTaskDetails(c.Request.Context(), c.Query("sub_batch_id"), c.Query("stage_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// FindActiveEntry returns the open tranche of a sub-batch at a stage
// @Summary      Active ledger entry
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Param        sub_batch_id  query     string  true  "Sub-batch ID"
// @Param        stage_id      query     string  true  "Stage ID"
// @Success      200           {object}  response.Response{data=model.LedgerEntry}
// @Failure      404           {object}  response.Response
// @Router       /api/ledger-entries/active [get]
func (h *ProductionHandler) FindActiveEntry(c *gin.Context) {
	entry, err := h.transitionService.FindActiveEntry(c.Request.Context(), c.Query("sub_batch_id"), c.Query("stage_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// Advance hands quantity of a tranche on to another stage
// @Summary      Advance tranche
// @Tags         production
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Ledger entry ID"
// @Param        payload  body      service.AdvanceRequest  true  "Advance Payload"
// @Success      201      {object}  response.Response{data=service.TransitionResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/ledger-entries/{id}/advance [post]
func (h *ProductionHandler) Advance(c *gin.Context) {
	var req service.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	result, err := h.transitionService.Advance(c.Request.Context(), middleware.ActorID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// AssignWorker sets or clears the worker of a tranche
// @Summary      Assign worker
// @Tags         production
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Ledger entry ID"
// @Param        payload  body      service.AssignWorkerRequest  true  "Worker, null to clear"
// @Success      200      {object}  response.Response{data=model.LedgerEntry}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/ledger-entries/{id}/worker [put]
func (h *ProductionHandler) AssignWorker(c *gin.Context) {
	var req service.AssignWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	entry, err := h.transitionService.AssignWorker(c.Request.Context(), middleware.ActorID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// CreateRejection returns defective pieces to an earlier stage
// @Summary      Create rejection
// @Tags         production
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRejectionRequest  true  "Rejection Payload"
// @Success      201      {object}  response.Response{data=service.RejectionResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/rejections [post]
func (h *ProductionHandler) CreateRejection(c *gin.Context) {
	var req service.CreateRejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	result, err := h.transitionService.CreateRejection(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// CreateAlteration sends pieces to a stage for alteration
// @Summary      Create alteration
// @Tags         production
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAlterationRequest  true  "Alteration Payload"
// @Success      201      {object}  response.Response{data=service.AlterationResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/alterations [post]
func (h *ProductionHandler) CreateAlteration(c *gin.Context) {
	var req service.CreateAlterationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	result, err := h.transitionService.CreateAlteration(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}
