package handler

import (
	"net/http"
	"time"

	"garmentflow/internal/middleware"
	"garmentflow/internal/service"
	"garmentflow/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type WageHandler struct {
	wageService service.WageService
}

func NewWageHandler(wageService service.WageService) *WageHandler {
	return &WageHandler{wageService: wageService}
}

func (h *WageHandler) RegisterRoutes(router *gin.RouterGroup, guard middleware.Guard) {
	read := guard(middleware.PermWagesRead)

	api := router.Group("/api")
	{
		api.GET("/sub-batches/:id/wages", read, h.GetSubBatchWageSummary)
		api.GET("/wages/workers", read, h.CalculateAllWorkersWages)
		api.GET("/wages/workers/:id", read, h.CalculateWorkerWages)
		api.GET("/wages/departments/:id", read, h.GetDepartmentWageSummary)
		api.GET("/wages/export", read, h.ExportWorkerWages)
	}
}

func dateRange(c *gin.Context) (service.DateRange, error) {
	return service.ParseDateRange(c.Query("start_date"), c.Query("end_date"))
}

// CalculateWorkerWages returns one worker's pay with the logs behind it
// @Summary      Worker wages
// @Tags         wages
// @Security     BearerAuth
// @Produce      json
// @Param        id          path      string  true   "Worker ID"
// @Param        start_date  query     string  false  "From date (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "To date (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=service.WorkerWages}
// @Failure      400         {object}  response.Response
// @Failure      404         {object}  response.Response
// @Router       /api/wages/workers/{id} [get]
func (h *WageHandler) CalculateWorkerWages(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	wages, err := h.wageService.CalculateWorkerWages(c.Request.Context(), c.Param("id"), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wages))
}

// CalculateAllWorkersWages lists every worker's pay, highest billable first
// @Summary      All worker wages
// @Tags         wages
// @Security     BearerAuth
// @Produce      json
// @Param        start_date     query     string  false  "From date (YYYY-MM-DD)"
// @Param        end_date       query     string  false  "To date (YYYY-MM-DD)"
// @Param        department_id  query     string  false  "Only workers of this department"
// @Success      200            {object}  response.Response{data=[]service.WorkerWageSummary}
// @Failure      400            {object}  response.Response
// @Failure      404            {object}  response.Response
// @Router       /api/wages/workers [get]
func (h *WageHandler) CalculateAllWorkersWages(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	summaries, err := h.wageService.CalculateAllWorkersWages(c.Request.Context(), r, c.Query("department_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summaries))
}

// GetDepartmentWageSummary totals a department's pay
// @Summary      Department wages
// @Tags         wages
// @Security     BearerAuth
// @Produce      json
// @Param        id          path      string  true   "Department ID"
// @Param        start_date  query     string  false  "From date (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "To date (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=service.DepartmentWageSummary}
// @Failure      400         {object}  response.Response
// @Failure      404         {object}  response.Response
// @Router       /api/wages/departments/{id} [get]
func (h *WageHandler) GetDepartmentWageSummary(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	summary, err := h.wageService.GetDepartmentWageSummary(c.Request.Context(), c.Param("id"), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// GetSubBatchWageSummary totals the labour cost of one sub-batch
// @Summary      Sub-batch wages
// @Tags         wages
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sub-batch ID"
// @Success      200  {object}  response.Response{data=service.SubBatchWageSummary}
// @Failure      404  {object}  response.Response
// @Router       /api/sub-batches/{id}/wages [get]
func (h *WageHandler) GetSubBatchWageSummary(c *gin.Context) {
	summary, err := h.wageService.GetSubBatchWageSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ExportWorkerWages downloads the worker wage summary as a spreadsheet
// @Summary      Export worker wages
// @Tags         wages
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        start_date     query     string  false  "From date (YYYY-MM-DD)"
// @Param        end_date       query     string  false  "To date (YYYY-MM-DD)"
// @Param        department_id  query     string  false  "Only workers of this department"
// @Success      200            {file}    file
// @Failure      400            {object}  response.Response
// @Failure      404            {object}  response.Response
// @Router       /api/wages/export [get]
func (h *WageHandler) ExportWorkerWages(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	workbook, err := h.wageService.ExportWorkerWages(c.Request.Context(), r, c.Query("department_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	filename := "worker-wages-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, workbook)
}
