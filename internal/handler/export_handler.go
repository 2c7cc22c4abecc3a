package handler

import (
	"net/http"

	"github.com/finance-tracker/internal/middleware"
	"github.com/finance-tracker/internal/service"
	"github.com/gin-gonic/gin"
)

// ExportHandler handles spreadsheet downloads
type ExportHandler struct {
	exportService *service.ExportService
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// ExportAccounts handles the accounts download
// GET /api/v1/export/accounts?format=xlsx|csv
func (h *ExportHandler) ExportAccounts(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	file, err := h.exportService.ExportAccounts(c.Request.Context(), middleware.GetUserID(c), format)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	sendFile(c, file)
}

// ExportBalanceHistory handles the balance history download
// GET /api/v1/export/balance-history?format=&start_date=&end_date=&account_ids=
func (h *ExportHandler) ExportBalanceHistory(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	filter, ok := parseHistoryFilter(c)
	if !ok {
		return
	}

	file, err := h.exportService.ExportBalanceHistory(c.Request.Context(), middleware.GetUserID(c), format, filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	sendFile(c, file)
}

// ExportStatistics handles the statistics download
// GET /api/v1/export/statistics?format=
func (h *ExportHandler) ExportStatistics(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	file, err := h.exportService.ExportStatistics(c.Request.Context(), middleware.GetUserID(c), format)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// RegisterRoutes registers export routes
func (h *ExportHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	export := rg.Group("/export")
	export.Use(authMiddleware)
	{
		export.GET("/accounts", h.ExportAccounts)
		export.GET("/balance-history", h.ExportBalanceHistory)
		export.GET("/statistics", h.ExportStatistics)
	}
}
