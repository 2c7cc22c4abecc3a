package handler

import (
	"github.com/finance-tracker/internal/middleware"
	"github.com/finance-tracker/internal/service"
	"github.com/finance-tracker/pkg/response"
	"github.com/gin-gonic/gin"
)

// AccountHandler handles account, balance history and statistics API requests
type AccountHandler struct {
	accountService    *service.AccountService
	statisticsService *service.StatisticsService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService, statisticsService *service.StatisticsService) *AccountHandler {
	return &AccountHandler{
		accountService:    accountService,
		statisticsService: statisticsService,
	}
}

// CreateAccount handles account creation
// POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, account)
}

// GetAccounts handles listing the authenticated user's active accounts
// GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, accounts)
}

// GetAccount handles getting a single account
// GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID, ok := parseID(c, "id")
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), accountID, middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, account)
}

// UpdateAccount handles renaming or retyping an account
// PUT /api/v1/accounts/:id
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	accountID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), accountID, middleware.GetUserID(c), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, account)
}

// DeleteAccount handles soft-deleting an account
// DELETE /api/v1/accounts/:id
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID, ok := parseID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.accountService.SoftDeleteAccount(c.Request.Context(), accountID, middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !deleted {
		response.NotFound(c, "account not found")
		return
	}

	response.NoContent(c)
}

// UpdateBalance handles setting a new account balance
// POST /api/v1/accounts/:id/balance
func (h *AccountHandler) UpdateBalance(c *gin.Context) {
	accountID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.UpdateBalance(c.Request.Context(), accountID, middleware.GetUserID(c), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, account)
}

// GetAccountHistory handles one account's balance history
// GET /api/v1/accounts/:id/balance-history
func (h *AccountHandler) GetAccountHistory(c *gin.Context) {
	accountID, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, pageSize, ok := parsePage(c)
	if !ok {
		return
	}

	history, err := h.accountService.GetBalanceHistory(c.Request.Context(), accountID, middleware.GetUserID(c), page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessPaginated(c, history.Items, history.Total, history.Page, history.PageSize)
}

// GetUserHistory handles the balance history across all of the user's accounts
// GET /api/v1/balance-history
func (h *AccountHandler) GetUserHistory(c *gin.Context) {
	filter, ok := parseHistoryFilter(c)
	if !ok {
		return
	}
	page, pageSize, ok := parsePage(c)
	if !ok {
		return
	}

	history, err := h.accountService.GetUserBalanceHistory(c.Request.Context(), middleware.GetUserID(c), filter, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessPaginated(c, history.Items, history.Total, history.Page, history.PageSize)
}

// GetStatistics handles the portfolio statistics view
// GET /api/v1/accounts/statistics
func (h *AccountHandler) GetStatistics(c *gin.Context) {
	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, stats)
}

// RegisterRoutes registers account routes
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	accounts := rg.Group("/accounts")
	accounts.Use(authMiddleware)
	{
		accounts.GET("", h.GetAccounts)
		accounts.POST("", h.CreateAccount)
		accounts.GET("/statistics", h.GetStatistics)
		accounts.GET("/:id", h.GetAccount)
		accounts.PUT("/:id", h.UpdateAccount)
		accounts.DELETE("/:id", h.DeleteAccount)
		accounts.POST("/:id/balance", h.UpdateBalance)
		accounts.GET("/:id/balance-history", h.GetAccountHistory)
	}

	rg.GET("/balance-history", authMiddleware, h.GetUserHistory)
}
