package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/chipvault/internal/validation"
)

// Handler provides HTTP endpoints for ledger operations.
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a new ledger handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// RegisterRoutes sets up public (read-only) ledger routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/players/:address/balance", h.GetBalance)
	r.GET("/players/:address/history", h.GetHistory)
}

// RegisterProtectedRoutes sets up protected (auth-required) ledger routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/players/withdraw", h.Withdraw)
}

// RegisterAdminRoutes sets up admin-only ledger routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/deposits", h.Deposit)
}

// GetBalance handles GET /v1/players/:address/balance
func (h *Handler) GetBalance(c *gin.Context) {
	address := c.Param("address")

	if errs := validation.Validate(validation.ValidAddress("address", address)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
		})
		return
	}

	bal, err := h.ledger.GetBalance(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": bal})
}

// GetHistory handles GET /v1/players/:address/history
func (h *Handler) GetHistory(c *gin.Context) {
	address := c.Param("address")
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 200 {
				limit = 200
			}
		}
	}

	entries, err := h.ledger.GetHistory(c.Request.Context(), address, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// DepositRequest is the admin chip on-ramp request.
type DepositRequest struct {
	PlayerAddr string `json:"playerAddr" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
	Reference  string `json:"reference" binding:"required"`
}

// Deposit handles POST /v1/admin/deposits
func (h *Handler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "playerAddr, amount, and reference are required",
		})
		return
	}

	if errs := validation.Validate(
		validation.ValidAddress("player_addr", req.PlayerAddr),
		validation.ValidChipAmount("amount", req.Amount),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	err := h.ledger.Deposit(c.Request.Context(), req.PlayerAddr, req.Amount, req.Reference)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrDuplicateDeposit):
			status = http.StatusConflict
			code = "duplicate_deposit"
		case errors.Is(err, ErrInvalidAmount):
			status = http.StatusBadRequest
			code = "invalid_amount"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"credited": req.Amount})
}

// WithdrawRequest is the player cash-out request.
type WithdrawRequest struct {
	Amount    int64  `json:"amount" binding:"required"`
	Reference string `json:"reference"`
}

// Withdraw handles POST /v1/players/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	callerAddr := c.GetString("authPlayerAddr")

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "amount is required",
		})
		return
	}

	err := h.ledger.Withdraw(c.Request.Context(), callerAddr, req.Amount, req.Reference)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrInsufficientBalance):
			status = http.StatusPaymentRequired
			code = "insufficient_balance"
		case errors.Is(err, ErrInvalidAmount):
			status = http.StatusBadRequest
			code = "invalid_amount"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawn": req.Amount})
}
