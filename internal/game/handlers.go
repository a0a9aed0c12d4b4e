package game

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/chipvault/internal/validation"
)

// Handler provides HTTP endpoints for game escrow operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new game handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public (read-only) game routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/games/:id", h.GetGame)
	r.GET("/games/:id/info", h.GetGameInfo)
	r.GET("/arbiters/:address/games", h.ListGames)
}

// RegisterProtectedRoutes sets up protected (auth-required) game routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/games", h.CreateGame)
	r.POST("/games/:id/join", h.JoinGame)
	r.POST("/games/:id/start", h.StartHand)
	r.POST("/games/:id/distribute", h.DistributePot)
	r.POST("/games/:id/refund", h.EmergencyRefund)
	r.POST("/games/:id/abandon", h.AbandonGame)
	r.POST("/games/:id/close", h.CloseGame)
}

// CreateGame handles POST /v1/games
func (h *Handler) CreateGame(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.ValidChipAmount("buy_in", req.BuyIn),
		validation.ValidLength("hand_label", req.HandLabel, 1, MaxHandLabelLen),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	arbiterAddr := c.GetString("authPlayerAddr") // Set by auth middleware
	g, err := h.service.Create(c.Request.Context(), arbiterAddr, req)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrInvalidPlayerCount), errors.Is(err, ErrInvalidBuyIn),
			errors.Is(err, ErrInvalidHandLabel), errors.Is(err, ErrInvalidGameMode):
			status = http.StatusBadRequest
			code = "validation_error"
		case errors.Is(err, ErrGameAlreadyExists):
			status = http.StatusConflict
			code = "already_exists"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"game": g})
}

// GetGame handles GET /v1/games/:id
func (h *Handler) GetGame(c *gin.Context) {
	id := c.Param("id")

	g, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Game not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": g})
}

// GetGameInfo handles GET /v1/games/:id/info
func (h *Handler) GetGameInfo(c *gin.Context) {
	id := c.Param("id")

	info, err := h.service.Info(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Game not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"info": info})
}

// ListGames handles GET /v1/arbiters/:address/games
func (h *Handler) ListGames(c *gin.Context) {
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

	games, next, err := h.service.ListByArbiter(c.Request.Context(), address, c.Query("cursor"), limit)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_cursor",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	resp := gin.H{
		"games": games,
		"count": len(games),
	}
	if next != "" {
		resp["nextCursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// JoinGame handles POST /v1/games/:id/join
func (h *Handler) JoinGame(c *gin.Context) {
	id := c.Param("id")
	callerAddr := c.GetString("authPlayerAddr")

	g, err := h.service.Join(c.Request.Context(), id, callerAddr)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrGameNotFound):
			status = http.StatusNotFound
			code = "not_found"
		case errors.Is(err, ErrGameNotPending), errors.Is(err, ErrGameFull):
			status = http.StatusConflict
			code = "invalid_state"
		case errors.Is(err, ErrPlayerAlreadyJoined):
			status = http.StatusConflict
			code = "already_joined"
		case errors.Is(err, ErrInsufficientBalance):
			status = http.StatusPaymentRequired
			code = "insufficient_balance"
		case errors.Is(err, ErrMathOverflow):
			status = http.StatusBadRequest
			code = "invalid_amount"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": g})
}

// StartHand handles POST /v1/games/:id/start
func (h *Handler) StartHand(c *gin.Context) {
	id := c.Param("id")
	callerAddr := c.GetString("authPlayerAddr")

	// Body is optional; a bare start keeps the current hand label
	var req struct {
		HandLabel string `json:"handLabel"`
	}
	_ = c.ShouldBindJSON(&req)

	g, err := h.service.Start(c.Request.Context(), id, callerAddr, req.HandLabel)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrGameNotFound):
			status = http.StatusNotFound
			code = "not_found"
		case errors.Is(err, ErrUnauthorized):
			status = http.StatusForbidden
			code = "unauthorized"
		case errors.Is(err, ErrGameNotPending), errors.Is(err, ErrNotEnoughPlayers):
			status = http.StatusConflict
			code = "invalid_state"
		case errors.Is(err, ErrInvalidHandLabel):
			status = http.StatusBadRequest
			code = "validation_error"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": g})
}

// DistributePot handles POST /v1/games/:id/distribute
func (h *Handler) DistributePot(c *gin.Context) {
	id := c.Param("id")
	callerAddr := c.GetString("authPlayerAddr")

	var req DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "winner, amount, and handLabel are required",
		})
		return
	}

	if errs := validation.Validate(
		validation.ValidAddress("winner", req.Winner),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
		})
		return
	}

	g, err := h.service.DistributePot(c.Request.Context(), id, callerAddr, req)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrGameNotFound):
			status = http.StatusNotFound
			code = "not_found"
		case errors.Is(err, ErrUnauthorized):
			status = http.StatusForbidden
			code = "unauthorized"
		case errors.Is(err, ErrGameNotActive):
			status = http.StatusConflict
			code = "invalid_state"
		case errors.Is(err, ErrPlayerNotInGame):
			status = http.StatusBadRequest
			code = "player_not_in_game"
		case errors.Is(err, ErrPayoutMismatch):
			status = http.StatusBadRequest
			code = "payout_mismatch"
		case errors.Is(err, ErrInvalidHandResult):
			status = http.StatusBadRequest
			code = "invalid_hand_result"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": g})
}

// EmergencyRefund handles POST /v1/games/:id/refund
func (h *Handler) EmergencyRefund(c *gin.Context) {
	id := c.Param("id")
	callerAddr := c.GetString("authPlayerAddr")

	refund, err := h.service.EmergencyRefund(c.Request.Context(), id, callerAddr)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrGameNotFound):
			status = http.StatusNotFound
			code = "not_found"
		case errors.Is(err, ErrPlayerNotInGame):
			status = http.StatusForbidden
			code = "player_not_in_game"
		case errors.Is(err, ErrRefundTimeoutNotReached):
			status = http.StatusConflict
			code = "refund_not_available"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"refund": refund})
}

// AbandonGame handles POST /v1/games/:id/abandon
func (h *Handler) AbandonGame(c *gin.Context) {
	id := c.Param("id")
	callerAddr := c.GetString("authPlayerAddr")

	g, err := h.service.Abandon(c.Request.Context(), id, callerAddr)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrGameNotFound):
			status = http.StatusNotFound
			code = "not_found"
		case errors.Is(err, ErrUnauthorized):
			status = http.StatusForbidden
			code = "unauthorized"
		case errors.Is(err, ErrGameNotPending):
			status = http.StatusConflict
			code = "invalid_state"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": g})
}

// CloseGame handles POST /v1/games/:id/close
func (h *Handler) CloseGame(c *gin.Context) {
	id := c.Param("id")
	callerAddr := c.GetString("authPlayerAddr")

	if err := h.service.Close(c.Request.Context(), id, callerAddr); err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrGameNotFound):
			status = http.StatusNotFound
			code = "not_found"
		case errors.Is(err, ErrUnauthorized):
			status = http.StatusForbidden
			code = "unauthorized"
		case errors.Is(err, ErrGameNotCompleted), errors.Is(err, ErrPotNotEmpty):
			status = http.StatusConflict
			code = "invalid_state"
		case errors.Is(err, ErrInvalidGameMode):
			status = http.StatusBadRequest
			code = "invalid_game_mode"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"closed": true})
}
