package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tavola-system/internal/gateway/middleware"
	"tavola-system/internal/services/orders"
	"tavola-system/internal/utils"
)

type OrdersHTTPHandler struct {
	orders *orders.Service
}

func NewOrdersHTTPHandler(ordersSvc *orders.Service) *OrdersHTTPHandler {
	return &OrdersHTTPHandler{orders: ordersSvc}
}

type SubmitOrderRequest struct {
	TableID string             `json:"table_id"`
	Lines   []orders.LineInput `json:"lines" binding:"required"`
}

// SubmitOrder accepts orders from staff (table id in the body) and from
// table tokens, which are pinned to their own table regardless of the body.
func (h *OrdersHTTPHandler) SubmitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	tableID := req.TableID
	if c.GetString(middleware.ContextRole) == utils.RoleTable {
		tableID = c.GetString(middleware.ContextTableID)
	}
	if tableID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("table_id is required", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	order, err := h.orders.SubmitOrder(ctx, restaurantID(c), tableID, req.Lines)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Order submitted", order))
}

func (h *OrdersHTTPHandler) Advance(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	order, err := h.orders.Advance(ctx, restaurantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order advanced", order))
}

func (h *OrdersHTTPHandler) MarkLineComplete(c *gin.Context) {
	h.adjustLine(c, true)
}

func (h *OrdersHTTPHandler) UnmarkLineComplete(c *gin.Context) {
	h.adjustLine(c, false)
}

func (h *OrdersHTTPHandler) adjustLine(c *gin.Context, complete bool) {
	lineIndex, err := strconv.Atoi(c.Param("line"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid line index", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	var order interface{}
	if complete {
		order, err = h.orders.MarkLineComplete(ctx, restaurantID(c), c.Param("id"), lineIndex)
	} else {
		order, err = h.orders.UnmarkLineComplete(ctx, restaurantID(c), c.Param("id"), lineIndex)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Line updated", order))
}

func (h *OrdersHTTPHandler) ListOrders(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	if tableID := c.Query("table_id"); tableID != "" {
		list, err := h.orders.ListByTable(ctx, restaurantID(c), tableID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, successResponse("Orders retrieved", list))
		return
	}

	list, err := h.orders.ListOrders(ctx, restaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Orders retrieved", list))
}

func (h *OrdersHTTPHandler) History(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	history, err := h.orders.History(ctx, restaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order history retrieved", history))
}
