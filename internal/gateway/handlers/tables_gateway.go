package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tavola-system/internal/gateway/middleware"
	"tavola-system/internal/services/orders"
	"tavola-system/internal/services/tables"
)

type TablesHTTPHandler struct {
	tables *tables.Service
	orders *orders.Service
}

func NewTablesHTTPHandler(tablesSvc *tables.Service, ordersSvc *orders.Service) *TablesHTTPHandler {
	return &TablesHTTPHandler{tables: tablesSvc, orders: ordersSvc}
}

type CreateTableRequest struct {
	Name string `json:"name" binding:"required"`
}

type OpenSessionRequest struct {
	PartyCount int `json:"party_count" binding:"required,min=1"`
}

type SettleRequest struct {
	CustomerID *string `json:"customer_id,omitempty"`
}

func (h *TablesHTTPHandler) CreateTable(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	table, err := h.tables.CreateTable(ctx, restaurantID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Table created", table))
}

func (h *TablesHTTPHandler) ListTables(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.tables.ListTables(ctx, restaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Tables retrieved", list))
}

func (h *TablesHTTPHandler) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	table, err := h.tables.OpenSession(ctx, restaurantID(c), c.Param("id"), req.PartyCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Session opened", table))
}

func (h *TablesHTTPHandler) AcknowledgeServed(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	table, err := h.tables.AcknowledgeServed(ctx, restaurantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Serving acknowledged", table))
}

func (h *TablesHTTPHandler) RequestBill(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	table, err := h.tables.RequestBill(ctx, restaurantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Bill requested", table))
}

func (h *TablesHTTPHandler) Settle(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	settlement, err := h.tables.Settle(ctx, restaurantID(c), c.Param("id"), req.CustomerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table settled", map[string]interface{}{
		"table":  settlement.Table,
		"orders": settlement.Entries,
		"totals": map[string]string{
			"metered_total":    formatMoney(settlement.Totals.MeteredTotal),
			"cover_charge":     formatMoney(settlement.Totals.CoverCharge),
			"flat_rate_charge": formatMoney(settlement.Totals.FlatRateCharge),
			"total":            formatMoney(settlement.Totals.Total),
		},
	}))
}

func (h *TablesHTTPHandler) MarkReady(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	table, err := h.tables.MarkReady(ctx, restaurantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Table ready", table))
}

// RunningTotal is the live bill preview for a table's open session.
func (h *TablesHTTPHandler) RunningTotal(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	totals, err := h.orders.RunningTotal(ctx, restaurantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Running total", map[string]string{
		"metered_total":    formatMoney(totals.MeteredTotal),
		"cover_charge":     formatMoney(totals.CoverCharge),
		"flat_rate_charge": formatMoney(totals.FlatRateCharge),
		"total":            formatMoney(totals.Total),
	}))
}

func restaurantID(c *gin.Context) string {
	return c.GetString(middleware.ContextRestaurantID)
}

func reqContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}
