package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tavola-system/internal/services/catalog"
	"tavola-system/internal/services/tables"
	"tavola-system/internal/utils"
)

type AuthHTTPHandler struct {
	catalog  *catalog.Service
	tables   *tables.Service
	tokenTTL time.Duration
}

func NewAuthHTTPHandler(catalogSvc *catalog.Service, tablesSvc *tables.Service, tokenTTL time.Duration) *AuthHTTPHandler {
	return &AuthHTTPHandler{catalog: catalogSvc, tables: tablesSvc, tokenTTL: tokenTTL}
}

type StaffLoginRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	StaffCode    string `json:"staff_code" binding:"required"`
}

type TableLoginRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	TableID      string `json:"table_id" binding:"required"`
	Pin          string `json:"pin" binding:"required"`
}

// StaffLogin checks the restaurant's static staff code and issues a staff
// token scoped to that restaurant.
func (h *AuthHTTPHandler) StaffLogin(c *gin.Context) {
	var req StaffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.catalog.GetConfig(ctx, req.RestaurantID)
	if err != nil || cfg.StaffCode == "" || cfg.StaffCode != req.StaffCode {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid credentials", "UNAUTHORIZED"))
		return
	}

	token, expiresAt, err := utils.GenerateToken(req.RestaurantID, "", utils.RoleStaff, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Token generation failed", "INTERNAL"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Logged in", map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
		"role":       utils.RoleStaff,
	}))
}

// TableLogin checks the table's current session PIN and issues a token
// pinned to that table. Only tables with an open session accept logins.
func (h *AuthHTTPHandler) TableLogin(c *gin.Context) {
	var req TableLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	table, err := h.tables.VerifyPin(ctx, req.RestaurantID, req.TableID, req.Pin)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid table or PIN", "UNAUTHORIZED"))
		return
	}

	token, expiresAt, err := utils.GenerateToken(req.RestaurantID, table.ID, utils.RoleTable, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Token generation failed", "INTERNAL"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Logged in", map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
		"role":       utils.RoleTable,
		"table_id":   table.ID,
	}))
}
