package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tavola-system/internal/database/models"
	"tavola-system/internal/services/catalog"
)

type CatalogHTTPHandler struct {
	catalog *catalog.Service
}

func NewCatalogHTTPHandler(catalogSvc *catalog.Service) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{catalog: catalogSvc}
}

type MenuItemRequest struct {
	Name                 string `json:"name" binding:"required"`
	Price                string `json:"price" binding:"required"`
	CategoryName         string `json:"category_name"`
	IsActive             *bool  `json:"is_active,omitempty"`
	ExcludedFromFlatRate bool   `json:"excluded_from_flat_rate"`
}

type CategoryRequest struct {
	Name      string `json:"name" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

type ConfigRequest struct {
	Name                 string               `json:"name"`
	StaffCode            string               `json:"staff_code"`
	CoverChargePerPerson *string              `json:"cover_charge_per_person,omitempty"`
	FlatRate             *models.FlatRatePlan `json:"flat_rate,omitempty"`
}

func (r MenuItemRequest) toInput() catalog.MenuItemInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return catalog.MenuItemInput{
		Name:                 r.Name,
		Price:                r.Price,
		CategoryName:         r.CategoryName,
		IsActive:             active,
		ExcludedFromFlatRate: r.ExcludedFromFlatRate,
	}
}

func (h *CatalogHTTPHandler) CreateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	item, err := h.catalog.CreateMenuItem(ctx, restaurantID(c), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Menu item created", item))
}

func (h *CatalogHTTPHandler) UpdateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	item, err := h.catalog.UpdateMenuItem(ctx, restaurantID(c), c.Param("id"), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Menu item updated", item))
}

func (h *CatalogHTTPHandler) ListMenuItems(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	items, err := h.catalog.ListMenuItems(ctx, restaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Menu retrieved", items))
}

func (h *CatalogHTTPHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	category, err := h.catalog.CreateCategory(ctx, restaurantID(c), req.Name, req.SortOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Category created", category))
}

func (h *CatalogHTTPHandler) ListCategories(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx, restaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Categories retrieved", categories))
}

func (h *CatalogHTTPHandler) GetConfig(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	cfg, err := h.catalog.GetConfig(ctx, restaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Configuration retrieved", cfg))
}

func (h *CatalogHTTPHandler) UpdateConfig(c *gin.Context) {
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	cfg, err := h.catalog.UpdateConfig(ctx, models.RestaurantConfig{
		RestaurantID:         restaurantID(c),
		Name:                 req.Name,
		StaffCode:            req.StaffCode,
		CoverChargePerPerson: req.CoverChargePerPerson,
		FlatRate:             req.FlatRate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Configuration updated", cfg))
}
