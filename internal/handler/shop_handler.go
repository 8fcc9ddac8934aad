package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/internal/service"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
	"github.com/jeffreylongo/lodge-api/pkg/response"
)

// ShopHandler proxies the upstream merchandise catalog.
type ShopHandler struct {
	shop *service.ShopService
}

// NewShopHandler constructs handler.
func NewShopHandler(shop *service.ShopService) *ShopHandler {
	return &ShopHandler{shop: shop}
}

// Products lists catalog items with optional category filter and paging.
func (h *ShopHandler) Products(c *gin.Context) {
	filter := models.ProductFilter{Category: c.Query("category")}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer"))
			return
		}
		filter.Page = page
	}
	if raw := c.Query("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pageSize must be a positive integer"))
			return
		}
		filter.PageSize = size
	}

	products, pagination, err := h.shop.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, products, pagination)
}
