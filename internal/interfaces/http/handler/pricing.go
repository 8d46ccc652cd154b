package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/application/pricing"
)

// PricingHandler exposes order pricing resolution over HTTP
type PricingHandler struct {
	BaseHandler
	service *pricing.Service
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(service *pricing.Service) *PricingHandler {
	return &PricingHandler{service: service}
}

// RegisterRoutes registers pricing routes on the API group
func (h *PricingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/pricing")
	{
		group.POST("/quote", h.Quote)
		group.POST("/shipping-options", h.ShippingOptions)
		group.POST("/tax", h.Tax)
	}
}

// Quote prices a full order: per-line taxes, shipping resolution for the
// chosen method and the grand total
func (h *PricingHandler) Quote(c *gin.Context) {
	var req pricing.PriceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	order, err := h.service.Price(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// ShippingOptions lists the eligible shipping methods for a destination
// and cart shape, ranked by zone specificity
func (h *PricingHandler) ShippingOptions(c *gin.Context) {
	var req pricing.ShippingOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	options, err := h.service.ResolveShippingOptions(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, options)
}

// Tax resolves the effective tax rate for a single taxable entity
func (h *PricingHandler) Tax(c *gin.Context) {
	var req pricing.TaxQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resolution, err := h.service.ResolveTax(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resolution)
}
