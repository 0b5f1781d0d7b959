package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	inventoryapp "github.com/pharmadist/backend/internal/application/inventory"
)

// defaultExpiryWindowDays is the horizon for the expiring lot report
// when neither the client nor the configuration supplies one
const defaultExpiryWindowDays = 90

// ProductLotHandler handles stock ledger API endpoints
type ProductLotHandler struct {
	BaseHandler
	productLotService *inventoryapp.ProductLotService
	expiryWindowDays  int
}

// NewProductLotHandler creates a new ProductLotHandler. A non-positive
// expiryWindowDays falls back to the built-in default.
func NewProductLotHandler(productLotService *inventoryapp.ProductLotService, expiryWindowDays int) *ProductLotHandler {
	if expiryWindowDays <= 0 {
		expiryWindowDays = defaultExpiryWindowDays
	}
	return &ProductLotHandler{
		productLotService: productLotService,
		expiryWindowDays:  expiryWindowDays,
	}
}

// Receive books delivered stock into the ledger
func (h *ProductLotHandler) Receive(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req inventoryapp.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.productLotService.Receive(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Expiring lists sellable lots that expire within the given window
func (h *ProductLotHandler) Expiring(c *gin.Context) {
	withinDays := h.expiryWindowDays
	if raw := c.Query("within_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "within_days must be a positive integer")
			return
		}
		withinDays = parsed
	}

	filter := inventoryapp.ListFilter{Page: 1, PageSize: 20}
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	lots, err := h.productLotService.Expiring(c.Request.Context(), withinDays, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lots)
}

// Withdraw pulls a lot from sale, keeping its remaining quantity on
// record
func (h *ProductLotHandler) Withdraw(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	lotID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.productLotService.Withdraw(c.Request.Context(), actorID, lotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RegisterRoutes registers all product lot routes
func (h *ProductLotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	lots := rg.Group("/product-lots")
	{
		lots.POST("/receive", h.Receive)
		lots.GET("/expiring", h.Expiring)
		lots.POST("/:id/withdraw", h.Withdraw)
	}
}
