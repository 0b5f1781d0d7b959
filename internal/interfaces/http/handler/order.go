package handler

import (
	"github.com/gin-gonic/gin"

	orderapp "github.com/pharmadist/backend/internal/application/order"
)

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	BaseHandler
	orderService *orderapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Checkout places a new order. An Idempotency-Key header makes the
// call safe to retry; replays return the originally created order.
func (h *OrderHandler) Checkout(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req orderapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	resp, err := h.orderService.Checkout(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Confirm moves an order awaiting confirmation to confirmed and
// assigns a warehouse worker
func (h *OrderHandler) Confirm(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	orderID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.orderService.Confirm(c.Request.Context(), actorID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SetStatus transitions an order to the requested status
func (h *OrderHandler) SetStatus(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	orderID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req orderapp.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.orderService.SetStatus(c.Request.Context(), actorID, orderID, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Get retrieves an order with its lines
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List retrieves a paginated list of orders
func (h *OrderHandler) List(c *gin.Context) {
	filter := orderapp.ListFilter{Page: 1, PageSize: 20}
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("/checkout", h.Checkout)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.POST("/:id/confirm", h.Confirm)
		orders.PUT("/:id/status", h.SetStatus)
	}
}
