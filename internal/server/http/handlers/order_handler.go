package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/server/http/dto"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Place handles POST /api/orders.
func (h *OrderHandler) Place(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	res, err := h.facade.PlaceOrder(c.Request.Context(), CurrentActor(c), req.Order())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewMutationResponse(res))
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.facade.Orders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderList(orders))
}

// Status handles GET /api/orders/:id/status.
func (h *OrderHandler) Status(c *gin.Context) {
	id := c.Param("id")
	status, err := h.facade.OrderStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{OrderID: id, Status: string(status)})
}

// ChangeStatus handles POST /api/orders/:id/status.
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	res, err := h.facade.ChangeStatus(c.Request.Context(), CurrentActor(c), c.Param("id"), model.OrderStatus(req.Status), req.ForceUpdate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMutationResponse(res))
}

// Cancel handles POST /api/orders/:id/cancel. An empty body is allowed.
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.Status(http.StatusBadRequest)
		return
	}

	res, err := h.facade.Cancel(c.Request.Context(), CurrentActor(c), c.Param("id"), req.PenaltyFree)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMutationResponse(res))
}
