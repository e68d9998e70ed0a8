package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/ordersync/internal/server/http/dto"
)

const defaultNotificationLimit = 20

// ViewHandler exposes reconciled views and notifications.
type ViewHandler struct {
	facade ViewFacade
}

// NewViewHandler constructs ViewHandler.
func NewViewHandler(facade ViewFacade) *ViewHandler {
	return &ViewHandler{facade: facade}
}

// List handles GET /api/views.
func (h *ViewHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"views": h.facade.Views()})
}

// Orders handles GET /api/views/:view/orders.
func (h *ViewHandler) Orders(c *gin.Context) {
	name := c.Param("view")
	orders, version, err := h.facade.ViewOrders(name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ViewResponse{View: name, Version: version, Orders: dto.NewOrderList(orders)})
}

// Resync handles POST /api/views/:view/resync.
func (h *ViewHandler) Resync(c *gin.Context) {
	if err := h.facade.ResyncView(c.Request.Context(), c.Param("view")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Notifications handles GET /api/notifications?limit=N.
func (h *ViewHandler) Notifications(c *gin.Context) {
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.Status(http.StatusBadRequest)
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, dto.NewNotificationList(h.facade.Notifications(limit)))
}
