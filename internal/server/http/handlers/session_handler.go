package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/ordersync/internal/server/http/dto"
	"github.com/polkiloo/ordersync/internal/server/http/middleware"
)

// SessionHandler issues actor tokens.
type SessionHandler struct {
	facade SessionFacade
}

// NewSessionHandler creates SessionHandler instance.
func NewSessionHandler(facade SessionFacade) *SessionHandler {
	return &SessionHandler{facade: facade}
}

// Login handles POST /api/session.
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	actor, token, err := h.facade.Login(req.Role, req.Subject, req.Key)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, dto.SessionResponse{Role: string(actor.Role), Subject: actor.Subject, Token: token})
}
