package handlers

import (
	"food-ordering-api/pkg/resp"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) SendMessage(c *gin.Context) {
	var req services.SendMessageRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.Messages.Send(c.Request.Context(), caller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Created(c, m)
}

func (h *Handler) ReplyMessage(c *gin.Context) {
	var req services.ReplyRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.Messages.Reply(c.Request.Context(), caller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Created(c, m)
}

func (h *Handler) GetUserMessages(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	msgs, err := h.Messages.ForUser(c.Request.Context(), caller(c), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, msgs)
}

func (h *Handler) GetRestaurantMessages(c *gin.Context) {
	restaurantID, ok := idParam(c, "restaurantId")
	if !ok {
		return
	}
	msgs, err := h.Messages.ForRestaurant(c.Request.Context(), caller(c), restaurantID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, msgs)
}

func (h *Handler) MarkMessageRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := h.Messages.MarkRead(c.Request.Context(), caller(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, m)
}

// MessageStream upgrades to a websocket that receives every new message the
// caller may see.
func (h *Handler) MessageStream(c *gin.Context) {
	cl := caller(c)
	if err := h.Hub.Serve(c.Writer, c.Request, cl); err != nil {
		// The upgrader has already answered the client.
		h.Log.Debug("websocket upgrade failed", zap.Uint("user_id", cl.AccountID), zap.Error(err))
	}
}
