package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-cart/internal/service"
)

// ConversationHandler expone los endpoints de mensajería.
type ConversationHandler struct {
	logger   *zap.Logger
	messages *service.MessageService
}

func NewConversationHandler(logger *zap.Logger, messages *service.MessageService) *ConversationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationHandler{logger: logger, messages: messages}
}

type sendMessageRequest struct {
	ProductID   string `json:"productId"`
	MessageBody string `json:"messageBody"`
}

type replyRequest struct {
	MessageBody string `json:"messageBody"`
}

// SendMessage maneja POST /api/messages.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	callerID, ok := CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You must be logged in to perform this action."})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Product ID and message body are required."})
		return
	}

	_, conversation, err := h.messages.SendFirstMessage(c.Request.Context(), callerID, req.ProductID, req.MessageBody)
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Product ID and message body are required."})
		return
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found."})
		return
	case errors.Is(err, service.ErrSelfMessage):
		c.JSON(http.StatusBadRequest, gin.H{"message": "You cannot send a message to yourself."})
		return
	case err != nil:
		h.failure(c, err, "send message failed", "Server error while sending message.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully!", "conversation": conversation})
}

// ListConversations maneja GET /api/conversations.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	callerID, ok := CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You must be logged in to perform this action."})
		return
	}

	items, err := h.messages.ListConversations(c.Request.Context(), callerID)
	if err != nil {
		h.failure(c, err, "list conversations failed", "Server error while fetching conversations.")
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetConversation maneja GET /api/conversations/:id.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	callerID, ok := CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You must be logged in to perform this action."})
		return
	}

	conversation, err := h.messages.GetConversation(c.Request.Context(), c.Param("id"), callerID)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Conversation not found or you are not a participant."})
		return
	}
	if err != nil {
		h.failure(c, err, "get conversation failed", "Server error while fetching conversation.")
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// Reply maneja POST /api/conversations/:id/messages.
func (h *ConversationHandler) Reply(c *gin.Context) {
	callerID, ok := CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You must be logged in to perform this action."})
		return
	}

	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reply request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Message body is required."})
		return
	}

	_, err := h.messages.Reply(c.Request.Context(), callerID, c.Param("id"), req.MessageBody)
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Message body is required."})
		return
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Conversation not found or you are not a participant."})
		return
	case err != nil:
		h.failure(c, err, "reply failed", "Server error while sending reply.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Reply sent successfully."})
}

// failure cubre los errores comunes a todos los endpoints.
func (h *ConversationHandler) failure(c *gin.Context, err error, logMsg, userMsg string) {
	if errors.Is(err, service.ErrRateLimited) {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "You are sending messages too quickly. Please wait a moment."})
		return
	}
	callerID, _ := CallerID(c)
	h.logger.Error(logMsg, zap.Error(err), zap.String("caller_id", callerID))
	c.JSON(http.StatusInternalServerError, gin.H{"message": userMsg})
}
