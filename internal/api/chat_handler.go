package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flashconcards-backend/internal/core"
	"flashconcards-backend/internal/models"
)

// VisitorIDHeader identifies an anonymous sales-chat visitor across requests.
const VisitorIDHeader = "X-Visitor-ID"

// ChatHandler serves the mentor, floating and sales chat endpoints.
type ChatHandler struct {
	chatService core.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(cs core.ChatService) *ChatHandler {
	return &ChatHandler{chatService: cs}
}

// ListMessages handles GET /api/v1/chat/:surface/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	surface := c.Param("surface")
	msgs, err := h.chatService.ListMessages(c.Request.Context(), userID, surface)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessagesResponse{Surface: surface, Messages: msgs})
}

// SendMessage handles POST /api/v1/chat/:surface/messages.
// Every orchestrator outcome is a 200 with a status field, except a cadence
// rejection, which is a 429 carrying the wait message and a Retry-After header.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), userID, c.Param("surface"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	writeReply(c, result.Reply, result)
}

// AskSales handles POST /api/v1/sales/chat. No authentication; the visitor
// is identified by the X-Visitor-ID header.
func (h *ChatHandler) AskSales(c *gin.Context) {
	var req SalesChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	reply, err := h.chatService.AskSales(c.Request.Context(), c.GetHeader(VisitorIDHeader), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	writeReply(c, reply, reply)
}

func writeReply(c *gin.Context, reply core.Reply, body interface{}) {
	if reply.Status == core.StatusWaiting {
		c.Header("Retry-After", strconv.Itoa(int(reply.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
