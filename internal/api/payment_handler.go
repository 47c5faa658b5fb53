package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"flashconcards-backend/internal/core"
	"flashconcards-backend/internal/middleware"
	"flashconcards-backend/internal/models"
)

// WebhookSecretHeader carries the secret shared with the payment functions.
const WebhookSecretHeader = "X-Webhook-Secret"

// Gateway statuses that settle a payment.
var settledStatuses = map[string]bool{
	"approved": true,
	"paid":     true,
}

// PaymentHandler handles checkout endpoints.
type PaymentHandler struct {
	paymentService core.PaymentService
	webhookSecret  string
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps core.PaymentService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{paymentService: ps, webhookSecret: webhookSecret}
}

// CreatePixPayment handles POST /api/v1/payments/pix.
func (h *PaymentHandler) CreatePixPayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.CreatePixPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	checkout, err := h.paymentService.CreatePixPayment(c.Request.Context(), userID, c.GetString(middleware.ContextUserEmail), req.CourseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

// GetTransaction handles GET /api/v1/payments/:transactionId. Clients poll it until the status is paid.
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	txn, err := h.paymentService.GetTransaction(c.Request.Context(), userID, c.Param("transactionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// HandleWebhook handles POST /api/v1/payments/webhook, called by the payment
// functions when the gateway reports a status change.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	got := c.GetHeader(WebhookSecretHeader)
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid webhook secret"})
		return
	}

	var req models.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	if !settledStatuses[strings.ToLower(req.Status)] {
		c.JSON(http.StatusAccepted, SuccessResponse{Message: "Status ignored", Data: gin.H{"status": req.Status}})
		return
	}

	txn, err := h.paymentService.ConfirmPayment(c.Request.Context(), req.TransactionID, req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Payment confirmed", Data: txn})
}
