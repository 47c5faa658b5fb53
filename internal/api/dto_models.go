package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"flashconcards-backend/internal/core"
	"flashconcards-backend/internal/middleware"
	"flashconcards-backend/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FavoriteResponse reports the favorite state of an item after a toggle.
type FavoriteResponse struct {
	ItemID   string `json:"itemId"`
	Favorite bool   `json:"favorite"`
}

// MessagesResponse wraps a chat history.
type MessagesResponse struct {
	Surface  string                `json:"surface"`
	Messages []*models.ChatMessage `json:"messages"`
}

// SalesChatRequest is the body of the public sales chat endpoint.
type SalesChatRequest struct {
	Text string `json:"text" binding:"required"`
}

// mapServiceErrorToStatus maps errors from the core services to HTTP status codes and ErrorResponse.
// Internal details are only exposed for client errors.
func mapServiceErrorToStatus(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidSurface),
		errors.Is(err, core.ErrInvalidContentSection):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: err.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "User profile not found", Details: "Call /api/v1/users/initialize first."}
	case errors.Is(err, core.ErrCourseNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Course not found"}
	case errors.Is(err, core.ErrContentNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Course content not found"}
	case errors.Is(err, core.ErrTransactionNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Transaction not found"}
	case errors.Is(err, core.ErrCourseNotPurchased):
		return http.StatusForbidden, ErrorResponse{Error: "Course not purchased"}
	case errors.Is(err, core.ErrAlreadyPurchased):
		return http.StatusConflict, ErrorResponse{Error: "Course already purchased"}
	case errors.Is(err, core.ErrCourseNotForSale):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "Course is not for sale"}
	case errors.Is(err, core.ErrPaymentGateway):
		return http.StatusBadGateway, ErrorResponse{Error: "Payment provider error", Details: "Could not complete the operation with the payment provider."}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"}
	}
}

// respondError writes the mapped error and records err on the context for the request logger.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := mapServiceErrorToStatus(err)
	c.AbortWithStatusJSON(status, body)
}

// currentUserID returns the UID set by the auth middleware, writing a 401 when it is missing.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: User ID not found in context"})
		return "", false
	}
	return userID, true
}
