package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flashconcards-backend/internal/core"
	"flashconcards-backend/internal/models"
)

// UserHandler handles user-profile related API endpoints.
type UserHandler struct {
	userService core.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us core.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

// GetCurrentUserProfile handles GET /api/v1/users/me.
func (h *UserHandler) GetCurrentUserProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SelectCourse handles PUT /api/v1/users/me/selected-course.
func (h *UserHandler) SelectCourse(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.SelectCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	if err := h.userService.SelectCourse(c.Request.Context(), userID, req.CourseID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Selected course updated", Data: gin.H{"courseId": req.CourseID}})
}

// ToggleFavorite handles POST /api/v1/users/me/favorites/:itemId.
func (h *UserHandler) ToggleFavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID := c.Param("itemId")
	favorite, err := h.userService.ToggleFavorite(c.Request.Context(), userID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FavoriteResponse{ItemID: itemID, Favorite: favorite})
}

// UpdateStudySummary handles PUT /api/v1/users/me/study-summary.
func (h *UserHandler) UpdateStudySummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.UpdateStudySummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	if err := h.userService.UpdateStudySummary(c.Request.Context(), userID, req.Summary); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
