package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flashconcards-backend/internal/core"
	"flashconcards-backend/internal/models"
)

// CourseHandler handles course catalog endpoints, public and admin.
type CourseHandler struct {
	courseService core.CourseService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(cs core.CourseService) *CourseHandler {
	return &CourseHandler{courseService: cs}
}

// ListCourses handles GET /api/v1/courses. Only active courses are listed.
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// ListFeatured handles GET /api/v1/courses/featured.
func (h *CourseHandler) ListFeatured(c *gin.Context) {
	courses, err := h.courseService.ListFeatured(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// GetCourse handles GET /api/v1/courses/:courseId.
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseService.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// GetContent handles GET /api/v1/courses/:courseId/content/:section.
func (h *CourseHandler) GetContent(c *gin.Context) {
	content, err := h.courseService.GetContent(c.Request.Context(), c.Param("courseId"), c.Param("section"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// CreateCourse handles POST /api/v1/admin/courses.
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	course, err := h.courseService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// UpdateCourse handles PUT /api/v1/admin/courses/:courseId.
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	course, err := h.courseService.Update(c.Request.Context(), c.Param("courseId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// DeleteCourse handles DELETE /api/v1/admin/courses/:courseId.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	if err := h.courseService.Delete(c.Request.Context(), c.Param("courseId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetContent handles PUT /api/v1/admin/courses/:courseId/content/:section.
func (h *CourseHandler) SetContent(c *gin.Context) {
	var req models.SetContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	content, err := h.courseService.SetContent(c.Request.Context(), c.Param("courseId"), c.Param("section"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}
