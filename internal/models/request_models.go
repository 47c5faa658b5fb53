package models

// SendMessageRequest is the request body for posting a chat message.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SelectCourseRequest represents the request body for changing the user's selected course.
type SelectCourseRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// UpdateStudySummaryRequest carries the study-progress summary fed to the AI mentor.
type UpdateStudySummaryRequest struct {
	Summary string `json:"summary"`
}

// CreateCourseRequest represents the request body for creating a course (admin).
type CreateCourseRequest struct {
	Name        string  `json:"name" binding:"required"`
	Competition string  `json:"competition" binding:"required"`
	Price       float64 `json:"price" binding:"gte=0"`
	Active      bool    `json:"active"`
	Featured    bool    `json:"featured"`
}

// UpdateCourseRequest represents the request body for updating a course (admin).
// Pointers are used to distinguish between zero values and fields not provided for update.
type UpdateCourseRequest struct {
	Name        *string  `json:"name,omitempty"`
	Competition *string  `json:"competition,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Active      *bool    `json:"active,omitempty"`
	Featured    *bool    `json:"featured,omitempty"`
}

// SetContentRequest replaces the text of a course content section (admin).
type SetContentRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreatePixPaymentRequest starts a PIX checkout for a course.
type CreatePixPaymentRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// PaymentWebhookRequest is the notification forwarded by the gateway functions once a payment settles.
type PaymentWebhookRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	Status        string `json:"status" binding:"required"`
	PaymentID     string `json:"paymentId,omitempty"`
}
