package models

import "time"

// Course content sections, stored as sub-documents of a course.
const (
	ContentEdital = "edital"
	ContentPrompt = "prompt"
	ContentStudy  = "study"
)

// Course represents a purchasable exam-preparation course.
type Course struct {
	ID          string    `json:"id" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	Competition string    `json:"competition" firestore:"competition"` // The public exam the course targets
	Price       float64   `json:"price" firestore:"price"`
	Active      bool      `json:"active" firestore:"active"`
	Featured    bool      `json:"featured" firestore:"featured"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// CourseContent holds the text of one content section (edital, prompt, generated study material).
type CourseContent struct {
	CourseID  string    `json:"courseId" firestore:"-"`
	Section   string    `json:"section" firestore:"-"`
	Text      string    `json:"text" firestore:"text"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// IsValidContentSection reports whether section names a known content sub-document.
func IsValidContentSection(section string) bool {
	switch section {
	case ContentEdital, ContentPrompt, ContentStudy:
		return true
	}
	return false
}
