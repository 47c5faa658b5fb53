package models

import "time"

// User roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User represents a user profile. There is exactly one profile per Firebase Auth UID.
type User struct {
	ID               string    `json:"uid" firestore:"-"` // Firebase Auth UID, will be the document ID
	Email            string    `json:"email" firestore:"email"`
	DisplayName      string    `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	Role             string    `json:"role" firestore:"role"` // "student" or "admin"
	Favorites        []string  `json:"favorites" firestore:"favorites"`
	SelectedCourseID string    `json:"selectedCourseId,omitempty" firestore:"selectedCourseId,omitempty"`
	PurchasedCourses []string  `json:"purchasedCourses" firestore:"purchasedCourses"`
	StudySummary     string    `json:"studySummary,omitempty" firestore:"studySummary,omitempty"` // Free-form progress summary fed to the AI mentor
	CreatedAt        time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt        time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasPurchased reports whether the course was granted to the user.
func (u *User) HasPurchased(courseID string) bool {
	for _, id := range u.PurchasedCourses {
		if id == courseID {
			return true
		}
	}
	return false
}
