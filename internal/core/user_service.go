package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flashconcards-backend/internal/db"
	"flashconcards-backend/internal/models"
)

var (
	// ErrUserNotFound is returned when a user profile does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCourseNotPurchased is returned when a student selects a course they do not own.
	ErrCourseNotPurchased = errors.New("course not purchased")
	// ErrInvalidInput is returned for empty or malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// maxStudySummaryRunes bounds the summary since it is inlined into every mentor prompt.
const maxStudySummaryRunes = 2000

// userService implements the UserService interface.
type userService struct {
	userRepo   db.UserRepository
	courseRepo db.CourseRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo db.UserRepository, courseRepo db.CourseRepository) UserService {
	return &userService{
		userRepo:   userRepo,
		courseRepo: courseRepo,
	}
}

// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new student profile.
// Returns the user, a boolean indicating if the user was created, and an error if any.
func (s *userService) GetOrCreate(ctx context.Context, userID, email, displayName string) (*models.User, bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}

	newUser := &models.User{
		ID:               userID,
		Email:            email,
		DisplayName:      displayName,
		Role:             models.RoleStudent,
		Favorites:        []string{},
		PurchasedCourses: []string{},
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			// A concurrent initialize created the profile first.
			existing, getErr := s.userRepo.GetByID(ctx, userID)
			if getErr != nil {
				return nil, false, fmt.Errorf("failed to get user by ID '%s' after concurrent create: %w", userID, getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create user (id: %s) after not found: %w", userID, err)
	}
	return newUser, true, nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	return user, nil
}

// SelectCourse sets the course the mentor grounds its answers on. Students may only
// select purchased courses; admins may select any existing course.
func (s *userService) SelectCourse(ctx context.Context, userID, courseID string) error {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return fmt.Errorf("%w: courseId is required", ErrInvalidInput)
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: course with ID '%s'", ErrCourseNotFound, courseID)
		}
		return fmt.Errorf("failed to get course '%s': %w", courseID, err)
	}
	if !user.IsAdmin() && !user.HasPurchased(courseID) {
		return fmt.Errorf("%w: course '%s'", ErrCourseNotPurchased, courseID)
	}

	if err := s.userRepo.SetSelectedCourse(ctx, userID, courseID); err != nil {
		return s.wrapRepoErr(userID, err)
	}
	return nil
}

func (s *userService) ToggleFavorite(ctx context.Context, userID, itemID string) (bool, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return false, fmt.Errorf("%w: itemId is required", ErrInvalidInput)
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	favorite := true
	for _, id := range user.Favorites {
		if id == itemID {
			favorite = false
			break
		}
	}
	if err := s.userRepo.SetFavorite(ctx, userID, itemID, favorite); err != nil {
		return false, s.wrapRepoErr(userID, err)
	}
	return favorite, nil
}

func (s *userService) UpdateStudySummary(ctx context.Context, userID, summary string) error {
	summary = truncateRunes(strings.TrimSpace(summary), maxStudySummaryRunes)
	if err := s.userRepo.SetStudySummary(ctx, userID, summary); err != nil {
		return s.wrapRepoErr(userID, err)
	}
	return nil
}

// GrantCourse adds courseID to the user's purchased courses. It is idempotent.
func (s *userService) GrantCourse(ctx context.Context, userID, courseID string) error {
	if err := s.userRepo.AddPurchasedCourse(ctx, userID, courseID); err != nil {
		return s.wrapRepoErr(userID, err)
	}
	return nil
}

func (s *userService) wrapRepoErr(userID string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
	}
	return fmt.Errorf("failed to update user '%s': %w", userID, err)
}
