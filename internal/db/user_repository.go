package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flashconcards-backend/internal/models"
)

const usersCollection = "users"

var (
	// ErrNotFound is returned by repositories when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document ID is taken.
	ErrAlreadyExists = errors.New("document already exists")
)

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

// Create adds a new user document. The Firebase Auth UID is the document ID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s': %w", user.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document by its ID (Firebase Auth UID).
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}

	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", userID, err)
	}
	user.ID = docSnap.Ref.ID
	return &user, nil
}

// Update overwrites the whole profile document with user.
func (r *firestoreUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	if _, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user); err != nil {
		return fmt.Errorf("failed to update user with ID '%s': %w", user.ID, err)
	}
	return nil
}

func (r *firestoreUserRepository) SetSelectedCourse(ctx context.Context, userID, courseID string) error {
	return r.updateFields(ctx, userID, []firestore.Update{
		{Path: "selectedCourseId", Value: courseID},
	})
}

func (r *firestoreUserRepository) SetFavorite(ctx context.Context, userID, itemID string, favorite bool) error {
	var value interface{} = firestore.ArrayRemove(itemID)
	if favorite {
		value = firestore.ArrayUnion(itemID)
	}
	return r.updateFields(ctx, userID, []firestore.Update{
		{Path: "favorites", Value: value},
	})
}

func (r *firestoreUserRepository) SetStudySummary(ctx context.Context, userID, summary string) error {
	return r.updateFields(ctx, userID, []firestore.Update{
		{Path: "studySummary", Value: summary},
	})
}

// AddPurchasedCourse appends courseID to purchasedCourses; granting twice is a no-op.
func (r *firestoreUserRepository) AddPurchasedCourse(ctx context.Context, userID, courseID string) error {
	return r.updateFields(ctx, userID, []firestore.Update{
		{Path: "purchasedCourses", Value: firestore.ArrayUnion(courseID)},
	})
}

// updateFields applies a partial update and bumps updatedAt. Update fails with
// NotFound when the profile does not exist, unlike Set.
func (r *firestoreUserRepository) updateFields(ctx context.Context, userID string, updates []firestore.Update) error {
	if userID == "" {
		return errors.New("userID cannot be empty for update operation")
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to update user with ID '%s': %w", userID, err)
	}
	return nil
}
