package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flashconcards-backend/internal/models"
)

const (
	coursesCollection = "courses"
	contentCollection = "content"
)

// firestoreCourseRepository implements the CourseRepository interface using Firestore.
// Content sections live in courses/{courseId}/content/{section}.
type firestoreCourseRepository struct {
	client *firestore.Client
}

// NewFirestoreCourseRepository creates a new instance of firestoreCourseRepository.
func NewFirestoreCourseRepository(client *firestore.Client) CourseRepository {
	return &firestoreCourseRepository{client: client}
}

// List returns every course ordered by name. Filtering (active, featured) is done by the service
// so the whole collection can be cached under a single key.
func (r *firestoreCourseRepository) List(ctx context.Context) ([]*models.Course, error) {
	iter := r.client.Collection(coursesCollection).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var courses []*models.Course
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate courses: %w", err)
		}

		var course models.Course
		if err := doc.DataTo(&course); err != nil {
			return nil, fmt.Errorf("failed to decode course data (ID: %s): %w", doc.Ref.ID, err)
		}
		course.ID = doc.Ref.ID
		courses = append(courses, &course)
	}
	return courses, nil
}

// GetByID retrieves a course document by its ID.
func (r *firestoreCourseRepository) GetByID(ctx context.Context, courseID string) (*models.Course, error) {
	if courseID == "" {
		return nil, errors.New("courseID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(coursesCollection).Doc(courseID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("course with ID '%s' not found: %w", courseID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get course with ID '%s': %w", courseID, err)
	}

	var course models.Course
	if err := docSnap.DataTo(&course); err != nil {
		return nil, fmt.Errorf("failed to decode course data for ID '%s': %w", courseID, err)
	}
	course.ID = docSnap.Ref.ID
	return &course, nil
}

// Create adds a new course document with an auto-generated ID and sets course.ID.
func (r *firestoreCourseRepository) Create(ctx context.Context, course *models.Course) (string, error) {
	docRef := r.client.Collection(coursesCollection).NewDoc()
	course.ID = docRef.ID

	if _, err := docRef.Create(ctx, course); err != nil {
		return "", fmt.Errorf("failed to create course: %w", err)
	}
	return docRef.ID, nil
}

// Update overwrites an existing course document. MergeAll is not supported for struct data,
// so callers pass the full, previously loaded course.
func (r *firestoreCourseRepository) Update(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		return errors.New("course ID cannot be empty for Update operation")
	}
	_, err := r.client.Collection(coursesCollection).Doc(course.ID).Set(ctx, course)
	if err != nil {
		return fmt.Errorf("failed to update course with ID '%s': %w", course.ID, err)
	}
	return nil
}

// Delete removes a course and its content sub-documents.
func (r *firestoreCourseRepository) Delete(ctx context.Context, courseID string) error {
	if courseID == "" {
		return errors.New("courseID cannot be empty for Delete operation")
	}
	docRef := r.client.Collection(coursesCollection).Doc(courseID)

	// Subcollections are not removed together with their parent document.
	bw := r.client.BulkWriter(ctx)
	for _, section := range []string{models.ContentEdital, models.ContentPrompt, models.ContentStudy} {
		if _, err := bw.Delete(docRef.Collection(contentCollection).Doc(section)); err != nil {
			bw.End()
			return fmt.Errorf("failed to enqueue content deletion for course '%s': %w", courseID, err)
		}
	}
	bw.End()

	_, err := docRef.Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("course with ID '%s' not found for deletion: %w", courseID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete course with ID '%s': %w", courseID, err)
	}
	return nil
}

// GetContent retrieves one content section of a course.
func (r *firestoreCourseRepository) GetContent(ctx context.Context, courseID, section string) (*models.CourseContent, error) {
	if courseID == "" || section == "" {
		return nil, errors.New("courseID and section cannot be empty for GetContent operation")
	}
	docSnap, err := r.client.Collection(coursesCollection).Doc(courseID).Collection(contentCollection).Doc(section).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("content '%s' of course '%s' not found: %w", section, courseID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get content '%s' of course '%s': %w", section, courseID, err)
	}

	var content models.CourseContent
	if err := docSnap.DataTo(&content); err != nil {
		return nil, fmt.Errorf("failed to decode content '%s' of course '%s': %w", section, courseID, err)
	}
	content.CourseID = courseID
	content.Section = section
	return &content, nil
}

// SetContent creates or replaces one content section of a course.
func (r *firestoreCourseRepository) SetContent(ctx context.Context, content *models.CourseContent) error {
	if content.CourseID == "" || content.Section == "" {
		return errors.New("courseID and section cannot be empty for SetContent operation")
	}
	ref := r.client.Collection(coursesCollection).Doc(content.CourseID).Collection(contentCollection).Doc(content.Section)
	if _, err := ref.Set(ctx, content); err != nil {
		return fmt.Errorf("failed to set content '%s' of course '%s': %w", content.Section, content.CourseID, err)
	}
	return nil
}
