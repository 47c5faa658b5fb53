package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"flashconcards-backend/internal/db"
	"flashconcards-backend/internal/models"
	"flashconcards-backend/pkg/cache"
)

var (
	// ErrCourseNotFound is returned when a course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrContentNotFound is returned when a course has no text for the requested section.
	ErrContentNotFound = errors.New("course content not found")
	// ErrInvalidContentSection is returned for sections other than edital, prompt and study.
	ErrInvalidContentSection = errors.New("invalid content section")
)

const coursesCacheKey = "courses:all"

func contentCacheKey(courseID, section string) string {
	return "courses:" + courseID + ":content:" + section
}

// courseService implements the CourseService interface. Reads go through a
// read-through cache with a fixed expiry; admin writes invalidate it.
type courseService struct {
	courseRepo db.CourseRepository
	cache      cache.Cache
	ttl        time.Duration
	logger     *zap.Logger
}

// NewCourseService creates a new CourseService. A nil cache disables caching.
func NewCourseService(courseRepo db.CourseRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger) CourseService {
	if c == nil {
		c = cache.NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &courseService{
		courseRepo: courseRepo,
		cache:      c,
		ttl:        ttl,
		logger:     logger.With(zap.String("component", "courses")),
	}
}

func (s *courseService) listAll(ctx context.Context) ([]*models.Course, error) {
	var courses []*models.Course
	if s.readCache(ctx, coursesCacheKey, &courses) {
		return courses, nil
	}

	courses, err := s.courseRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	s.writeCache(ctx, coursesCacheKey, courses)
	return courses, nil
}

func (s *courseService) ListActive(ctx context.Context) ([]*models.Course, error) {
	all, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*models.Course, 0, len(all))
	for _, c := range all {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

func (s *courseService) ListFeatured(ctx context.Context) ([]*models.Course, error) {
	all, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	featured := make([]*models.Course, 0)
	for _, c := range all {
		if c.Active && c.Featured {
			featured = append(featured, c)
		}
	}
	return featured, nil
}

// Get returns a course, active or not.
func (s *courseService) Get(ctx context.Context, courseID string) (*models.Course, error) {
	all, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.ID == courseID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: course with ID '%s'", ErrCourseNotFound, courseID)
}

func (s *courseService) GetContent(ctx context.Context, courseID, section string) (*models.CourseContent, error) {
	if !models.IsValidContentSection(section) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentSection, section)
	}
	key := contentCacheKey(courseID, section)

	var content models.CourseContent
	if s.readCache(ctx, key, &content) {
		content.CourseID, content.Section = courseID, section
		return &content, nil
	}

	got, err := s.courseRepo.GetContent(ctx, courseID, section)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s of course '%s'", ErrContentNotFound, section, courseID)
		}
		return nil, fmt.Errorf("failed to get content %s of course '%s': %w", section, courseID, err)
	}
	s.writeCache(ctx, key, got)
	return got, nil
}

func (s *courseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	now := time.Now().UTC()
	course := &models.Course{
		Name:        name,
		Competition: strings.TrimSpace(req.Competition),
		Price:       req.Price,
		Active:      req.Active,
		Featured:    req.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	s.invalidate(ctx, coursesCacheKey)
	s.logger.Info("Course created", zap.String("courseID", course.ID), zap.String("name", course.Name))
	return course, nil
}

func (s *courseService) Update(ctx context.Context, courseID string, req models.UpdateCourseRequest) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: course with ID '%s'", ErrCourseNotFound, courseID)
		}
		return nil, fmt.Errorf("failed to get course '%s': %w", courseID, err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		course.Name = name
	}
	if req.Competition != nil {
		course.Competition = strings.TrimSpace(*req.Competition)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
		}
		course.Price = *req.Price
	}
	if req.Active != nil {
		course.Active = *req.Active
	}
	if req.Featured != nil {
		course.Featured = *req.Featured
	}
	course.UpdatedAt = time.Now().UTC()

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to update course '%s': %w", courseID, err)
	}
	s.invalidate(ctx, coursesCacheKey)
	return course, nil
}

func (s *courseService) Delete(ctx context.Context, courseID string) error {
	if err := s.courseRepo.Delete(ctx, courseID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: course with ID '%s'", ErrCourseNotFound, courseID)
		}
		return fmt.Errorf("failed to delete course '%s': %w", courseID, err)
	}
	s.invalidate(ctx, coursesCacheKey)
	for _, section := range []string{models.ContentEdital, models.ContentPrompt, models.ContentStudy} {
		s.invalidate(ctx, contentCacheKey(courseID, section))
	}
	s.logger.Info("Course deleted", zap.String("courseID", courseID))
	return nil
}

func (s *courseService) SetContent(ctx context.Context, courseID, section, text string) (*models.CourseContent, error) {
	if !models.IsValidContentSection(section) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentSection, section)
	}
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: course with ID '%s'", ErrCourseNotFound, courseID)
		}
		return nil, fmt.Errorf("failed to get course '%s': %w", courseID, err)
	}

	content := &models.CourseContent{
		CourseID:  courseID,
		Section:   section,
		Text:      text,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.courseRepo.SetContent(ctx, content); err != nil {
		return nil, fmt.Errorf("failed to set content %s of course '%s': %w", section, courseID, err)
	}
	s.invalidate(ctx, contentCacheKey(courseID, section))
	return content, nil
}

// readCache decodes key into dst. Cache failures count as misses.
func (s *courseService) readCache(ctx context.Context, key string, dst interface{}) bool {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil || !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		s.invalidate(ctx, key)
		return false
	}
	return true
}

func (s *courseService) writeCache(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logger.Warn("Failed to write cache entry", zap.String("key", key), zap.Error(err))
	}
}

func (s *courseService) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate cache entry", zap.String("key", key), zap.Error(err))
	}
}
