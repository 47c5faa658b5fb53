package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashconcards-backend/internal/models"
)

func TestGetOrCreateCreatesStudentOnce(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, newMemCourseRepo())
	ctx := context.Background()

	user, created, err := svc.GetOrCreate(ctx, "u1", "aluno@example.com", "Aluno")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Empty(t, user.PurchasedCourses)

	again, created, err := svc.GetOrCreate(ctx, "u1", "outro@example.com", "Outro")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "aluno@example.com", again.Email)
}

func TestGetOrCreateLosesCreateRace(t *testing.T) {
	repo := newMemUserRepo(&models.User{ID: "u1", Email: "primeiro@example.com", Role: models.RoleStudent})
	repo.hideNext = true
	svc := NewUserService(repo, newMemCourseRepo())

	user, created, err := svc.GetOrCreate(context.Background(), "u1", "segundo@example.com", "Segundo")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "primeiro@example.com", user.Email)
}

func TestGetByIDNotFound(t *testing.T) {
	svc := NewUserService(newMemUserRepo(), newMemCourseRepo())
	_, err := svc.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestSelectCourse(t *testing.T) {
	users := newMemUserRepo(
		&models.User{ID: "student", Role: models.RoleStudent, PurchasedCourses: []string{"pf"}},
		&models.User{ID: "admin", Role: models.RoleAdmin},
	)
	courses := newMemCourseRepo(
		&models.Course{ID: "pf", Name: "Polícia Federal", Active: true},
		&models.Course{ID: "inss", Name: "INSS", Active: true},
	)
	svc := NewUserService(users, courses)
	ctx := context.Background()

	require.NoError(t, svc.SelectCourse(ctx, "student", "pf"))
	u, _ := users.GetByID(ctx, "student")
	assert.Equal(t, "pf", u.SelectedCourseID)

	assert.True(t, errors.Is(svc.SelectCourse(ctx, "student", "inss"), ErrCourseNotPurchased))
	assert.True(t, errors.Is(svc.SelectCourse(ctx, "student", "nope"), ErrCourseNotFound))
	assert.True(t, errors.Is(svc.SelectCourse(ctx, "student", " "), ErrInvalidInput))
	assert.NoError(t, svc.SelectCourse(ctx, "admin", "inss"))
}

func TestToggleFavorite(t *testing.T) {
	users := newMemUserRepo(&models.User{ID: "u1"})
	svc := NewUserService(users, newMemCourseRepo())
	ctx := context.Background()

	fav, err := svc.ToggleFavorite(ctx, "u1", "card-7")
	require.NoError(t, err)
	assert.True(t, fav)

	fav, err = svc.ToggleFavorite(ctx, "u1", "card-7")
	require.NoError(t, err)
	assert.False(t, fav)

	u, _ := users.GetByID(ctx, "u1")
	assert.Empty(t, u.Favorites)

	_, err = svc.ToggleFavorite(ctx, "ghost", "card-7")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestGrantCourseAndSummary(t *testing.T) {
	users := newMemUserRepo(&models.User{ID: "u1"})
	svc := NewUserService(users, newMemCourseRepo())
	ctx := context.Background()

	require.NoError(t, svc.GrantCourse(ctx, "u1", "pf"))
	require.NoError(t, svc.GrantCourse(ctx, "u1", "pf"))
	require.NoError(t, svc.UpdateStudySummary(ctx, "u1", "  revisar crase  "))

	u, _ := users.GetByID(ctx, "u1")
	assert.Equal(t, []string{"pf"}, u.PurchasedCourses)
	assert.Equal(t, "revisar crase", u.StudySummary)
	assert.True(t, errors.Is(svc.GrantCourse(ctx, "ghost", "pf"), ErrUserNotFound))
}
