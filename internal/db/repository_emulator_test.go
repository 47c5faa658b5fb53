package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashconcards-backend/internal/models"
)

func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set, skip emulator integration test")
	}
	client, err := firestore.NewClient(context.Background(), "flashconcards-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUserRepositoryWithEmulator(t *testing.T) {
	client := newEmulatorClient(t)
	ctx := context.Background()
	repo := NewFirestoreUserRepository(client)

	uid := "user-" + uuid.NewString()
	require.NoError(t, repo.Create(ctx, &models.User{ID: uid, Email: "a@b.com", Role: models.RoleStudent}))

	require.NoError(t, repo.SetFavorite(ctx, uid, "card-1", true))
	require.NoError(t, repo.SetFavorite(ctx, uid, "card-1", true))
	require.NoError(t, repo.AddPurchasedCourse(ctx, uid, "course-1"))
	require.NoError(t, repo.SetStudySummary(ctx, uid, "70% em Português"))

	user, err := repo.GetByID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, []string{"card-1"}, user.Favorites)
	assert.Equal(t, []string{"course-1"}, user.PurchasedCourses)
	assert.Equal(t, "70% em Português", user.StudySummary)

	require.NoError(t, repo.SetFavorite(ctx, uid, "card-1", false))
	user, err = repo.GetByID(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, user.Favorites)

	_, err = repo.GetByID(ctx, "missing-"+uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(repo.SetSelectedCourse(ctx, "missing-"+uuid.NewString(), "c"), ErrNotFound))
}

func TestMessageRepositoryWithEmulator(t *testing.T) {
	client := newEmulatorClient(t)
	ctx := context.Background()
	repo := NewFirestoreMessageRepository(client)

	uid := "user-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, age := range []time.Duration{3 * time.Hour, 2 * time.Hour, 10 * time.Minute, time.Minute} {
		_, err := repo.Create(ctx, uid, &models.ChatMessage{
			Text:      "msg",
			Sender:    models.SenderUser,
			Surface:   "mentor",
			CreatedAt: now.Add(-age).Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, uid, &models.ChatMessage{Text: "other", Sender: models.SenderUser, Surface: "floating", CreatedAt: now})
	require.NoError(t, err)

	deleted, err := repo.DeleteOlderThan(ctx, uid, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	msgs, err := repo.ListBySurface(ctx, uid, "mentor", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
}

func TestTransactionMarkPaidWithEmulator(t *testing.T) {
	client := newEmulatorClient(t)
	ctx := context.Background()
	repo := NewFirestoreTransactionRepository(client)

	txn := &models.Transaction{
		ID:            uuid.NewString(),
		UserID:        "u1",
		CourseID:      "c1",
		Status:        models.TransactionPending,
		PaymentMethod: models.PaymentMethodPix,
		Amount:        49.9,
	}
	require.NoError(t, repo.Create(ctx, txn))

	paid, already, err := repo.MarkPaid(ctx, txn.ID, "mp-1", time.Now())
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, models.TransactionPaid, paid.Status)

	_, already, err = repo.MarkPaid(ctx, txn.ID, "mp-1", time.Now())
	require.NoError(t, err)
	assert.True(t, already)

	_, _, err = repo.MarkPaid(ctx, "missing", "", time.Now())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTransactionPaymentIDAndFailureWithEmulator(t *testing.T) {
	client := newEmulatorClient(t)
	ctx := context.Background()
	repo := NewFirestoreTransactionRepository(client)

	txn := &models.Transaction{ID: uuid.NewString(), UserID: "u1", CourseID: "c1", Status: models.TransactionPending}
	require.NoError(t, repo.Create(ctx, txn))
	assert.True(t, errors.Is(repo.Create(ctx, txn), ErrAlreadyExists))

	require.NoError(t, repo.SetPaymentID(ctx, txn.ID, "mp-7"))
	stored, err := repo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "mp-7", stored.PaymentID)

	require.NoError(t, repo.MarkFailed(ctx, txn.ID))
	stored, err = repo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, stored.Status)

	// a failed checkout can still be settled, and a paid one is never downgraded
	_, _, err = repo.MarkPaid(ctx, txn.ID, "", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(ctx, txn.ID))
	stored, err = repo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPaid, stored.Status)

	assert.True(t, errors.Is(repo.SetPaymentID(ctx, "missing-"+uuid.NewString(), "x"), ErrNotFound))
}
