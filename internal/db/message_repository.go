package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"flashconcards-backend/internal/models"
)

const messagesCollection = "messages"

// firestoreMessageRepository implements the MessageRepository interface using Firestore.
type firestoreMessageRepository struct {
	client *firestore.Client
}

// NewFirestoreMessageRepository creates a new instance of firestoreMessageRepository.
func NewFirestoreMessageRepository(client *firestore.Client) MessageRepository {
	return &firestoreMessageRepository{client: client}
}

func (r *firestoreMessageRepository) messages(userID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(messagesCollection)
}

// Create stores msg with an auto-generated ID and sets msg.ID.
// CreatedAt is set by the caller: the expiry sweep compares against it.
func (r *firestoreMessageRepository) Create(ctx context.Context, userID string, msg *models.ChatMessage) (string, error) {
	if userID == "" {
		return "", errors.New("userID cannot be empty for Create operation")
	}
	docRef := r.messages(userID).NewDoc()
	msg.ID = docRef.ID
	if _, err := docRef.Create(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to create message for user '%s': %w", userID, err)
	}
	return docRef.ID, nil
}

// ListBySurface fetches the newest limit messages of surface and returns them oldest first.
func (r *firestoreMessageRepository) ListBySurface(ctx context.Context, userID, surface string, limit int) ([]*models.ChatMessage, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for ListBySurface operation")
	}
	query := r.messages(userID).
		Where("surface", "==", surface).
		OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var msgs []*models.ChatMessage
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate messages for user '%s': %w", userID, err)
		}
		var msg models.ChatMessage
		if err := doc.DataTo(&msg); err != nil {
			return nil, fmt.Errorf("failed to decode message (ID: %s): %w", doc.Ref.ID, err)
		}
		msg.ID = doc.Ref.ID
		msgs = append(msgs, &msg)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *firestoreMessageRepository) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	if userID == "" {
		return 0, errors.New("userID cannot be empty for DeleteOlderThan operation")
	}
	return r.deleteMatching(ctx, r.messages(userID).Where("createdAt", "<", cutoff))
}

// DeleteAllOlderThan sweeps the messages collection group, i.e. every user's messages.
func (r *firestoreMessageRepository) DeleteAllOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return r.deleteMatching(ctx, r.client.CollectionGroup(messagesCollection).Where("createdAt", "<", cutoff))
}

func (r *firestoreMessageRepository) deleteMatching(ctx context.Context, query firestore.Query) (int, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("failed to iterate expired messages: %w", err)
		}
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("failed to enqueue deletion of message '%s': %w", doc.Ref.Path, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	deleted := 0
	var firstErr error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}
	if firstErr != nil {
		return deleted, fmt.Errorf("failed to delete %d expired messages: %w", len(jobs)-deleted, firstErr)
	}
	return deleted, nil
}
