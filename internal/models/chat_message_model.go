package models

import "time"

// Message senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// ChatMessage is one entry of a user's chat with the AI mentor.
// Messages live in the users/{uid}/messages subcollection and expire one hour after creation.
type ChatMessage struct {
	ID        string    `json:"id" firestore:"-"`
	Text      string    `json:"text" firestore:"text"`
	Sender    string    `json:"sender" firestore:"sender"`   // "user" or "ai"
	Surface   string    `json:"surface" firestore:"surface"` // chat surface the message belongs to
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}
