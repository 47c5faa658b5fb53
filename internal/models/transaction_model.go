package models

import "time"

// Transaction statuses.
const (
	TransactionPending = "pending"
	TransactionPaid    = "paid"
	TransactionFailed  = "failed" // the gateway never created a charge
)

// PaymentMethodPix is the only payment method offered through the gateway functions.
const PaymentMethodPix = "pix"

// Transaction records one checkout attempt.
type Transaction struct {
	ID            string     `json:"transactionId" firestore:"-"` // Document ID, also sent to the gateway as idempotency key
	UserID        string     `json:"uid" firestore:"uid"`
	Email         string     `json:"email" firestore:"email"`
	CourseID      string     `json:"courseId" firestore:"courseId"`
	Status        string     `json:"status" firestore:"status"`
	PaymentMethod string     `json:"paymentMethod" firestore:"paymentMethod"`
	Amount        float64    `json:"amount" firestore:"amount"`
	PaymentID     string     `json:"paymentId,omitempty" firestore:"paymentId,omitempty"` // Gateway-side payment ID
	PaidAt        *time.Time `json:"paidAt,omitempty" firestore:"paidAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt     time.Time  `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}
