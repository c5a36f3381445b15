// internal/models/message.go
package models

import "time"

// SenderType distinguishes the two sides of a thread.
type SenderType string

const (
	SenderAdmin SenderType = "admin"
	SenderUser  SenderType = "user"
)

// Valid reports whether s is a known sender type.
func (s SenderType) Valid() bool {
	return s == SenderAdmin || s == SenderUser
}

// Message is one entry in a query's append-only log. Messages are never
// edited or reordered after creation; ordering is by CreatedAt.
type Message struct {
	ID             string     `json:"id" db:"id"`
	QueryID        string     `json:"queryId" db:"query_id"`
	Body           string     `json:"body" db:"body"`
	SenderType     SenderType `json:"senderType" db:"sender_type"`
	SenderID       string     `json:"senderId,omitempty" db:"sender_id"`
	SenderName     string     `json:"senderName,omitempty" db:"sender_name"`
	SenderRole     string     `json:"senderRole,omitempty" db:"sender_role"`
	IsInternalNote bool       `json:"isInternalNote" db:"is_internal_note"`
	ReadByRecipient bool      `json:"readByRecipient" db:"read_by_recipient"`
	ReadAt         *time.Time `json:"readAt,omitempty" db:"read_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}
