// internal/models/query.go
package models

import "time"

// QueryStatus is the lifecycle state of a clarification thread.
type QueryStatus string

const (
	QueryStatusOpen         QueryStatus = "open"
	QueryStatusUserReplied  QueryStatus = "user_replied"
	QueryStatusAdminReplied QueryStatus = "admin_replied"
	QueryStatusResolved     QueryStatus = "resolved"
	QueryStatusClosed       QueryStatus = "closed"
)

// IsTerminal reports whether the status accepts no further replies.
func (s QueryStatus) IsTerminal() bool {
	return s == QueryStatusResolved || s == QueryStatusClosed
}

// Valid reports whether s is one of the five known states.
func (s QueryStatus) Valid() bool {
	switch s {
	case QueryStatusOpen, QueryStatusUserReplied, QueryStatusAdminReplied,
		QueryStatusResolved, QueryStatusClosed:
		return true
	}
	return false
}

// Priority of a clarification query.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the four known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Query is one clarification thread tied to exactly one claim. The counter
// fields are derived from the message log and are only ever recomputed
// server-side inside the same transaction as the mutation.
type Query struct {
	ID             string      `json:"id" db:"id"`
	ApplicationID  string      `json:"applicationId" db:"application_id"`
	Subject        string      `json:"subject" db:"subject"`
	Status         QueryStatus `json:"status" db:"status"`
	Priority       Priority    `json:"priority" db:"priority"`
	CreatedByID    string      `json:"createdById" db:"created_by_id"`
	CreatedByName  string      `json:"createdByName" db:"created_by_name"`
	CreatedByRole  string      `json:"createdByRole" db:"created_by_role"`
	EmployeeEmail  string      `json:"employeeEmail" db:"employee_email"`
	AccessToken    string      `json:"-" db:"access_token"`
	TokenExpiresAt time.Time   `json:"tokenExpiresAt" db:"token_expires_at"`
	TotalMessages  int         `json:"totalMessages" db:"total_messages"`
	UnreadByAdmin  bool        `json:"unreadByAdmin" db:"unread_by_admin"`
	UnreadByUser   bool        `json:"unreadByUser" db:"unread_by_user"`
	LastMessageAt  *time.Time  `json:"lastMessageAt,omitempty" db:"last_message_at"`
	LastMessageBy  string      `json:"lastMessageBy,omitempty" db:"last_message_by"`
	ResolvedAt     *time.Time  `json:"resolvedAt,omitempty" db:"resolved_at"`
	ResolvedBy     string      `json:"resolvedBy,omitempty" db:"resolved_by"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`
}

// TokenExpired reports whether the public access token has lapsed.
func (q *Query) TokenExpired(now time.Time) bool {
	return !now.Before(q.TokenExpiresAt)
}

// QueryStats are the dashboard counters for the admin cells.
type QueryStats struct {
	UnreadCount      int `json:"unread_count"`
	OpenCount        int `json:"open_count"`
	UserRepliedCount int `json:"user_replied_count"`
}

// QueryFilter narrows directory listings.
type QueryFilter struct {
	ApplicationID string
	Status        QueryStatus
	Priority      Priority
	Search        string
}
