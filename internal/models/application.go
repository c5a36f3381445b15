// internal/models/application.go
package models

import "time"

// ClaimStatus is the approval-pipeline state of a reimbursement claim.
type ClaimStatus string

const (
	ClaimStatusPending     ClaimStatus = "pending"
	ClaimStatusUnderReview ClaimStatus = "under_review"
	ClaimStatusBackToOBC   ClaimStatus = "back_to_obc"
	ClaimStatusApproved    ClaimStatus = "approved"
	ClaimStatusRejected    ClaimStatus = "rejected"
	ClaimStatusCompleted   ClaimStatus = "completed"
	ClaimStatusReimbursed  ClaimStatus = "reimbursed"
)

// Valid reports whether s is a known claim status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusUnderReview, ClaimStatusBackToOBC,
		ClaimStatusApproved, ClaimStatusRejected, ClaimStatusCompleted,
		ClaimStatusReimbursed:
		return true
	}
	return false
}

// Application is the medical-reimbursement claim record. The query
// subsystem references it; the approval pipeline owns its status field.
type Application struct {
	ID                string      `json:"id" db:"id"`
	ApplicationNumber string      `json:"applicationNumber" db:"application_number"`
	EmployeeID        string      `json:"employeeId" db:"employee_id"`
	EmployeeName      string      `json:"employeeName" db:"employee_name"`
	EmployeeEmail     string      `json:"employeeEmail" db:"employee_email"`
	Status            ClaimStatus `json:"status" db:"status"`
	AmountClaimed     float64     `json:"amountClaimed" db:"amount_claimed"`
	AmountApproved    float64     `json:"amountApproved" db:"amount_approved"`
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time   `json:"updatedAt" db:"updated_at"`
}

// ClaimStatusChange is one audit row in the claim's status history.
type ClaimStatusChange struct {
	ID            string      `json:"id" db:"id"`
	ApplicationID string      `json:"applicationId" db:"application_id"`
	FromStatus    ClaimStatus `json:"fromStatus" db:"from_status"`
	ToStatus      ClaimStatus `json:"toStatus" db:"to_status"`
	Comments      string      `json:"comments,omitempty" db:"comments"`
	AmountPassed  *float64    `json:"amountPassed,omitempty" db:"amount_passed"`
	ChangedByID   string      `json:"changedById" db:"changed_by_id"`
	ChangedByName string      `json:"changedByName" db:"changed_by_name"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
}
