package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestType enum constants — determines which payload fields are required
const (
	RequestTypeTaskHelp         = "task_help"
	RequestTypeTaskExtension    = "task_extension"
	RequestTypeDepartmentTask   = "department_task"
	RequestTypeHRTask           = "hr_task"
	RequestTypeLogisticsItem    = "logistics_item"
	RequestTypeLeave            = "leave"
	RequestTypeDocumentApproval = "document_approval"
	RequestTypeRegistration     = "registration"
)

// RequestStatus constants. pending is the only initial state; approved/rejected are
// set exactly once. Logistics/document variants continue through
// purchased → delivered → completed after approval.
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusPurchased = "purchased"
	RequestStatusDelivered = "delivered"
	RequestStatusCompleted = "completed"
)

// Urgency constants — a sort hint for the pending queue, not an SLA
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
	UrgencyUrgent = "urgent"
)

// Request is the uniform envelope shared by every request variant. Type-specific
// fields live in the jsonb Payload snapshot; the lifecycle engine only validates
// the per-type required keys at submission and treats the rest as opaque.
type Request struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type            string     `gorm:"type:varchar(30);not null;index" json:"type"`
	RequesterID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester       *User      `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	TargetID        *uuid.UUID `gorm:"type:uuid;index" json:"target_id"` // task/document/employee the request concerns
	Title           string     `gorm:"type:varchar(255);not null" json:"title"`
	Description     string     `gorm:"type:text;not null" json:"description"`
	Urgency         string     `gorm:"type:varchar(10);not null;default:'medium';index" json:"urgency"`
	Payload         string     `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ResponseMessage string     `gorm:"type:text" json:"response_message"` // mandatory when rejected
	ReviewerID      *uuid.UUID `gorm:"type:uuid" json:"reviewer_id"`
	Reviewer        *User      `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DecidedAt       *time.Time `json:"decided_at"` // set together with ReviewerID, exactly once
}

// ValidRequestType reports whether t is one of the known request type tags
func ValidRequestType(t string) bool {
	switch t {
	case RequestTypeTaskHelp, RequestTypeTaskExtension, RequestTypeDepartmentTask,
		RequestTypeHRTask, RequestTypeLogisticsItem, RequestTypeLeave,
		RequestTypeDocumentApproval, RequestTypeRegistration:
		return true
	}
	return false
}

// ValidUrgency reports whether u is one of the known urgency levels
func ValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

// UrgencyRank maps urgency to its sort weight (urgent > high > medium > low)
func UrgencyRank(u string) int {
	switch u {
	case UrgencyUrgent:
		return 4
	case UrgencyHigh:
		return 3
	case UrgencyMedium:
		return 2
	default:
		return 1
	}
}

// Advanceable reports whether the request type carries the post-approval
// purchased → delivered → completed chain
func Advanceable(requestType string) bool {
	return requestType == RequestTypeLogisticsItem || requestType == RequestTypeDocumentApproval
}

// NextProgressState returns the state that must precede next in the post-approval
// chain, or "" if next is not a legal progress state.
func NextProgressState(next string) (prev string) {
	switch next {
	case RequestStatusPurchased:
		return RequestStatusApproved
	case RequestStatusDelivered:
		return RequestStatusPurchased
	case RequestStatusCompleted:
		return RequestStatusDelivered
	}
	return ""
}

// TerminalStatus reports whether a request in this status can never change again
func TerminalStatus(status string) bool {
	return status == RequestStatusRejected || status == RequestStatusCompleted
}
