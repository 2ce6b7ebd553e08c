package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification event kinds
const (
	EventRequestSubmitted = "REQUEST_SUBMITTED"
	EventRequestApproved  = "REQUEST_APPROVED"
	EventRequestRejected  = "REQUEST_REJECTED"
	EventRequestAdvanced  = "REQUEST_ADVANCED"
)

// Notification is an in-app message about a request state change. Delivery is
// best-effort: the lifecycle engine fires these after commit and never fails a
// decision because a notification could not be written or pushed.
type Notification struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipient_id"`
	RequestID   uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	EventKind   string    `gorm:"type:varchar(30);not null" json:"event_kind"`
	Message     string    `gorm:"type:text" json:"message"`
	IsRead      bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
