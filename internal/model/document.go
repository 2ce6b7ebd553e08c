package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentKind enum constants
const (
	DocKindContract     = "CONTRACT"
	DocKindCertificate  = "CERTIFICATE"
	DocKindRegistration = "REGISTRATION"
	DocKindOther        = "OTHER"
)

// Document is a file-backed record awaiting approval or registration. Approval and
// registration requests point at a Document through their target id. The actual
// file lives in an external store; only the metadata is kept here.
type Document struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title          string         `gorm:"type:varchar(255);not null" json:"title"`
	Kind           string         `gorm:"type:varchar(30);not null;index" json:"kind"`
	OwnerID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner          *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	RegistrationNo string         `gorm:"type:varchar(100);index" json:"registration_no"` // assigned when a registration request completes
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
