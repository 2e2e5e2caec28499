package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditRegistered            AuditAction = "registered"
	AuditActivated             AuditAction = "activated"
	AuditOAuthSignup           AuditAction = "oauth_signup"
	AuditRegistrationCompleted AuditAction = "registration_completed"
	AuditLoginSuccess          AuditAction = "login_success"
	AuditLoginFailed           AuditAction = "login_failed"
	AuditResetRequested        AuditAction = "password_reset_requested"
	AuditPasswordReset         AuditAction = "password_reset"
	AuditLogout                AuditAction = "logout"
	AuditSessionRevoked        AuditAction = "session_revoked"
)

type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	AccountID *uuid.UUID `gorm:"type:uuid;index"`
	Account   *Account   `gorm:"constraint:OnDelete:SET NULL"`

	IPAddress *string     `gorm:"type:varchar(45)"`
	Action    AuditAction `gorm:"type:audit_action;not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}
