package entity

import (
	"time"

	"github.com/google/uuid"
)

type AccountRole string

const (
	AccountRoleUser    AccountRole = "user"
	AccountRoleCompany AccountRole = "company"
	AccountRoleAdmin   AccountRole = "admin"
)

type SubscriptionPlan string

const (
	PlanBasic    SubscriptionPlan = "basic"
	PlanStandard SubscriptionPlan = "standard"
	PlanPremium  SubscriptionPlan = "premium"
)

func (p SubscriptionPlan) Valid() bool {
	switch p {
	case PlanBasic, PlanStandard, PlanPremium:
		return true
	}
	return false
}

// Account holds both user and company records, discriminated by Role.
// The single-use tokens live directly on the row and are set to NULL
// when consumed.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	FirstName string    `gorm:"type:varchar(100)"`
	LastName  string    `gorm:"type:varchar(100)"`
	Phone     *string   `gorm:"type:varchar(32)"`

	CompanyName *string     `gorm:"type:varchar(255)"`
	Region      *string     `gorm:"type:varchar(100)"`
	Role        AccountRole `gorm:"type:account_role;default:'user';not null"`

	PasswordHash      *string `gorm:"type:text"`
	OAuthToken        *string `gorm:"type:varchar(64);index"`
	ActivationToken   *string `gorm:"type:varchar(64);index"`
	ResetToken        *string `gorm:"type:varchar(64);index"`
	ResetTokenExpires *time.Time

	IsActive    bool `gorm:"default:false"`
	ActivatedAt *time.Time

	SubscriptionPlan SubscriptionPlan `gorm:"type:subscription_plan;default:'basic';not null"`
	ReferralCode     *string          `gorm:"type:varchar(64)"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Sessions []Session
}
