package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubscriptionTierFree = "free"
	SubscriptionTierSolo = "solo"
	SubscriptionTierPro  = "pro"
)

// SubscriptionProviderStripe tags subscription state synced from Stripe
// platform billing.
const SubscriptionProviderStripe = "stripe"

// Profile is the account record for a business owner. The subscription_*
// columns mirror provider-side subscription state and are mutated only by the
// subscription lifecycle engine.
type Profile struct {
	ID                    string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID                string     `gorm:"type:char(36);not null;uniqueIndex" json:"user_id" validate:"required"`
	BusinessName          string     `gorm:"type:varchar(150)" json:"business_name" validate:"max=150"`
	OwnerName             string     `gorm:"type:varchar(150)" json:"owner_name" validate:"max=150"`
	Email                 string     `gorm:"type:varchar(200);index" json:"email" validate:"omitempty,email,max=200"`
	Phone                 string     `gorm:"type:varchar(30)" json:"phone" validate:"max=30"`
	SubscriptionTier      string     `gorm:"type:varchar(50);not null;default:'free';index" json:"subscription_tier"`
	SubscriptionProvider  string     `gorm:"type:varchar(20);not null;default:''" json:"subscription_provider"`
	SubscriptionID        string     `gorm:"type:varchar(191);not null;default:'';index" json:"subscription_id"`
	SubscriptionExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Profile) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
