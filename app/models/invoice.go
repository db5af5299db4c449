package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusSent          = "sent"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusPaid          = "paid"
	// InvoiceStatusOverdue is written by the overdue sweep, never by the
	// settlement engine.
	InvoiceStatusOverdue = "overdue"
)

// Invoice is the payment ledger target for settlement events. Total is fixed
// at creation; AmountPaid only grows while settlement events are applied.
type Invoice struct {
	ID         string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string          `gorm:"type:char(36);not null;index" json:"user_id" validate:"required"`
	ClientID   string          `gorm:"type:char(36);not null;index" json:"client_id" validate:"required"`
	Number     string          `gorm:"type:varchar(50);not null" json:"number" validate:"required,max=50"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	AmountPaid decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_paid"`
	Status     string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status" validate:"oneof=draft sent partially_paid paid overdue"`
	PaidAt     *time.Time      `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (i *Invoice) Validate() error {
	v := validator.New()

	return v.Struct(i)
}

// IsSettled reports whether the running paid total covers the invoice total.
func (i *Invoice) IsSettled() bool {
	return i.AmountPaid.GreaterThanOrEqual(i.Total)
}
