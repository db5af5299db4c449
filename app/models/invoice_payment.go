package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoicePayment is one settled amount applied to an invoice. Rows are only
// ever inserted, one per processed provider event, so the table doubles as an
// audit ledger for the invoice's running total.
type InvoicePayment struct {
	ID              string          `gorm:"type:char(36);primaryKey" json:"id"`
	InvoiceID       string          `gorm:"type:char(36);not null;index" json:"invoice_id"`
	Provider        string          `gorm:"type:varchar(20);not null" json:"provider"`
	ProviderEventID string          `gorm:"type:varchar(191);not null;index" json:"provider_event_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (p *InvoicePayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
