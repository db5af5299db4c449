package billing

import (
	"time"

	"github.com/fieldledger/FieldLedger/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceSettlement is the computed outcome of applying one settled amount.
// PaidAt is non-nil only when the update transitions the invoice into paid.
type InvoiceSettlement struct {
	AmountPaid decimal.Decimal
	Status     string
	PaidAt     *time.Time
}

// SubscriptionState is the profile-side mirror of an active provider
// subscription.
type SubscriptionState struct {
	Tier           string
	Provider       string
	SubscriptionID string
	ExpiresAt      *time.Time
}

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetInvoice(id string) (*models.Invoice, error)
	// SettleInvoice applies the settlement and the payment ledger row in one
	// transaction, guarded by a conditional update on the observed paid
	// amount. It reports false without error when a concurrent delivery won
	// the race, in which case the caller re-reads and retries.
	SettleInvoice(invoiceID string, observedPaid decimal.Decimal, update InvoiceSettlement, payment *models.InvoicePayment) (bool, error)
	GetClient(id string) (*models.Client, error)
	GetProfileByUserID(userID string) (*models.Profile, error)
	UpsertSubscription(userID string, state SubscriptionState) error
	ResetSubscription(userID string) error
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetInvoice(id string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormRepository) SettleInvoice(invoiceID string, observedPaid decimal.Decimal, update InvoiceSettlement, payment *models.InvoicePayment) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"amount_paid": update.AmountPaid,
			"status":      update.Status,
		}
		if update.PaidAt != nil {
			updates["paid_at"] = update.PaidAt
		}

		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND amount_paid = ?", invoiceID, observedPaid).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race against a concurrent delivery.
			return nil
		}

		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r *gormRepository) GetClient(id string) (*models.Client, error) {
	var client models.Client
	if err := r.db.Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *gormRepository) GetProfileByUserID(userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *gormRepository) UpsertSubscription(userID string, state SubscriptionState) error {
	profile := &models.Profile{
		UserID:                userID,
		SubscriptionTier:      state.Tier,
		SubscriptionProvider:  state.Provider,
		SubscriptionID:        state.SubscriptionID,
		SubscriptionExpiresAt: state.ExpiresAt,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscription_tier",
			"subscription_provider",
			"subscription_id",
			"subscription_expires_at",
			"updated_at",
		}),
	}).Create(profile).Error
}

func (r *gormRepository) ResetSubscription(userID string) error {
	return r.db.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"subscription_tier":       models.SubscriptionTierFree,
		"subscription_provider":   "",
		"subscription_id":         "",
		"subscription_expires_at": nil,
	}).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
