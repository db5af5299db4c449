package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/fieldledger/FieldLedger/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Service applies verified payment-provider events to invoices and profiles.
// All dependencies are injected; nothing reaches for ambient globals.
type Service struct {
	repo     Repository
	provider ProviderClient
	notifier Notifier
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, provider ProviderClient, notifier Notifier) *Service {
	return &Service{repo: repo, provider: provider, notifier: notifier}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider ProviderClient, notifier Notifier) *Service {
	return NewService(NewRepository(db), provider, notifier)
}

// HandleEvent records, deduplicates and dispatches one verified event.
// Redelivered events (same provider event ID) are ignored only once a prior
// delivery processed cleanly; a redelivery after a failed attempt is
// reprocessed, since 404/500 responses ask the provider to retry.
func (s *Service) HandleEvent(ctx context.Context, evt Event) error {
	eventID := strings.TrimSpace(evt.ID)
	if eventID == "" {
		sum := sha256.Sum256(evt.Raw)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Provider:        ProviderStripe,
		ProviderEventID: eventID,
		EventType:       string(evt.Kind),
		TrustDomain:     string(evt.TrustDomain),
		PayloadJSON:     string(evt.Raw),
	})
	if err != nil {
		return err
	}
	if !created {
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			log.Infof("[Billing] Duplicate delivery of event %s (%s) ignored", eventID, evt.Kind)
			return nil
		}
		log.Infof("[Billing] Redelivery of event %s (%s) after failed processing, retrying", eventID, evt.Kind)
	}

	handleErr := s.dispatch(ctx, evt)

	errMsg := ""
	if handleErr != nil {
		errMsg = handleErr.Error()
	}
	if markErr := s.repo.MarkWebhookProcessed(stored.ID, errMsg); markErr != nil {
		log.Errorf("[Billing] Failed to mark event %s processed: %v", eventID, markErr)
	}

	return handleErr
}

func (s *Service) dispatch(ctx context.Context, evt Event) error {
	switch evt.Kind {
	case EventCheckoutCompleted:
		return s.settleCheckout(ctx, evt)
	case EventPaymentIntentSucceeded:
		return s.settlePaymentIntent(ctx, evt)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.applySubscription(ctx, evt)
	case EventSubscriptionDeleted:
		return s.deleteSubscription(ctx, evt)
	case EventRecurringInvoicePaid:
		return s.renewSubscription(ctx, evt)
	default:
		log.Infof("[Billing] Ignoring unhandled event kind %s (%s)", evt.Kind, evt.ID)
		return nil
	}
}
