package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldledger/FieldLedger/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// normalizeTier maps a provider-side tier name onto an internal tier. A
// missing or unrecognized name on an active subscription falls back to the
// baseline paid tier.
func normalizeTier(tier string) string {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case models.SubscriptionTierFree:
		return models.SubscriptionTierFree
	case models.SubscriptionTierPro:
		return models.SubscriptionTierPro
	default:
		return models.SubscriptionTierSolo
	}
}

func periodEnd(unix int64) *time.Time {
	if unix <= 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

// applySubscription handles created/updated events. Re-applying the same
// event yields the same profile state.
func (s *Service) applySubscription(ctx context.Context, evt Event) error {
	_ = ctx
	p := evt.Subscription
	if p == nil {
		return nil
	}
	if p.UserID == "" {
		log.Infof("[Billing] Subscription event %s carries no user reference, skipping", evt.ID)
		return nil
	}
	if !strings.EqualFold(p.Status, "active") {
		// Past-due and friends are not modeled; only active state syncs.
		log.Infof("[Billing] Subscription %s status %q on event %s, skipping", p.SubscriptionID, p.Status, evt.ID)
		return nil
	}

	return s.repo.UpsertSubscription(p.UserID, SubscriptionState{
		Tier:           normalizeTier(p.Tier),
		Provider:       models.SubscriptionProviderStripe,
		SubscriptionID: p.SubscriptionID,
		ExpiresAt:      periodEnd(p.CurrentPeriodEnd),
	})
}

// deleteSubscription resets the profile to the free defaults. Terminal for
// that subscription identifier.
func (s *Service) deleteSubscription(ctx context.Context, evt Event) error {
	_ = ctx
	p := evt.Subscription
	if p == nil {
		return nil
	}
	if p.UserID == "" {
		log.Infof("[Billing] Subscription deletion %s carries no user reference, skipping", evt.ID)
		return nil
	}
	return s.repo.ResetSubscription(p.UserID)
}

// renewSubscription handles a paid recurring invoice: the subscription's
// current metadata is re-fetched from the provider and the active update is
// re-applied with the refreshed billing-period end.
func (s *Service) renewSubscription(ctx context.Context, evt Event) error {
	p := evt.RecurringInvoice
	if p == nil || p.SubscriptionID == "" {
		log.Infof("[Billing] Invoice event %s is not tied to a subscription, skipping", evt.ID)
		return nil
	}
	if s.provider == nil {
		return errors.New("provider client is not configured")
	}

	sub, err := s.provider.GetSubscription(ctx, p.SubscriptionID)
	if err != nil {
		return fmt.Errorf("refresh subscription %s: %w", p.SubscriptionID, err)
	}
	if sub.UserID == "" {
		log.Infof("[Billing] Subscription %s carries no user reference, skipping renewal", sub.ID)
		return nil
	}

	return s.repo.UpsertSubscription(sub.UserID, SubscriptionState{
		Tier:           normalizeTier(sub.Tier),
		Provider:       models.SubscriptionProviderStripe,
		SubscriptionID: sub.ID,
		ExpiresAt:      periodEnd(sub.CurrentPeriodEnd),
	})
}
