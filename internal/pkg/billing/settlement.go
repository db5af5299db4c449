package billing

import (
	"context"
	"errors"
	"time"

	"github.com/fieldledger/FieldLedger/app/models"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// settleMaxAttempts bounds the retry loop around the conditional invoice
// update when concurrent deliveries race on the same invoice.
const settleMaxAttempts = 3

func (s *Service) settleCheckout(ctx context.Context, evt Event) error {
	p := evt.Checkout
	if p == nil || p.InvoiceID == "" {
		log.Infof("[Billing] Checkout event %s carries no invoice reference, skipping", evt.ID)
		return nil
	}
	return s.settleInvoice(ctx, p.InvoiceID, p.AmountTotal, evt.ID)
}

func (s *Service) settlePaymentIntent(ctx context.Context, evt Event) error {
	p := evt.PaymentIntent
	if p == nil || p.InvoiceID == "" {
		log.Infof("[Billing] Payment intent event %s carries no invoice reference, skipping", evt.ID)
		return nil
	}
	return s.settleInvoice(ctx, p.InvoiceID, p.AmountReceived, evt.ID)
}

// settleInvoice applies one settled amount (minor units) to the invoice's
// payment ledger and recomputes its status. The conditional update on the
// observed paid amount prevents lost updates under concurrent deliveries.
func (s *Service) settleInvoice(ctx context.Context, invoiceID string, amountMinor int64, eventID string) error {
	if amountMinor <= 0 {
		log.Warnf("[Billing] Event %s carries non-positive amount %d for invoice %s, skipping", eventID, amountMinor, invoiceID)
		return nil
	}
	amount := decimal.New(amountMinor, -2)

	for attempt := 0; attempt < settleMaxAttempts; attempt++ {
		inv, err := s.repo.GetInvoice(invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}

		observed := inv.AmountPaid
		newPaid := observed.Add(amount)

		newStatus := models.InvoiceStatusPartiallyPaid
		if newPaid.GreaterThanOrEqual(inv.Total) {
			newStatus = models.InvoiceStatusPaid
		}
		if inv.Status == models.InvoiceStatusPaid {
			// A late partial event never regresses a settled invoice.
			newStatus = models.InvoiceStatusPaid
		}

		var paidAt *time.Time
		if newStatus == models.InvoiceStatusPaid && inv.PaidAt == nil {
			now := time.Now()
			paidAt = &now
		}

		payment := &models.InvoicePayment{
			InvoiceID:       inv.ID,
			Provider:        ProviderStripe,
			ProviderEventID: eventID,
			Amount:          amount,
		}

		applied, err := s.repo.SettleInvoice(inv.ID, observed, InvoiceSettlement{
			AmountPaid: newPaid,
			Status:     newStatus,
			PaidAt:     paidAt,
		}, payment)
		if err != nil {
			return err
		}
		if applied {
			log.Infof("[Billing] Settled %s on invoice %s (status %s)", amount.StringFixed(2), inv.ID, newStatus)
			s.notifySettlement(ctx, inv, amount, newStatus)
			return nil
		}
		// A concurrent delivery updated the row first; re-read and retry.
	}

	return ErrSettleConflict
}

// notifySettlement dispatches the best-effort owner notification. Failures
// here are logged and swallowed; the settlement is already persisted and the
// provider must not see an error for it.
func (s *Service) notifySettlement(ctx context.Context, inv *models.Invoice, amount decimal.Decimal, status string) {
	if s.notifier == nil {
		return
	}

	notice := SettlementNotice{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Amount:        amount,
		Status:        status,
	}

	if profile, err := s.repo.GetProfileByUserID(inv.UserID); err == nil {
		notice.OwnerName = profile.OwnerName
		notice.OwnerEmail = profile.Email
	} else {
		log.Warnf("[Billing] No profile for user %s, skipping settlement notification: %v", inv.UserID, err)
		return
	}
	if client, err := s.repo.GetClient(inv.ClientID); err == nil {
		notice.ClientName = client.Name
	} else {
		log.Warnf("[Billing] Client %s lookup failed for settlement notification: %v", inv.ClientID, err)
	}

	if notice.OwnerEmail == "" {
		return
	}
	if err := s.notifier.NotifySettlement(ctx, notice); err != nil {
		log.Errorf("[Billing] Settlement notification failed for invoice %s: %v", inv.ID, err)
	}
}
