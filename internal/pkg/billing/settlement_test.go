package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldledger/FieldLedger/app/models"
	"github.com/shopspring/decimal"
)

func TestSettleInvoice_FullPayment(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	notifier := &fakeNotifier{}
	svc := NewService(repo, nil, notifier)

	err := svc.HandleEvent(context.Background(), checkoutEvent("evt_full", "inv-1", 110000))
	if err != nil {
		t.Fatalf("settlement failed: %v", err)
	}

	inv := repo.invoices["inv-1"]
	if !inv.AmountPaid.Equal(decimal.RequireFromString("1100.00")) {
		t.Fatalf("unexpected amount_paid %s", inv.AmountPaid)
	}
	if inv.Status != models.InvoiceStatusPaid {
		t.Fatalf("expected paid status, got %q", inv.Status)
	}
	if inv.PaidAt == nil {
		t.Fatal("paid_at must be set on full settlement")
	}
	if len(notifier.notices) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.notices))
	}
	if notifier.notices[0].OwnerEmail != "dana@example.com" || notifier.notices[0].ClientName != "Acme Roofing" {
		t.Fatalf("unexpected notice %+v", notifier.notices[0])
	}
}

func TestSettleInvoice_PartialPayment(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	svc := NewService(repo, nil, nil)

	err := svc.HandleEvent(context.Background(), checkoutEvent("evt_partial", "inv-1", 50000))
	if err != nil {
		t.Fatalf("settlement failed: %v", err)
	}

	inv := repo.invoices["inv-1"]
	if !inv.AmountPaid.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("unexpected amount_paid %s", inv.AmountPaid)
	}
	if inv.Status != models.InvoiceStatusPartiallyPaid {
		t.Fatalf("expected partially_paid, got %q", inv.Status)
	}
	if inv.PaidAt != nil {
		t.Fatal("paid_at must stay unset on partial settlement")
	}
}

func TestSettleInvoice_PartialsAccumulateToPaid(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	svc := NewService(repo, nil, nil)

	for i, amount := range []int64{40000, 40000, 30000} {
		evt := checkoutEvent("evt_part_"+string(rune('a'+i)), "inv-1", amount)
		if err := svc.HandleEvent(context.Background(), evt); err != nil {
			t.Fatalf("settlement %d failed: %v", i, err)
		}
	}

	inv := repo.invoices["inv-1"]
	if inv.Status != models.InvoiceStatusPaid {
		t.Fatalf("expected paid after accumulated partials, got %q", inv.Status)
	}
	if !inv.AmountPaid.Equal(inv.Total) {
		t.Fatalf("expected amount_paid == total, got %s", inv.AmountPaid)
	}
	if len(repo.payments) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(repo.payments))
	}
}

func TestSettleInvoice_PaidNeverRegresses(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	svc := NewService(repo, nil, nil)

	if err := svc.HandleEvent(context.Background(), checkoutEvent("evt_a", "inv-1", 110000)); err != nil {
		t.Fatalf("full settlement failed: %v", err)
	}
	firstPaidAt := repo.invoices["inv-1"].PaidAt

	if err := svc.HandleEvent(context.Background(), checkoutEvent("evt_b", "inv-1", 1000)); err != nil {
		t.Fatalf("late settlement failed: %v", err)
	}

	inv := repo.invoices["inv-1"]
	if inv.Status != models.InvoiceStatusPaid {
		t.Fatalf("paid invoice regressed to %q", inv.Status)
	}
	if inv.PaidAt != firstPaidAt {
		t.Fatal("paid_at must keep its original settlement time")
	}
	if !inv.AmountPaid.Equal(decimal.RequireFromString("1110.00")) {
		t.Fatalf("over-payment must still be recorded, got %s", inv.AmountPaid)
	}
}

func TestSettleInvoice_NotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	err := svc.HandleEvent(context.Background(), checkoutEvent("evt_404", "inv-missing", 5000))
	if !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestSettleInvoice_MissingInvoiceReference(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	evt := checkoutEvent("evt_noref", "", 5000)
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("events without an invoice reference must be accepted: %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatal("no ledger row expected without an invoice reference")
	}
}

func TestSettleInvoice_NonPositiveAmount(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	svc := NewService(repo, nil, nil)

	if err := svc.HandleEvent(context.Background(), checkoutEvent("evt_zero", "inv-1", 0)); err != nil {
		t.Fatalf("zero amount must be accepted and skipped: %v", err)
	}
	if len(repo.payments) != 0 || repo.invoices["inv-1"].Status != models.InvoiceStatusSent {
		t.Fatal("zero-amount event must not change the invoice")
	}
}

func TestSettleInvoice_RetriesLostRace(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	repo.settleFailures = 2
	svc := NewService(repo, nil, nil)

	if err := svc.HandleEvent(context.Background(), checkoutEvent("evt_race", "inv-1", 50000)); err != nil {
		t.Fatalf("expected the retry loop to absorb lost races: %v", err)
	}
	if repo.settleCalls != 3 {
		t.Fatalf("expected 3 settle attempts, got %d", repo.settleCalls)
	}
	if len(repo.payments) != 1 {
		t.Fatalf("expected exactly 1 ledger row, got %d", len(repo.payments))
	}
}

func TestSettleInvoice_ConflictExhaustsRetries(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	repo.settleFailures = settleMaxAttempts
	svc := NewService(repo, nil, nil)

	err := svc.HandleEvent(context.Background(), checkoutEvent("evt_conflict", "inv-1", 50000))
	if !errors.Is(err, ErrSettleConflict) {
		t.Fatalf("expected ErrSettleConflict, got %v", err)
	}
}

func TestSettleInvoice_NotifierFailureIsSwallowed(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	svc := NewService(repo, nil, notifier)

	if err := svc.HandleEvent(context.Background(), checkoutEvent("evt_notify", "inv-1", 110000)); err != nil {
		t.Fatalf("notifier failure must not fail the settlement: %v", err)
	}
	if repo.invoices["inv-1"].Status != models.InvoiceStatusPaid {
		t.Fatal("settlement must persist despite the notifier failure")
	}
}

func TestSettleInvoice_PaymentIntentRequiresMetadata(t *testing.T) {
	repo := newFakeRepo()
	seedInvoice(repo, "inv-1", "user-1", "client-1", "1100.00")
	svc := NewService(repo, nil, nil)

	evt := Event{
		ID:            "evt_pi",
		Kind:          EventPaymentIntentSucceeded,
		PaymentIntent: &PaymentIntentPayload{IntentID: "pi_1", AmountReceived: 50000},
	}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("payment intents without invoice metadata must be skipped: %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatal("no ledger row expected without invoice metadata")
	}
}
