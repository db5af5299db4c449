package billing

import (
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
)

// EventKind discriminates the provider event types this engine reacts to.
type EventKind string

const (
	EventCheckoutCompleted      EventKind = "checkout.session.completed"
	EventPaymentIntentSucceeded EventKind = "payment_intent.succeeded"
	EventSubscriptionCreated    EventKind = "customer.subscription.created"
	EventSubscriptionUpdated    EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted    EventKind = "customer.subscription.deleted"
	EventRecurringInvoicePaid   EventKind = "invoice.paid"
)

// Event is the normalized internal form of a verified provider event.
// Exactly one of the payload pointers is set for handled kinds; all of them
// are nil for kinds the engine accepts but ignores.
type Event struct {
	ID          string
	Kind        EventKind
	TrustDomain TrustDomain
	Account     string

	Checkout         *CheckoutPayload
	PaymentIntent    *PaymentIntentPayload
	Subscription     *SubscriptionPayload
	RecurringInvoice *RecurringInvoicePayload

	Raw json.RawMessage
}

// CheckoutPayload carries the fields of a completed hosted checkout session.
type CheckoutPayload struct {
	SessionID   string
	Mode        string
	AmountTotal int64 // minor units
	InvoiceID   string
	Metadata    map[string]string
}

// PaymentIntentPayload carries the fields of a succeeded payment intent.
type PaymentIntentPayload struct {
	IntentID       string
	AmountReceived int64 // minor units
	InvoiceID      string
	Metadata       map[string]string
}

// SubscriptionPayload carries the fields of a subscription lifecycle event.
type SubscriptionPayload struct {
	SubscriptionID   string
	CustomerID       string
	Status           string
	UserID           string
	Tier             string
	CurrentPeriodEnd int64 // unix seconds
}

// RecurringInvoicePayload carries the fields of a paid recurring invoice.
type RecurringInvoicePayload struct {
	ProviderInvoiceID string
	SubscriptionID    string
	AmountPaid        int64 // minor units
	BillingReason     string
}

// Raw payload shapes decoded from event data. Local structs instead of the
// SDK resource types keep decoding stable across provider API versions.
type checkoutSessionData struct {
	ID          string            `json:"id"`
	Mode        string            `json:"mode"`
	AmountTotal int64             `json:"amount_total"`
	Metadata    map[string]string `json:"metadata"`
}

type paymentIntentData struct {
	ID             string            `json:"id"`
	AmountReceived int64             `json:"amount_received"`
	Metadata       map[string]string `json:"metadata"`
}

type subscriptionData struct {
	ID               string            `json:"id"`
	Customer         string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
}

type providerInvoiceData struct {
	ID            string `json:"id"`
	Subscription  string `json:"subscription"`
	AmountPaid    int64  `json:"amount_paid"`
	BillingReason string `json:"billing_reason"`
}

// DecodeEvent normalizes a verified provider event. Unhandled kinds decode to
// an Event with no payload set; the router accepts and ignores them.
func DecodeEvent(se stripe.Event, domain TrustDomain) (Event, error) {
	var raw json.RawMessage
	if se.Data != nil {
		raw = se.Data.Raw
	}
	evt := Event{
		ID:          se.ID,
		Kind:        EventKind(se.Type),
		TrustDomain: domain,
		Account:     se.Account,
		Raw:         raw,
	}

	switch evt.Kind {
	case EventCheckoutCompleted:
		var data checkoutSessionData
		if err := json.Unmarshal(raw, &data); err != nil {
			return Event{}, fmt.Errorf("decode checkout session: %w", err)
		}
		evt.Checkout = &CheckoutPayload{
			SessionID:   data.ID,
			Mode:        data.Mode,
			AmountTotal: data.AmountTotal,
			InvoiceID:   data.Metadata["invoice_id"],
			Metadata:    data.Metadata,
		}
	case EventPaymentIntentSucceeded:
		var data paymentIntentData
		if err := json.Unmarshal(raw, &data); err != nil {
			return Event{}, fmt.Errorf("decode payment intent: %w", err)
		}
		evt.PaymentIntent = &PaymentIntentPayload{
			IntentID:       data.ID,
			AmountReceived: data.AmountReceived,
			InvoiceID:      data.Metadata["invoice_id"],
			Metadata:       data.Metadata,
		}
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var data subscriptionData
		if err := json.Unmarshal(raw, &data); err != nil {
			return Event{}, fmt.Errorf("decode subscription: %w", err)
		}
		evt.Subscription = &SubscriptionPayload{
			SubscriptionID:   data.ID,
			CustomerID:       data.Customer,
			Status:           data.Status,
			UserID:           data.Metadata["user_id"],
			Tier:             data.Metadata["tier"],
			CurrentPeriodEnd: data.CurrentPeriodEnd,
		}
	case EventRecurringInvoicePaid:
		var data providerInvoiceData
		if err := json.Unmarshal(raw, &data); err != nil {
			return Event{}, fmt.Errorf("decode provider invoice: %w", err)
		}
		evt.RecurringInvoice = &RecurringInvoicePayload{
			ProviderInvoiceID: data.ID,
			SubscriptionID:    data.Subscription,
			AmountPaid:        data.AmountPaid,
			BillingReason:     data.BillingReason,
		}
	}

	return evt, nil
}
