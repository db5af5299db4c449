package billing

import (
	"context"
	"errors"

	"github.com/fieldledger/FieldLedger/internal/pkg/env"
	"github.com/shopspring/decimal"
)

// ProviderStripe tags records produced from Stripe deliveries.
const ProviderStripe = "stripe"

// TrustDomain identifies which configured secret authenticated a delivery:
// platform-level billing or a connected business account.
type TrustDomain string

const (
	TrustDomainPlatform TrustDomain = "platform"
	TrustDomainConnect  TrustDomain = "connect"
)

// WebhookSecret is one verification candidate tagged with its trust domain.
type WebhookSecret struct {
	Domain TrustDomain
	Secret string
}

// Config carries the provider credentials required by the webhook pipeline.
type Config struct {
	APIKey  string
	Secrets []WebhookSecret
}

var (
	ErrNoSignature      = errors.New("no signature")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	// ErrSettleConflict is returned when the conditional invoice update kept
	// losing against concurrent deliveries. The provider retries on 500.
	ErrSettleConflict = errors.New("settlement conflicted with concurrent updates")
)

// SecretsFromEnv returns the verification candidates in trust-domain order.
// The order is fixed: the platform secret is always tried before the
// connected-account secret, since verification short-circuits on the first
// candidate that validates.
func SecretsFromEnv() []WebhookSecret {
	var secrets []WebhookSecret
	if s := env.GetEnv("STRIPE_WEBHOOK_SECRET", ""); s != "" {
		secrets = append(secrets, WebhookSecret{Domain: TrustDomainPlatform, Secret: s})
	}
	if s := env.GetEnv("STRIPE_CONNECT_WEBHOOK_SECRET", ""); s != "" {
		secrets = append(secrets, WebhookSecret{Domain: TrustDomainConnect, Secret: s})
	}
	return secrets
}

// ConfigFromEnv loads the provider configuration. An incomplete configuration
// is reported, not partially used.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:  env.GetEnv("STRIPE_SECRET_KEY", ""),
		Secrets: SecretsFromEnv(),
	}
	if cfg.APIKey == "" {
		return Config{}, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	if len(cfg.Secrets) == 0 {
		return Config{}, errors.New("no webhook secret configured")
	}
	return cfg, nil
}

// SettlementNotice summarizes a settled payment for the business owner.
type SettlementNotice struct {
	InvoiceID     string
	InvoiceNumber string
	ClientName    string
	OwnerName     string
	OwnerEmail    string
	Amount        decimal.Decimal
	Status        string
}

// Notifier delivers settlement notices. Implementations are best-effort:
// the settlement engine logs and swallows every notifier error.
type Notifier interface {
	NotifySettlement(ctx context.Context, n SettlementNotice) error
}
