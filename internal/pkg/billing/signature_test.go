package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const (
	testPlatformSecret = "whsec_platform_test"
	testConnectSecret  = "whsec_connect_test"
)

func testCandidates() []WebhookSecret {
	return []WebhookSecret{
		{Domain: TrustDomainPlatform, Secret: testPlatformSecret},
		{Domain: TrustDomainConnect, Secret: testConnectSecret},
	}
}

// signPayload builds a provider signature header for the given payload, the
// same scheme the SDK verifies: HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func testEventBody(eventType string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_test_1","type":%q,"data":{"object":{"id":"obj_1"}}}`, eventType))
}

func TestVerifySignature_PlatformSecret(t *testing.T) {
	body := testEventBody("checkout.session.completed")
	header := signPayload(t, body, testPlatformSecret)

	event, domain, err := VerifySignature(body, header, testCandidates())
	if err != nil {
		t.Fatalf("expected signature to verify, got %v", err)
	}
	if domain != TrustDomainPlatform {
		t.Fatalf("expected platform trust domain, got %q", domain)
	}
	if event.ID != "evt_test_1" {
		t.Fatalf("unexpected event id %q", event.ID)
	}
}

func TestVerifySignature_ConnectFallback(t *testing.T) {
	body := testEventBody("checkout.session.completed")
	header := signPayload(t, body, testConnectSecret)

	_, domain, err := VerifySignature(body, header, testCandidates())
	if err != nil {
		t.Fatalf("expected connect secret to verify, got %v", err)
	}
	if domain != TrustDomainConnect {
		t.Fatalf("expected connect trust domain, got %q", domain)
	}
}

func TestVerifySignature_Idempotent(t *testing.T) {
	body := testEventBody("payment_intent.succeeded")
	header := signPayload(t, body, testConnectSecret)

	first, firstDomain, err := VerifySignature(body, header, testCandidates())
	if err != nil {
		t.Fatalf("first verification failed: %v", err)
	}
	second, secondDomain, err := VerifySignature(body, header, testCandidates())
	if err != nil {
		t.Fatalf("second verification failed: %v", err)
	}
	if first.ID != second.ID || firstDomain != secondDomain {
		t.Fatalf("verification is not idempotent: (%q,%q) vs (%q,%q)", first.ID, firstDomain, second.ID, secondDomain)
	}
}

func TestVerifySignature_UnknownSecretFailsBothDomains(t *testing.T) {
	body := testEventBody("checkout.session.completed")
	header := signPayload(t, body, "whsec_somebody_else")

	_, _, err := VerifySignature(body, header, testCandidates())
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignature_MissingHeader(t *testing.T) {
	body := testEventBody("checkout.session.completed")

	_, _, err := VerifySignature(body, "", testCandidates())
	if !errors.Is(err, ErrNoSignature) {
		t.Fatalf("expected ErrNoSignature, got %v", err)
	}
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	body := testEventBody("checkout.session.completed")
	header := signPayload(t, body, testPlatformSecret)

	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = 'X'

	_, _, err := VerifySignature(tampered, header, testCandidates())
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for tampered body, got %v", err)
	}
}

func TestSecretsFromEnv_Order(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testPlatformSecret)
	t.Setenv("STRIPE_CONNECT_WEBHOOK_SECRET", testConnectSecret)

	secrets := SecretsFromEnv()
	if len(secrets) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(secrets))
	}
	if secrets[0].Domain != TrustDomainPlatform {
		t.Fatalf("platform secret must be tried first, got %q", secrets[0].Domain)
	}
	if secrets[1].Domain != TrustDomainConnect {
		t.Fatalf("connect secret must be tried second, got %q", secrets[1].Domain)
	}
}
