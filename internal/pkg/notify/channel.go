package notify

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/fieldledger/FieldLedger/internal/pkg/mail"
)

// Channel is the outbound notification capability. It is resolved exactly
// once at startup: SMTP-backed when an SMTP host is configured, Disabled
// otherwise. A missing mail credential disables notifications, it never
// fails webhook handling.
type Channel interface {
	Enabled() bool
	Send(to, subject, body string) error
}

type smtpChannel struct{}

func (smtpChannel) Enabled() bool { return true }

func (smtpChannel) Send(to, subject, body string) error {
	return mail.SendMail(to, subject, body)
}

type disabledChannel struct{}

func (disabledChannel) Enabled() bool { return false }

func (disabledChannel) Send(to, subject, body string) error { return nil }

// NewChannelFromEnv resolves the notification capability from environment
// configuration.
func NewChannelFromEnv() Channel {
	if mail.IsConfigured() {
		return smtpChannel{}
	}
	log.Info("[Notify] SMTP not configured, settlement notifications disabled")
	return disabledChannel{}
}

// Disabled returns a channel that drops every notification. Useful in tests.
func Disabled() Channel {
	return disabledChannel{}
}
