package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// EmailSender is the outbound capability the processor delivers through.
// Satisfied by notify.Channel.
type EmailSender interface {
	Enabled() bool
	Send(to, subject, body string) error
}

// EmailProcessor delivers settlement email jobs.
type EmailProcessor struct {
	sender EmailSender
}

func NewEmailProcessor(sender EmailSender) *EmailProcessor {
	return &EmailProcessor{sender: sender}
}

func (p *EmailProcessor) CanProcess(t JobType) bool {
	return t == JobTypeSettlementEmail
}

func (p *EmailProcessor) Process(ctx context.Context, job *Job) error {
	_ = ctx

	var payload SettlementEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal settlement email payload: %w", err)
	}
	if payload.To == "" {
		log.Warnf("[JobQueue] Settlement email job %s has no recipient, dropping", job.ID)
		return nil
	}
	if !p.sender.Enabled() {
		log.Debugf("[JobQueue] Notifications disabled, dropping email job %s", job.ID)
		return nil
	}

	return p.sender.Send(payload.To, payload.Subject, payload.Body)
}
