package notify

import (
	"context"
	"fmt"

	"github.com/fieldledger/FieldLedger/internal/pkg/billing"
	"github.com/fieldledger/FieldLedger/internal/pkg/jobqueue"
)

// SettlementDispatcher implements billing.Notifier by enqueueing the rendered
// email as a background job. Enqueueing is the only work done on the webhook
// path; delivery and retries happen in the queue workers.
type SettlementDispatcher struct {
	queue   *jobqueue.Queue
	channel Channel
}

func NewSettlementDispatcher(queue *jobqueue.Queue, channel Channel) *SettlementDispatcher {
	return &SettlementDispatcher{queue: queue, channel: channel}
}

func (d *SettlementDispatcher) NotifySettlement(ctx context.Context, n billing.SettlementNotice) error {
	_ = ctx
	if !d.channel.Enabled() {
		return nil
	}

	job, err := jobqueue.NewSettlementEmailJob(jobqueue.SettlementEmailPayload{
		To:      n.OwnerEmail,
		Subject: fmt.Sprintf("Payment received for invoice %s", n.InvoiceNumber),
		Body:    renderSettlementEmail(n),
	})
	if err != nil {
		return err
	}
	return d.queue.Enqueue(job)
}

func renderSettlementEmail(n billing.SettlementNotice) string {
	greeting := "Hi"
	if n.OwnerName != "" {
		greeting = "Hi " + n.OwnerName
	}
	client := n.ClientName
	if client == "" {
		client = "A client"
	}

	statusLine := "The invoice is now partially paid."
	if n.Status == "paid" {
		statusLine = "The invoice is now fully paid."
	}

	return fmt.Sprintf(
		"<p>%s,</p>"+
			"<p>%s paid <strong>%s</strong> towards invoice <strong>%s</strong>.</p>"+
			"<p>%s</p>",
		greeting, client, n.Amount.StringFixed(2), n.InvoiceNumber, statusLine,
	)
}
