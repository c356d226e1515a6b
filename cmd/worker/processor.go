package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/retailpoint/pos-checkout/internal/aws"
	"github.com/retailpoint/pos-checkout/internal/outcomes"
)

// Processor turns stuck-order alerts into something a human sees: a loud log
// line with the remediation hint and a CloudWatch datum that the ops alarm
// fires on. It never touches the order itself; remediation stays manual.
type Processor struct {
	stuck   *outcomes.Store
	metrics *aws.MetricsEmitter
}

func NewProcessor(clients *aws.AWSClients, stuckTable, metricsNamespace string) *Processor {
	return &Processor{
		stuck:   outcomes.NewStore(clients.DynamoDB, stuckTable),
		metrics: aws.NewMetricsEmitter(clients.CloudWatch, metricsNamespace),
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry, then DLQ.
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg AlertMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log.Printf("[worker] received stuck order=%d step=%s corr=%s",
		msg.OrderID, msg.FailedStep, msg.CorrelationID)

	so, err := p.stuck.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch stuck order: %w", err)
	}
	if so == nil {
		// Ledger write is best-effort on the API side, so an alert can
		// arrive without a record. Alarm on the alert alone.
		log.Printf("[worker] ALERT order=%d step=%s has no ledger record; investigate manually", msg.OrderID, msg.FailedStep)
		if err := p.metrics.EmitStuckOrder(ctx, msg.FailedStep); err != nil {
			return fmt.Errorf("failed to emit stuck-order metric: %w", err)
		}
		return nil
	}

	if err := p.metrics.EmitStuckOrder(ctx, so.FailedStep); err != nil {
		return fmt.Errorf("failed to emit stuck-order metric: %w", err)
	}

	log.Printf("[worker] ALERT order=%d location=%d step=%s cause=%q — %s",
		so.OrderID, so.LocationID, so.FailedStep, so.Cause, remediationHint(so.FailedStep))

	err = p.stuck.UpdateRemediation(ctx, msg.OrderID, outcomes.RemediationOpen, outcomes.RemediationNotified)
	if errors.Is(err, outcomes.ErrRemediationMismatch) {
		// Another worker notified first, or an operator already resolved it.
		// Swallow duplicated alerts.
		log.Printf("[worker] order=%d already notified or resolved", msg.OrderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark order %d notified: %w", msg.OrderID, err)
	}

	log.Printf("[worker] notified order=%d", msg.OrderID)
	return nil
}

func remediationHint(step string) string {
	switch step {
	case "inventory":
		return "inventory was NOT deducted; re-run deduction via POST /stuck-orders/{id}/resume before the order can complete"
	case "completion":
		return "inventory was deducted; only the completion status flip is missing, resume will retry it"
	default:
		return "unknown step; inspect the order manually before resuming"
	}
}
