package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// StuckOrderAlert is the message published to the ops queue when a checkout
// attempt ends CreatedButIncomplete. The worker turns these into alarms.
type StuckOrderAlert struct {
	OrderID       int    `json:"order_id"`
	FailedStep    string `json:"failed_step"`
	AttemptKey    string `json:"attempt_key"`
	LocationID    int    `json:"location_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// AlertPublisher wraps an SQS client and the ops alert queue URL.
type AlertPublisher struct {
	SQS      SQSAPI
	QueueURL string
}

func NewAlertPublisher(sqsClient SQSAPI, queueURL string) *AlertPublisher {
	return &AlertPublisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// PublishStuckOrder sends one alert. Callers treat failures as best-effort:
// the saga outcome is already decided by the time this runs.
func (p *AlertPublisher) PublishStuckOrder(ctx context.Context, alert StuckOrderAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	messageBody := string(body)

	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"order_id":    stringAttr(strconv.Itoa(alert.OrderID)),
			"failed_step": stringAttr(alert.FailedStep),
		},
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func stringAttr(v string) sqstypes.MessageAttributeValue {
	return sqstypes.MessageAttributeValue{
		DataType:    awsString("String"),
		StringValue: &v,
	}
}

// awsString helper
func awsString(s string) *string { return &s }
