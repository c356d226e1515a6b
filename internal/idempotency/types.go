package idempotency

import "time"

// Status values for checkout attempt records
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// AttemptRecord is the shape persisted per Idempotency-Key. Once a saga run
// reaches a terminal outcome the record stores it, so a duplicate "Pay"
// submission replays the stored result instead of re-running the saga. This
// is what makes a full retry impossible once an order id exists.
type AttemptRecord struct {
	AttemptKey     string    `dynamodbav:"attempt_key"` // PK
	Status         string    `dynamodbav:"status"`
	AttemptID      string    `dynamodbav:"attempt_id,omitempty"` // correlation id
	OrderID        int       `dynamodbav:"order_id,omitempty"`
	Outcome        string    `dynamodbav:"outcome,omitempty"` // terminal OutcomeStatus
	FailedStep     string    `dynamodbav:"failed_step,omitempty"`
	ResponseBody   string    `dynamodbav:"response_body,omitempty"`
	ResponseStatus int       `dynamodbav:"response_status,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}
