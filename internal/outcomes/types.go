package outcomes

import "time"

// Remediation statuses for a stuck order. Workers flip OPEN -> NOTIFIED when
// the alarm fires; a successful operator resume flips to RESOLVED.
const (
	RemediationOpen     = "OPEN"
	RemediationNotified = "NOTIFIED"
	RemediationResolved = "RESOLVED"
)

// StuckOrder is the durable record of a CreatedButIncomplete outcome: an
// order that exists remotely but whose saga could not finish. It carries
// everything an operator needs to resume from the failed step, including the
// cart line snapshot the original attempt ran with.
type StuckOrder struct {
	OrderID     int       `dynamodbav:"order_id"` // PK
	FailedStep  string    `dynamodbav:"failed_step"`
	Cause       string    `dynamodbav:"cause"`
	LocationID  int       `dynamodbav:"location_id"`
	CustomerID  int       `dynamodbav:"customer_id,omitempty"`
	AttemptKey  string    `dynamodbav:"attempt_key,omitempty"`
	LinesJSON   string    `dynamodbav:"lines_json,omitempty"` // CartLine snapshot
	Remediation string    `dynamodbav:"remediation"`
	Attempts    int       `dynamodbav:"attempts,omitempty"` // operator resume attempts
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}
