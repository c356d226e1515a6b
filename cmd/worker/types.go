package main

// AlertMessage is the stuck-order payload sent from the API -> SQS -> worker.
type AlertMessage struct {
	OrderID       int    `json:"order_id"`
	FailedStep    string `json:"failed_step"`
	AttemptKey    string `json:"attempt_key"`
	LocationID    int    `json:"location_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
