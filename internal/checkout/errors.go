package checkout

import "fmt"

// ValidationError means the attempt was rejected locally, before any network
// call. Maps to a REJECTED outcome.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "checkout validation failed: " + e.Reason
}

// TransportError wraps a timeout or network failure talking to the backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteRejectionError means the backend answered but refused the call or
// returned a body we could not accept.
type RemoteRejectionError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteRejectionError) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// InventoryError is fatal to the saga but not to the order's existence: the
// order row is already committed remotely. It always carries the order id so
// the caller can never lose track of the remote side effect.
type InventoryError struct {
	OrderID int
	Detail  string
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("inventory deduction failed for order %d: %s", e.OrderID, e.Detail)
}

// CompletionError means the order exists and inventory is already deducted,
// but the status flip to completed did not go through.
type CompletionError struct {
	OrderID int
	Err     error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("failed to mark order %d completed (inventory already deducted): %v", e.OrderID, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }
