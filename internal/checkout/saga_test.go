package checkout

import (
	"context"
	"errors"
	"testing"
)

func TestRun_EmptyCart_RejectedWithoutNetworkCalls(t *testing.T) {
	orders := &fakeOrderService{createID: 42}
	inventory := &fakeInventoryService{}
	points := &fakePointsService{}
	c := newTestCoordinator(orders, inventory, points)

	outcome := c.Run(context.Background(), nil, nil, cashPayment(10), 1)

	if outcome.Status != OutcomeRejected {
		t.Fatalf("expected REJECTED, got %s", outcome.Status)
	}
	if outcome.OrderID != 0 {
		t.Fatalf("rejected outcome must not carry an order id, got %d", outcome.OrderID)
	}
	var ve *ValidationError
	if !errors.As(outcome.Cause, &ve) {
		t.Fatalf("expected ValidationError cause, got %T", outcome.Cause)
	}
	if orders.createCalls+inventory.calls+orders.completeCalls+points.calls != 0 {
		t.Fatal("expected zero collaborator calls for an empty cart")
	}
}

func TestRun_InsufficientPayment_Rejected(t *testing.T) {
	orders := &fakeOrderService{createID: 42}
	c := newTestCoordinator(orders, &fakeInventoryService{}, &fakePointsService{})

	cart := []CartLine{simpleLine(1, 10.00, 2)} // total 20.00
	outcome := c.Run(context.Background(), cart, nil, cashPayment(19.97), 1)

	if outcome.Status != OutcomeRejected {
		t.Fatalf("expected REJECTED, got %s", outcome.Status)
	}
	if orders.createCalls != 0 {
		t.Fatalf("expected no order creation, got %d calls", orders.createCalls)
	}
}

func TestRun_PaymentWithinTolerance_Proceeds(t *testing.T) {
	orders := &fakeOrderService{createID: 42}
	c := newTestCoordinator(orders, &fakeInventoryService{}, &fakePointsService{})

	cart := []CartLine{simpleLine(1, 10.00, 2)} // total 20.00
	// 2 cents short is accepted
	outcome := c.Run(context.Background(), cart, nil, cashPayment(19.98), 1)

	if outcome.Status != OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s (cause: %v)", outcome.Status, outcome.Cause)
	}
	if orders.createCalls != 1 {
		t.Fatalf("expected 1 create call, got %d", orders.createCalls)
	}
}

func TestRun_SplitPayments_SummedForValidation(t *testing.T) {
	orders := &fakeOrderService{createID: 7}
	c := newTestCoordinator(orders, &fakeInventoryService{}, &fakePointsService{})

	cart := []CartLine{simpleLine(1, 30.00, 1)}
	payment := PaymentInfo{Splits: []PaymentLeg{
		{Method: "cash", Amount: 10.00},
		{Method: "debit", Amount: 20.00},
	}}

	outcome := c.Run(context.Background(), cart, nil, payment, 1)
	if outcome.Status != OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s (cause: %v)", outcome.Status, outcome.Cause)
	}

	short := PaymentInfo{Splits: []PaymentLeg{{Method: "cash", Amount: 29.00}}}
	outcome = c.Run(context.Background(), cart, nil, short, 1)
	if outcome.Status != OutcomeRejected {
		t.Fatalf("expected REJECTED for short split payment, got %s", outcome.Status)
	}
}

func TestRun_DiscountedLine_PassesValidationAtExactTotal(t *testing.T) {
	// price 10.00, qty 2, 10% discount -> total 18.00; cash 18.00 collected
	orders := &fakeOrderService{createID: 42}
	c := newTestCoordinator(orders, &fakeInventoryService{}, &fakePointsService{})

	line := simpleLine(1, 10.00, 2)
	line.DiscountPercentage = floatPtr(10)
	outcome := c.Run(context.Background(), []CartLine{line}, nil, cashPayment(18.00), 1)

	if outcome.Status != OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s (cause: %v)", outcome.Status, outcome.Cause)
	}
	if orders.createCalls != 1 {
		t.Fatalf("expected order creation to be attempted, got %d calls", orders.createCalls)
	}
}

func TestRun_TaxIncludedInOrderTotal(t *testing.T) {
	orders := &fakeOrderService{createID: 42}
	c := newTestCoordinator(orders, &fakeInventoryService{}, &fakePointsService{})

	cart := []CartLine{simpleLine(1, 10.00, 1)}
	payment := cashPayment(10.00)
	payment.Tax = &TaxLine{Label: "state", Rate: 8.0, Amount: 0.80}

	outcome := c.Run(context.Background(), cart, nil, payment, 1)
	if outcome.Status != OutcomeRejected {
		t.Fatalf("expected REJECTED when tax pushes total past payment, got %s", outcome.Status)
	}

	payment.Amount = 10.80
	outcome = c.Run(context.Background(), cart, nil, payment, 1)
	if outcome.Status != OutcomeCompleted {
		t.Fatalf("expected COMPLETED with tax covered, got %s (cause: %v)", outcome.Status, outcome.Cause)
	}
}

func TestRun_CreateOrderFails_RejectedAndNothingDownstreamRuns(t *testing.T) {
	orders := &fakeOrderService{createErr: &RemoteRejectionError{Op: "create order", StatusCode: 500, Body: "backend down"}}
	inventory := &fakeInventoryService{}
	c := newTestCoordinator(orders, inventory, &fakePointsService{})

	outcome := c.Run(context.Background(), []CartLine{simpleLine(1, 5, 1)}, nil, cashPayment(5), 1)

	if outcome.Status != OutcomeRejected {
		t.Fatalf("expected REJECTED, got %s", outcome.Status)
	}
	if inventory.calls != 0 || orders.completeCalls != 0 {
		t.Fatal("no downstream step may run when order creation fails")
	}
}

func TestRun_InventoryFailure_CreatedButIncompleteAndCompletionNeverInvoked(t *testing.T) {
	orders := &fakeOrderService{createID: 314}
	inventory := &fakeInventoryService{result: InventoryDeductionResult{Lines: []LineDeduction{
		{ProductID: 1, Deducted: 1, OK: true},
		{ProductID: 2, Error: "insufficient stock at location"},
	}}}
	points := &fakePointsService{}
	c := newTestCoordinator(orders, inventory, points)

	cart := []CartLine{simpleLine(1, 5, 1), simpleLine(2, 5, 1)}
	outcome := c.Run(context.Background(), cart, &Customer{ID: 9}, cashPayment(10), 4)

	if outcome.Status != OutcomeCreatedButIncomplete {
		t.Fatalf("expected CREATED_INCOMPLETE, got %s", outcome.Status)
	}
	if outcome.OrderID != 314 {
		t.Fatalf("outcome must carry the order id, got %d", outcome.OrderID)
	}
	if outcome.FailedStep != StepInventory {
		t.Fatalf("expected failed step %q, got %q", StepInventory, outcome.FailedStep)
	}
	if orders.completeCalls != 0 {
		t.Fatalf("completion must never run after a failed deduction, got %d calls", orders.completeCalls)
	}
	if points.calls != 0 {
		t.Fatal("points must never be awarded for an incomplete order")
	}
	var ie *InventoryError
	if !errors.As(outcome.Cause, &ie) || ie.OrderID != 314 {
		t.Fatalf("expected InventoryError carrying the order id, got %v", outcome.Cause)
	}
}

func TestRun_InventoryTransportError_CreatedButIncomplete(t *testing.T) {
	orders := &fakeOrderService{createID: 314}
	inventory := &fakeInventoryService{err: errBoom}
	c := newTestCoordinator(orders, inventory, &fakePointsService{})

	outcome := c.Run(context.Background(), []CartLine{simpleLine(1, 5, 1)}, nil, cashPayment(5), 1)

	if outcome.Status != OutcomeCreatedButIncomplete || outcome.FailedStep != StepInventory {
		t.Fatalf("expected CREATED_INCOMPLETE at inventory, got %s/%s", outcome.Status, outcome.FailedStep)
	}
}

func TestRun_CompletionFailure_CreatedButIncompleteAtCompletion(t *testing.T) {
	orders := &fakeOrderService{createID: 99, completeErr: errBoom}
	c := newTestCoordinator(orders, &fakeInventoryService{}, &fakePointsService{})

	outcome := c.Run(context.Background(), []CartLine{simpleLine(1, 5, 1)}, nil, cashPayment(5), 1)

	if outcome.Status != OutcomeCreatedButIncomplete {
		t.Fatalf("expected CREATED_INCOMPLETE, got %s", outcome.Status)
	}
	if outcome.FailedStep != StepCompletion {
		t.Fatalf("expected failed step %q, got %q", StepCompletion, outcome.FailedStep)
	}
	if outcome.OrderID != 99 {
		t.Fatalf("outcome must carry the order id, got %d", outcome.OrderID)
	}
	var ce *CompletionError
	if !errors.As(outcome.Cause, &ce) || ce.OrderID != 99 {
		t.Fatalf("expected CompletionError carrying the order id, got %v", outcome.Cause)
	}
}

func TestRun_GuestCustomer_SkipsPoints(t *testing.T) {
	for _, customer := range []*Customer{nil, {ID: 0}, {ID: -3}} {
		orders := &fakeOrderService{createID: 50}
		points := &fakePointsService{points: 10}
		c := newTestCoordinator(orders, &fakeInventoryService{}, points)

		outcome := c.Run(context.Background(), []CartLine{simpleLine(1, 5, 1)}, customer, cashPayment(5), 1)

		if outcome.Status != OutcomeCompleted {
			t.Fatalf("expected COMPLETED, got %s (cause: %v)", outcome.Status, outcome.Cause)
		}
		if points.calls != 0 {
			t.Fatalf("points collaborator must not be called for guest %+v", customer)
		}
		if outcome.PointsAwarded != 0 {
			t.Fatalf("expected 0 points awarded, got %d", outcome.PointsAwarded)
		}
	}
}

func TestRun_ExistingCustomer_PointsAwarded(t *testing.T) {
	orders := &fakeOrderService{createID: 50}
	points := &fakePointsService{points: 25}
	c := newTestCoordinator(orders, &fakeInventoryService{}, points)

	outcome := c.Run(context.Background(), []CartLine{simpleLine(1, 5, 1)}, &Customer{ID: 7}, cashPayment(5), 1)

	if outcome.Status != OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s", outcome.Status)
	}
	if points.calls != 1 {
		t.Fatalf("expected 1 points call, got %d", points.calls)
	}
	if outcome.PointsAwarded != 25 {
		t.Fatalf("expected 25 points, got %d", outcome.PointsAwarded)
	}
}

func TestRun_PointsFailure_DoesNotChangeOutcome(t *testing.T) {
	orders := &fakeOrderService{createID: 50}
	points := &fakePointsService{err: errBoom}
	c := newTestCoordinator(orders, &fakeInventoryService{}, points)

	outcome := c.Run(context.Background(), []CartLine{simpleLine(1, 5, 1)}, &Customer{ID: 7}, cashPayment(5), 1)

	if outcome.Status != OutcomeCompleted {
		t.Fatalf("points failure must not change the outcome, got %s", outcome.Status)
	}
	if outcome.PointsAwarded != 0 {
		t.Fatalf("expected 0 points after award failure, got %d", outcome.PointsAwarded)
	}
}

func TestRun_CancelledBeforeAnyStep_Rejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orders := &fakeOrderService{createID: 1}
	c := newTestCoordinator(orders, &fakeInventoryService{}, &fakePointsService{})

	outcome := c.Run(ctx, []CartLine{simpleLine(1, 5, 1)}, nil, cashPayment(5), 1)
	if outcome.Status != OutcomeRejected {
		t.Fatalf("expected REJECTED before any remote effect, got %s", outcome.Status)
	}
	if orders.createCalls != 0 {
		t.Fatal("no network call may happen after pre-step cancellation")
	}
}

func TestRun_CancelledAfterOrderCreated_SurfacesAsCreatedButIncomplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	orders := &fakeOrderService{createID: 77}
	orders.onCreate = cancel // cancellation lands while the order is being created
	inventory := &fakeInventoryService{}
	c := newTestCoordinator(orders, inventory, &fakePointsService{})

	outcome := c.Run(ctx, []CartLine{simpleLine(1, 5, 1)}, nil, cashPayment(5), 1)

	if outcome.Status != OutcomeCreatedButIncomplete {
		t.Fatalf("cancellation after order creation must not be a silent abort, got %s", outcome.Status)
	}
	if outcome.OrderID != 77 {
		t.Fatalf("outcome must carry the order id, got %d", outcome.OrderID)
	}
	if outcome.FailedStep != StepInventory {
		t.Fatalf("expected inventory as the step that did not run, got %q", outcome.FailedStep)
	}
	if inventory.calls != 0 {
		t.Fatal("deduction must not run on a cancelled context")
	}
}

func TestRun_OrderRequestCarriesAuditTags(t *testing.T) {
	orders := &fakeOrderService{createID: 5}
	c := newTestCoordinator(orders, &fakeInventoryService{}, &fakePointsService{})

	payment := cashPayment(5)
	payment.CollectedBy = "emp-17"
	customer := &Customer{ID: 3, FirstName: "Ada", LastName: "L", Email: "ada@example.com"}

	outcome := c.Run(context.Background(), []CartLine{simpleLine(1, 5, 1)}, customer, payment, 12)
	if outcome.Status != OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s", outcome.Status)
	}

	req := orders.lastRequest
	if req == nil {
		t.Fatal("no order request captured")
	}
	if req.CustomerID != 3 || req.LocationID != 12 || req.EmployeeID != "emp-17" {
		t.Fatalf("request fields wrong: %+v", req)
	}
	if req.Channel != "pos" || !req.InventoryPending {
		t.Fatalf("audit tags missing: channel=%q inventoryPending=%v", req.Channel, req.InventoryPending)
	}
	if req.AttemptID == "" {
		t.Fatal("attempt id must be set")
	}
	if req.Billing.FirstName != "Ada" || req.Billing.Email != "ada@example.com" {
		t.Fatalf("billing snapshot missing: %+v", req.Billing)
	}
}

func TestResume_FromCompletion_RetriesOnlyCompletion(t *testing.T) {
	orders := &fakeOrderService{}
	inventory := &fakeInventoryService{}
	points := &fakePointsService{points: 5}
	c := newTestCoordinator(orders, inventory, points)

	outcome := c.Resume(context.Background(), 88, StepCompletion, nil, &Customer{ID: 2}, 1)

	if outcome.Status != OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s (cause: %v)", outcome.Status, outcome.Cause)
	}
	if inventory.calls != 0 {
		t.Fatal("resume from completion must not re-run inventory")
	}
	if orders.completeCalls != 1 {
		t.Fatalf("expected 1 completion call, got %d", orders.completeCalls)
	}
	if outcome.PointsAwarded != 5 {
		t.Fatalf("expected points on resumed completion, got %d", outcome.PointsAwarded)
	}
}

func TestResume_FromInventory_RunsDeductionThenCompletion(t *testing.T) {
	orders := &fakeOrderService{}
	inventory := &fakeInventoryService{}
	c := newTestCoordinator(orders, inventory, &fakePointsService{})

	lines := []CartLine{simpleLine(1, 5, 2)}
	outcome := c.Resume(context.Background(), 88, StepInventory, lines, nil, 3)

	if outcome.Status != OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s (cause: %v)", outcome.Status, outcome.Cause)
	}
	if inventory.calls != 1 || inventory.lastOrderID != 88 || inventory.lastLocation != 3 {
		t.Fatalf("deduction not re-run correctly: calls=%d order=%d loc=%d", inventory.calls, inventory.lastOrderID, inventory.lastLocation)
	}
	if orders.completeCalls != 1 {
		t.Fatalf("expected completion after successful re-deduction, got %d calls", orders.completeCalls)
	}
}

func TestResume_FromInventory_FailureStaysIncomplete(t *testing.T) {
	orders := &fakeOrderService{}
	inventory := &fakeInventoryService{err: errBoom}
	c := newTestCoordinator(orders, inventory, &fakePointsService{})

	outcome := c.Resume(context.Background(), 88, StepInventory, []CartLine{simpleLine(1, 5, 1)}, nil, 3)

	if outcome.Status != OutcomeCreatedButIncomplete || outcome.FailedStep != StepInventory {
		t.Fatalf("expected CREATED_INCOMPLETE at inventory, got %s/%s", outcome.Status, outcome.FailedStep)
	}
	if orders.completeCalls != 0 {
		t.Fatal("completion must not run when re-deduction fails")
	}
}
