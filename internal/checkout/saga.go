package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// paymentTolerance is the slack allowed when comparing collected payment to
// the order total. Split-payment legs are entered per-method on the register
// and accumulate float rounding; the business accepts up to 2 cents short.
const paymentTolerance = 0.02

// OrderService is the slice of the commerce backend the saga creates and
// completes orders through.
type OrderService interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (int, error)
	CompleteOrder(ctx context.Context, orderID int, paidAt, completedAt time.Time) error
}

// InventoryService deducts per-location stock for a created order. The saga
// only depends on the per-line success flags and error strings.
type InventoryService interface {
	DeductInventoryForOrder(ctx context.Context, lines []CartLine, locationID, orderID int) (InventoryDeductionResult, error)
}

// PointsService awards loyalty points for a completed order. Always
// best-effort from the saga's point of view.
type PointsService interface {
	AwardPoints(ctx context.Context, orderID, customerID int) (int, error)
}

// Coordinator executes the checkout completion saga: create order, deduct
// inventory, mark completed, award points. Steps run strictly sequentially;
// any step can fail independently and the coordinator classifies each
// failure into a single terminal OrderOutcome. It holds no per-attempt
// state, so one Coordinator serves concurrent checkout attempts.
type Coordinator struct {
	orders    OrderService
	inventory InventoryService
	points    PointsService
	resolver  *ProductResolver
	nowFunc   func() time.Time
}

func NewCoordinator(orders OrderService, inventory InventoryService, points PointsService, resolver *ProductResolver) *Coordinator {
	return &Coordinator{
		orders:    orders,
		inventory: inventory,
		points:    points,
		resolver:  resolver,
		nowFunc:   time.Now,
	}
}

// Run is the only entry point for a fresh checkout attempt. It always
// returns a terminal outcome; it never panics across collaborator errors and
// never retries a step. Cancellation is honored between steps, but once an
// order id exists a cancellation surfaces as CreatedButIncomplete, never as
// a silent abort.
func (c *Coordinator) Run(ctx context.Context, cart []CartLine, customer *Customer, payment PaymentInfo, locationID int) OrderOutcome {
	// Validating: no network effect has happened yet, so every failure in
	// this state is a plain rejection.
	if err := c.validate(ctx, cart, payment); err != nil {
		return Rejected(err)
	}

	req := c.buildOrderRequest(ctx, cart, customer, payment, locationID)

	// CreatingOrder: the one bounded call (the commerce client caps it at
	// 30s). No order id means nothing downstream can run.
	orderID, err := c.orders.CreateOrder(ctx, req)
	if err != nil {
		log.Printf("checkout %s: order creation failed: %v", req.AttemptID, err)
		return Rejected(err)
	}
	log.Printf("checkout %s: created order %d at location %d", req.AttemptID, orderID, locationID)

	// An order row now exists remotely. From here on the outcome family is
	// CreatedButIncomplete-or-better, never Rejected.
	return c.runFromInventory(ctx, cart, customer, locationID, orderID)
}

// Resume re-enters the saga of an already-created order at the step it
// stopped at. Operator-triggered only; the saga itself never retries.
func (c *Coordinator) Resume(ctx context.Context, orderID int, step FailedStep, lines []CartLine, customer *Customer, locationID int) OrderOutcome {
	switch step {
	case StepInventory:
		return c.runFromInventory(ctx, lines, customer, locationID, orderID)
	case StepCompletion:
		return c.runFromCompletion(ctx, customer, orderID)
	default:
		return CreatedButIncomplete(orderID, step, fmt.Errorf("cannot resume order %d from unknown step %q", orderID, step))
	}
}

func (c *Coordinator) validate(ctx context.Context, cart []CartLine, payment PaymentInfo) error {
	if err := ctx.Err(); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("attempt cancelled before any step ran: %v", err)}
	}
	if len(cart) == 0 {
		return &ValidationError{Reason: "cart is empty"}
	}
	total := orderTotal(cart, payment.Tax)
	collected := payment.Collected()
	if collected < total-paymentTolerance {
		return &ValidationError{Reason: fmt.Sprintf("insufficient payment: collected %.2f for order total %.2f", collected, total)}
	}
	return nil
}

// runFromInventory executes DeductingInventory and everything after it.
// orderID is already committed remotely, so every failure path here must
// carry it.
func (c *Coordinator) runFromInventory(ctx context.Context, lines []CartLine, customer *Customer, locationID, orderID int) OrderOutcome {
	if err := ctx.Err(); err != nil {
		return CreatedButIncomplete(orderID, StepInventory, &InventoryError{OrderID: orderID, Detail: fmt.Sprintf("cancelled before deduction ran: %v", err)})
	}

	result, err := c.inventory.DeductInventoryForOrder(ctx, lines, locationID, orderID)
	if err != nil {
		return CreatedButIncomplete(orderID, StepInventory, &InventoryError{OrderID: orderID, Detail: err.Error()})
	}
	if !result.AllSucceeded() {
		// Hard stop. The order stays in processing status: the backend has
		// no compensating un-deduct call, so completion must not run while
		// stock is not reliably reflected.
		return CreatedButIncomplete(orderID, StepInventory, &InventoryError{OrderID: orderID, Detail: result.FailureSummary()})
	}

	return c.runFromCompletion(ctx, customer, orderID)
}

// runFromCompletion executes Completing and AwardingPoints. Only reachable
// once inventory deduction fully succeeded.
func (c *Coordinator) runFromCompletion(ctx context.Context, customer *Customer, orderID int) OrderOutcome {
	if err := ctx.Err(); err != nil {
		return CreatedButIncomplete(orderID, StepCompletion, &CompletionError{OrderID: orderID, Err: err})
	}

	now := c.nowFunc()
	if err := c.orders.CompleteOrder(ctx, orderID, now, now); err != nil {
		return CreatedButIncomplete(orderID, StepCompletion, &CompletionError{OrderID: orderID, Err: err})
	}

	points := c.awardPoints(ctx, customer, orderID)
	return Completed(orderID, points)
}

// awardPoints is best-effort: guests skip it, and any failure is logged and
// swallowed without changing the outcome.
func (c *Coordinator) awardPoints(ctx context.Context, customer *Customer, orderID int) int {
	if customer == nil || customer.ID <= 0 {
		return 0
	}
	points, err := c.points.AwardPoints(ctx, orderID, customer.ID)
	if err != nil {
		log.Printf("points award failed for order %d customer %d (ignored): %v", orderID, customer.ID, err)
		return 0
	}
	return points
}

// buildOrderRequest assembles the immutable order payload: resolved product
// ids, built line items, and the audit tags the backend expects.
func (c *Coordinator) buildOrderRequest(ctx context.Context, cart []CartLine, customer *Customer, payment PaymentInfo, locationID int) *OrderRequest {
	items := make([]OrderLineItem, len(cart))
	for i, line := range cart {
		items[i] = BuildLineItem(line, c.resolver.Resolve(ctx, line))
	}

	req := &OrderRequest{
		PaymentMethod:    payment.Method,
		SplitPayments:    payment.Splits,
		LocationID:       locationID,
		LineItems:        items,
		Tax:              payment.Tax,
		EmployeeID:       payment.CollectedBy,
		Channel:          "pos",
		InventoryPending: true,
		AttemptID:        uuid.NewString(),
	}
	if customer != nil && customer.ID > 0 {
		req.CustomerID = customer.ID
	}
	if customer != nil {
		req.Billing = Address{FirstName: customer.FirstName, LastName: customer.LastName, Email: customer.Email}
		req.Shipping = req.Billing
	}
	return req
}

func orderTotal(cart []CartLine, tax *TaxLine) float64 {
	var total float64
	for _, line := range cart {
		total += EffectiveUnitPrice(line) * line.Quantity
	}
	if tax != nil {
		total += tax.Amount
	}
	return total
}
