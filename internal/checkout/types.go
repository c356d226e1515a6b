package checkout

import "fmt"

// Saga states. Steps execute strictly in this order; the coordinator never
// runs two steps concurrently because the backend has no transactional
// coupling between order status and stock levels.
const (
	StateValidating         = "VALIDATING"
	StateCreatingOrder      = "CREATING_ORDER"
	StateDeductingInventory = "DEDUCTING_INVENTORY"
	StateCompleting         = "COMPLETING"
	StateAwardingPoints     = "AWARDING_POINTS"
	StateDone               = "DONE"
)

// OutcomeStatus is the terminal status of a checkout attempt.
type OutcomeStatus string

const (
	OutcomeCompleted            OutcomeStatus = "COMPLETED"
	OutcomeCreatedButIncomplete OutcomeStatus = "CREATED_INCOMPLETE"
	OutcomeRejected             OutcomeStatus = "REJECTED"
)

// FailedStep identifies which step a CreatedButIncomplete outcome stopped at.
// The operator remediation differs per step, so callers must branch on it.
type FailedStep string

const (
	StepNone       FailedStep = ""
	StepInventory  FailedStep = "inventory"
	StepCompletion FailedStep = "completion"
)

// ConversionRatio maps a customer-facing sale unit to the backend's native
// stock-tracking unit (e.g. 3.5 g sold -> 1 pre-roll unit deducted).
type ConversionRatio struct {
	InputAmount  float64
	InputUnit    string
	OutputAmount float64
	OutputUnit   string
	Description  string
}

// PricingTier carries the tier metadata attached to a cart line by the
// pricing engine upstream of checkout.
type PricingTier struct {
	Label      string
	RuleName   string
	Price      float64
	Quantity   float64
	Category   string
	Conversion *ConversionRatio
}

// CartLine is an immutable snapshot of one cart row taken at saga entry.
// Effective unit price is override ?? price, reduced by the discount
// percentage when present, and is never recomputed after the saga starts.
type CartLine struct {
	ProductID          int
	VariationID        int
	Name               string
	Quantity           float64
	Price              float64
	OverridePrice      *float64
	DiscountPercentage *float64
	PricingTier        *PricingTier
}

// Customer references an existing backend customer. A nil *Customer or a
// non-positive ID means a guest sale.
type Customer struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
}

// PaymentLeg is one method+amount pair of a split payment.
type PaymentLeg struct {
	Method string
	Amount float64
}

// TaxLine is the tax snapshot computed upstream of the saga. Nil means the
// sale is tax-exempt or tax was folded into line prices.
type TaxLine struct {
	Label  string
	Rate   float64
	Amount float64
}

// PaymentInfo is the money snapshot for one checkout attempt: what was
// collected, how, by whom, and the tax owed on the order.
type PaymentInfo struct {
	Method      string
	Amount      float64
	Splits      []PaymentLeg
	CollectedBy string
	Tax         *TaxLine
}

// Collected returns the total payment collected: the sum of split legs when
// present, the single amount otherwise.
func (p PaymentInfo) Collected() float64 {
	if len(p.Splits) == 0 {
		return p.Amount
	}
	var sum float64
	for _, leg := range p.Splits {
		sum += leg.Amount
	}
	return sum
}

// LineItemMetadata preserves the pricing provenance of a line for audit.
// Optional fields stay nil when the cart line carried no such data; the
// commerce client flattens this to the backend's meta_data key/value array
// at the wire boundary.
type LineItemMetadata struct {
	ActualQuantity     float64
	ActualPrice        float64
	OriginalPrice      float64
	OverridePrice      *float64
	DiscountPercentage *float64
	Tier               *PricingTier
}

// OrderLineItem is one line of the order-creation payload.
type OrderLineItem struct {
	ProductID   int
	VariationID int
	Name        string
	Quantity    float64
	Subtotal    string
	Total       string
	Metadata    LineItemMetadata
}

// Address is the billing/shipping snapshot attached to the order.
type Address struct {
	FirstName string
	LastName  string
	Address1  string
	City      string
	State     string
	Postcode  string
	Country   string
	Email     string
	Phone     string
}

// OrderRequest is built once per attempt and immutable for the saga's
// lifetime. CustomerID 0 means guest.
type OrderRequest struct {
	CustomerID       int
	PaymentMethod    string
	SplitPayments    []PaymentLeg
	LocationID       int
	LineItems        []OrderLineItem
	Tax              *TaxLine
	Billing          Address
	Shipping         Address
	EmployeeID       string
	Channel          string
	InventoryPending bool
	AttemptID        string
}

// LineDeduction is the per-line result of the inventory deduction step.
// Deducted is expressed in backend stock units, after conversion.
type LineDeduction struct {
	ProductID int
	Deducted  float64
	OK        bool
	Error     string
}

// InventoryDeductionResult reports the deduction of every cart line. The
// step as a whole succeeds only if every line succeeded.
type InventoryDeductionResult struct {
	Lines []LineDeduction
}

// AllSucceeded reports whether every line deduction went through.
func (r InventoryDeductionResult) AllSucceeded() bool {
	for _, l := range r.Lines {
		if !l.OK {
			return false
		}
	}
	return true
}

// FailureSummary returns a human-readable list of the failed lines.
func (r InventoryDeductionResult) FailureSummary() string {
	s := ""
	for _, l := range r.Lines {
		if l.OK {
			continue
		}
		if s != "" {
			s += "; "
		}
		s += fmt.Sprintf("product %d: %s", l.ProductID, l.Error)
	}
	return s
}

// OrderOutcome is the saga's terminal result. Once OrderID is non-zero the
// status is always COMPLETED or CREATED_INCOMPLETE, never REJECTED: a remote
// order row exists and the caller must not present a rejection message.
type OrderOutcome struct {
	Status        OutcomeStatus
	OrderID       int
	PointsAwarded int
	FailedStep    FailedStep
	Cause         error
}

// Completed builds the full-success outcome. points is 0 when the points
// step was skipped or failed.
func Completed(orderID, points int) OrderOutcome {
	return OrderOutcome{Status: OutcomeCompleted, OrderID: orderID, PointsAwarded: points}
}

// CreatedButIncomplete builds the outcome for an order that exists remotely
// but whose saga could not finish.
func CreatedButIncomplete(orderID int, step FailedStep, cause error) OrderOutcome {
	return OrderOutcome{Status: OutcomeCreatedButIncomplete, OrderID: orderID, FailedStep: step, Cause: cause}
}

// Rejected builds the outcome for an attempt that produced no remote side
// effect at all.
func Rejected(cause error) OrderOutcome {
	return OrderOutcome{Status: OutcomeRejected, Cause: cause}
}
