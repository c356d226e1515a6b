package checkout

import (
	"context"
	"errors"
	"time"
)

// --- collaborator fakes with call counters ---

type fakeOrderService struct {
	createCalls   int
	completeCalls int

	createID  int
	createErr error

	completeErr error

	lastRequest *OrderRequest

	// optional hook run inside CreateOrder, used to cancel contexts mid-saga
	onCreate func()
}

func (f *fakeOrderService) CreateOrder(ctx context.Context, req *OrderRequest) (int, error) {
	f.createCalls++
	f.lastRequest = req
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return 0, f.createErr
	}
	return f.createID, nil
}

func (f *fakeOrderService) CompleteOrder(ctx context.Context, orderID int, paidAt, completedAt time.Time) error {
	f.completeCalls++
	return f.completeErr
}

type fakeInventoryService struct {
	calls  int
	result InventoryDeductionResult
	err    error

	lastLines    []CartLine
	lastLocation int
	lastOrderID  int
}

func (f *fakeInventoryService) DeductInventoryForOrder(ctx context.Context, lines []CartLine, locationID, orderID int) (InventoryDeductionResult, error) {
	f.calls++
	f.lastLines = lines
	f.lastLocation = locationID
	f.lastOrderID = orderID
	if f.err != nil {
		return InventoryDeductionResult{}, f.err
	}
	if f.result.Lines == nil {
		lds := make([]LineDeduction, len(lines))
		for i, l := range lines {
			qty, _ := ResolveDeductQuantity(l)
			lds[i] = LineDeduction{ProductID: l.ProductID, Deducted: qty, OK: true}
		}
		return InventoryDeductionResult{Lines: lds}, nil
	}
	return f.result, nil
}

type fakePointsService struct {
	calls  int
	points int
	err    error
}

func (f *fakePointsService) AwardPoints(ctx context.Context, orderID, customerID int) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.points, nil
}

type fakeDirectory struct {
	calls int
	ids   map[string]int
	err   error
}

func (f *fakeDirectory) LookupProductID(ctx context.Context, name string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.ids[name], nil
}

// --- helpers ---

func newTestCoordinator(orders *fakeOrderService, inventory *fakeInventoryService, points *fakePointsService) *Coordinator {
	c := NewCoordinator(orders, inventory, points, NewProductResolver(nil))
	c.nowFunc = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }
	return c
}

func cashPayment(amount float64) PaymentInfo {
	return PaymentInfo{Method: "cash", Amount: amount}
}

func simpleLine(productID int, price, quantity float64) CartLine {
	return CartLine{ProductID: productID, Name: "item", Quantity: quantity, Price: price}
}

var errBoom = errors.New("boom")

func floatPtr(v float64) *float64 { return &v }
