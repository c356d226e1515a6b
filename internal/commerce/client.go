package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/retailpoint/pos-checkout/internal/checkout"
)

// createOrderTimeout bounds the order-creation POST. Deduction and
// completion calls inherit the caller's ambient client timeout instead: the
// register UI already shows a processing state and blocks re-submission.
const createOrderTimeout = 30 * time.Second

const maxErrorBody = 512

// Client talks to the commerce backend's REST surface. It implements the
// saga's OrderService, InventoryService, PointsService and ProductDirectory
// collaborator interfaces.
type Client struct {
	baseURL       string
	token         string
	http          *http.Client
	createTimeout time.Duration
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		http:          httpClient,
		createTimeout: createOrderTimeout,
	}
}

// CreateOrder POSTs the order payload and returns the new backend order id.
// Any transport failure, non-2xx status or malformed success body is fatal
// for the whole saga: without an order id nothing downstream can run.
func (c *Client) CreateOrder(ctx context.Context, req *checkout.OrderRequest) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.createTimeout)
	defer cancel()

	status, body, err := c.do(ctx, http.MethodPost, "/orders", toWireOrder(req))
	if err != nil {
		return 0, &checkout.TransportError{Op: "create order", Err: err}
	}
	if status < 200 || status >= 300 {
		return 0, &checkout.RemoteRejectionError{Op: "create order", StatusCode: status, Body: truncate(body)}
	}

	var resp createOrderResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil || !resp.Success || resp.Data.ID <= 0 {
		return 0, &checkout.RemoteRejectionError{Op: "create order", StatusCode: status, Body: "malformed success body: " + truncate(body)}
	}
	return resp.Data.ID, nil
}

// CompleteOrder flips the order status to completed with paid/completed
// timestamps. Only called once inventory deduction fully succeeded.
func (c *Client) CompleteOrder(ctx context.Context, orderID int, paidAt, completedAt time.Time) error {
	payload := map[string]string{
		"status":         "completed",
		"date_paid":      paidAt.UTC().Format(time.RFC3339),
		"date_completed": completedAt.UTC().Format(time.RFC3339),
	}
	status, body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", orderID), payload)
	if err != nil {
		return &checkout.TransportError{Op: "complete order", Err: err}
	}
	if status < 200 || status >= 300 {
		return &checkout.RemoteRejectionError{Op: "complete order", StatusCode: status, Body: truncate(body)}
	}
	return nil
}

// AwardPoints asks the loyalty ledger to credit the order. The response is
// inspected only to report how many points landed; callers treat every error
// as non-fatal.
func (c *Client) AwardPoints(ctx context.Context, orderID, customerID int) (int, error) {
	payload := map[string]int{"orderId": orderID, "customerId": customerID}
	status, body, err := c.do(ctx, http.MethodPost, "/orders/award-points-native", payload)
	if err != nil {
		return 0, fmt.Errorf("award points: %w", err)
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("award points: backend returned %d: %s", status, truncate(body))
	}
	var resp awardPointsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return 0, nil // points landed; count unknown
	}
	return resp.Data.Points, nil
}

// LookupProductID searches the catalog by display name and returns the
// canonical backend id, or 0 when nothing matches.
func (c *Client) LookupProductID(ctx context.Context, name string) (int, error) {
	path := "/products?search=" + url.QueryEscape(name)
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("product lookup: %w", err)
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("product lookup: backend returned %d", status)
	}
	var resp productSearchResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return 0, fmt.Errorf("product lookup: decode: %w", err)
	}
	for _, p := range resp.Data {
		if strings.EqualFold(p.Name, name) {
			return p.ID, nil
		}
	}
	if len(resp.Data) == 1 {
		return resp.Data[0].ID, nil
	}
	return 0, nil
}

// DeductInventoryForOrder submits one deduction per cart line against the
// order's location, converting each sale quantity to stock units first. A
// conversion or call failure marks that line failed; the saga treats any
// single failed line as failing the whole step.
func (c *Client) DeductInventoryForOrder(ctx context.Context, lines []checkout.CartLine, locationID, orderID int) (checkout.InventoryDeductionResult, error) {
	result := checkout.InventoryDeductionResult{Lines: make([]checkout.LineDeduction, 0, len(lines))}
	for _, line := range lines {
		qty, err := checkout.ResolveDeductQuantity(line)
		if err != nil {
			result.Lines = append(result.Lines, checkout.LineDeduction{ProductID: line.ProductID, Error: err.Error()})
			continue
		}
		payload := map[string]interface{}{
			"product_id":  line.ProductID,
			"location_id": locationID,
			"order_id":    orderID,
			"quantity":    qty,
		}
		if line.VariationID > 0 {
			payload["variation_id"] = line.VariationID
		}
		status, body, err := c.do(ctx, http.MethodPost, "/inventory/deduct", payload)
		if err != nil {
			result.Lines = append(result.Lines, checkout.LineDeduction{ProductID: line.ProductID, Error: err.Error()})
			continue
		}
		if status < 200 || status >= 300 {
			result.Lines = append(result.Lines, checkout.LineDeduction{ProductID: line.ProductID, Error: fmt.Sprintf("backend returned %d: %s", status, truncate(body))})
			continue
		}
		var resp inventoryDeductResponse
		if err := json.Unmarshal([]byte(body), &resp); err == nil && !resp.Success {
			result.Lines = append(result.Lines, checkout.LineDeduction{ProductID: line.ProductID, Error: resp.Error})
			continue
		}
		result.Lines = append(result.Lines, checkout.LineDeduction{ProductID: line.ProductID, Deducted: qty, OK: true})
	}
	return result, nil
}

// do issues one request and returns (status, body, err). err is non-nil only
// for transport-level failures; HTTP error statuses come back as status.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (int, string, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, "", fmt.Errorf("marshal payload: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, "", err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, string(body), nil
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
