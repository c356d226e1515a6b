package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/retailpoint/pos-checkout/internal/aws"
	"github.com/retailpoint/pos-checkout/internal/checkout"
	"github.com/retailpoint/pos-checkout/internal/idempotency"
	"github.com/retailpoint/pos-checkout/internal/outcomes"
	"github.com/retailpoint/pos-checkout/internal/validation"
)

// HandlerConfig groups dependencies for the checkout routes. Alerts and
// Metrics may be nil; both are best-effort observers.
type HandlerConfig struct {
	Saga        *checkout.Coordinator
	Attempts    *idempotency.Store
	StuckOrders *outcomes.Store
	Alerts      *aws.AlertPublisher
	Metrics     *aws.MetricsEmitter
}

// RegisterCheckoutRoutes registers the checkout and operator remediation
// routes.
func RegisterCheckoutRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/checkout", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
			return
		}

		attemptID := uuid.NewString()
		created, err := cfg.Attempts.CreateIfNotExists(ctx, idempKey, attemptID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
			return
		}
		if !created {
			replayAttempt(c, cfg, idempKey)
			return
		}

		// A panic past this point would strand the claim as IN_PROGRESS until
		// the TTL expires, turning every retry into a 409. Mark the attempt
		// failed so the client can retry with the same key, then let the
		// recovery middleware answer.
		defer func() {
			if r := recover(); r != nil {
				_ = cfg.Attempts.MarkFailed(ctx, idempKey, fmt.Sprintf("panic: %v", r))
				panic(r)
			}
		}()

		cart, customer, payment := toDomain(&req)
		outcome := cfg.Saga.Run(ctx, cart, customer, payment, req.LocationID)

		emitOutcome(ctx, cfg, outcome)
		if outcome.Status == checkout.OutcomeCreatedButIncomplete {
			recordStuckOrder(ctx, cfg, outcome, cart, req, idempKey, attemptID)
		}

		status, body := outcomeResponse(outcome)
		raw, _ := json.Marshal(body)
		if err := cfg.Attempts.MarkDone(ctx, idempKey, outcome.OrderID, string(outcome.Status), string(outcome.FailedStep), string(raw), status); err != nil {
			log.Printf("failed to store attempt outcome for key %s: %v", idempKey, err)
		}

		c.JSON(status, body)
	})

	r.GET("/stuck-orders/:id", func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
			return
		}
		rec, err := cfg.StuckOrders.Get(c.Request.Context(), orderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "detail": err.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order_id":    rec.OrderID,
			"failed_step": rec.FailedStep,
			"cause":       rec.Cause,
			"remediation": rec.Remediation,
			"attempts":    rec.Attempts,
			"location_id": rec.LocationID,
			"customer_id": rec.CustomerID,
		})
	})

	r.POST("/stuck-orders/:id/resume", func(c *gin.Context) {
		ctx := c.Request.Context()
		orderID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
			return
		}
		rec, err := cfg.StuckOrders.Get(ctx, orderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "detail": err.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if rec.Remediation == outcomes.RemediationResolved {
			c.JSON(http.StatusConflict, gin.H{"error": "already_resolved", "order_id": orderID})
			return
		}

		var lines []checkout.CartLine
		if rec.LinesJSON != "" {
			if err := json.Unmarshal([]byte(rec.LinesJSON), &lines); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "corrupt_line_snapshot", "detail": err.Error()})
				return
			}
		}
		var customer *checkout.Customer
		if rec.CustomerID > 0 {
			customer = &checkout.Customer{ID: rec.CustomerID}
		}

		if err := cfg.StuckOrders.IncrementAttempts(ctx, orderID); err != nil {
			log.Printf("failed to count resume attempt for order %d: %v", orderID, err)
		}

		outcome := cfg.Saga.Resume(ctx, orderID, checkout.FailedStep(rec.FailedStep), lines, customer, rec.LocationID)
		if outcome.Status == checkout.OutcomeCompleted {
			if err := cfg.StuckOrders.UpdateRemediation(ctx, orderID, rec.Remediation, outcomes.RemediationResolved); err != nil {
				log.Printf("failed to mark order %d resolved: %v", orderID, err)
			}
		}

		status, body := outcomeResponse(outcome)
		c.JSON(status, body)
	})
}

// replayAttempt serves a duplicate submission from the stored record instead
// of re-running the saga: a full "Pay" must never run twice for one key.
func replayAttempt(c *gin.Context, cfg HandlerConfig, idempKey string) {
	rec, err := cfg.Attempts.Get(c.Request.Context(), idempKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attempt_record_missing"})
		return
	}
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": rec.Outcome, "order_id": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusConflict, gin.H{"error": "checkout_in_progress"})
	case idempotency.StatusFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "previous_attempt_failed", "note": rec.Note})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_attempt_status"})
	}
}

// outcomeResponse maps a terminal outcome to the HTTP shape the register UI
// branches on. The two CreatedButIncomplete steps get distinct operator
// messages because the remediation differs.
func outcomeResponse(o checkout.OrderOutcome) (int, gin.H) {
	switch o.Status {
	case checkout.OutcomeCompleted:
		return http.StatusCreated, gin.H{
			"status":         string(o.Status),
			"order_id":       o.OrderID,
			"points_awarded": o.PointsAwarded,
		}
	case checkout.OutcomeCreatedButIncomplete:
		return http.StatusBadGateway, gin.H{
			"status":           string(o.Status),
			"order_id":         o.OrderID,
			"failed_step":      string(o.FailedStep),
			"error":            o.Cause.Error(),
			"operator_message": operatorMessage(o),
		}
	default:
		return http.StatusUnprocessableEntity, gin.H{
			"status": string(o.Status),
			"error":  o.Cause.Error(),
		}
	}
}

func operatorMessage(o checkout.OrderOutcome) string {
	switch o.FailedStep {
	case checkout.StepInventory:
		return fmt.Sprintf("Order %d was created but inventory was NOT deducted. Re-run inventory deduction before completing the order. Do not charge the customer again.", o.OrderID)
	case checkout.StepCompletion:
		return fmt.Sprintf("Order %d was created AND inventory was deducted, but the order was not marked completed. Retry completion only; do not re-run inventory or charge again.", o.OrderID)
	default:
		return fmt.Sprintf("Order %d is in an incomplete state; inspect before retrying anything.", o.OrderID)
	}
}

func emitOutcome(ctx context.Context, cfg HandlerConfig, o checkout.OrderOutcome) {
	if cfg.Metrics == nil {
		return
	}
	if err := cfg.Metrics.EmitOutcome(ctx, string(o.Status), string(o.FailedStep)); err != nil {
		log.Printf("outcome metric emission failed (ignored): %v", err)
	}
}

// recordStuckOrder persists the CreatedButIncomplete outcome for the
// operator work queue and raises the ops alert. Both are best-effort: the
// outcome returned to the UI is already decided.
func recordStuckOrder(ctx context.Context, cfg HandlerConfig, o checkout.OrderOutcome, cart []checkout.CartLine, req validation.CheckoutRequest, idempKey, attemptID string) {
	linesJSON, err := json.Marshal(cart)
	if err != nil {
		log.Printf("failed to snapshot cart lines for order %d: %v", o.OrderID, err)
		linesJSON = nil
	}
	if cfg.StuckOrders != nil {
		rec := outcomes.StuckOrder{
			OrderID:    o.OrderID,
			FailedStep: string(o.FailedStep),
			Cause:      o.Cause.Error(),
			LocationID: req.LocationID,
			CustomerID: req.CustomerID,
			AttemptKey: idempKey,
			LinesJSON:  string(linesJSON),
		}
		if err := cfg.StuckOrders.Record(ctx, rec); err != nil {
			log.Printf("failed to record stuck order %d: %v", o.OrderID, err)
		}
	}
	if cfg.Alerts != nil {
		alert := aws.StuckOrderAlert{
			OrderID:       o.OrderID,
			FailedStep:    string(o.FailedStep),
			AttemptKey:    idempKey,
			LocationID:    req.LocationID,
			CorrelationID: attemptID,
		}
		if err := cfg.Alerts.PublishStuckOrder(ctx, alert); err != nil {
			log.Printf("failed to publish stuck-order alert for order %d: %v", o.OrderID, err)
		}
	}
}

// toDomain converts the validated request DTO into the saga's input types.
func toDomain(req *validation.CheckoutRequest) ([]checkout.CartLine, *checkout.Customer, checkout.PaymentInfo) {
	cart := make([]checkout.CartLine, len(req.Lines))
	for i, l := range req.Lines {
		cart[i] = checkout.CartLine{
			ProductID:          l.ProductID,
			VariationID:        l.VariationID,
			Name:               l.Name,
			Quantity:           l.Quantity,
			Price:              l.Price,
			OverridePrice:      l.OverridePrice,
			DiscountPercentage: l.DiscountPercentage,
			PricingTier:        toDomainTier(l.PricingTier),
		}
	}

	var customer *checkout.Customer
	if req.CustomerID > 0 {
		customer = &checkout.Customer{ID: req.CustomerID}
		if req.Billing != nil {
			customer.FirstName = req.Billing.FirstName
			customer.LastName = req.Billing.LastName
			customer.Email = req.Billing.Email
		}
	}

	payment := checkout.PaymentInfo{
		Method:      req.PaymentMethod,
		Amount:      req.AmountCollected,
		CollectedBy: req.EmployeeID,
	}
	for _, leg := range req.SplitPayments {
		payment.Splits = append(payment.Splits, checkout.PaymentLeg{Method: leg.Method, Amount: leg.Amount})
	}
	if req.Tax != nil {
		payment.Tax = &checkout.TaxLine{Label: req.Tax.Label, Rate: req.Tax.Rate, Amount: req.Tax.Amount}
	}

	return cart, customer, payment
}

func toDomainTier(t *validation.PricingTierDTO) *checkout.PricingTier {
	if t == nil {
		return nil
	}
	tier := &checkout.PricingTier{
		Label:    t.Label,
		RuleName: t.RuleName,
		Price:    t.Price,
		Quantity: t.Quantity,
		Category: t.Category,
	}
	if cr := t.ConversionRatio; cr != nil {
		tier.Conversion = &checkout.ConversionRatio{
			InputAmount:  cr.InputAmount,
			InputUnit:    cr.InputUnit,
			OutputAmount: cr.OutputAmount,
			OutputUnit:   cr.OutputUnit,
			Description:  cr.Description,
		}
	}
	return tier
}
