package validation

import (
	"fmt"
	"math"

	validatorv10 "github.com/go-playground/validator/v10"
)

// legTolerance is the float slack allowed between the declared collected
// amount and the sum of split-payment legs, matching the saga's own
// payment tolerance.
const legTolerance = 0.02

// New returns a configured validator with struct-level validation
// registered for CheckoutRequest.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})
	return v
}

// checkoutStructValidation enforces the cross-field payment rules: a request
// must declare either a single payment method or split legs, and when legs
// are present alongside a declared collected amount they must agree within
// the tolerance.
func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)

	if req.PaymentMethod == "" && len(req.SplitPayments) == 0 {
		sl.ReportError(req.PaymentMethod, "payment_method", "PaymentMethod", "payment_required", "")
		return
	}

	if len(req.SplitPayments) > 0 && req.AmountCollected > 0 {
		var sum float64
		for _, leg := range req.SplitPayments {
			sum += leg.Amount
		}
		if math.Abs(sum-req.AmountCollected) > legTolerance {
			sl.ReportError(req.AmountCollected, "amount_collected", "AmountCollected", "split_sum_mismatch",
				fmt.Sprintf("legs sum %.2f != amount_collected %.2f", sum, req.AmountCollected))
		}
	}
}
