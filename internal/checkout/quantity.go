package checkout

import "fmt"

// ResolveDeductQuantity resolves a cart line's sale quantity into the
// backend's native stock-deduction unit. Without a conversion ratio the sale
// quantity deducts as-is; with one, the quantity is rescaled by the ratio
// (e.g. 3.5 g sold with a 3.5g->1unit ratio deducts 1 unit). Pure function.
func ResolveDeductQuantity(line CartLine) (float64, error) {
	if line.PricingTier == nil || line.PricingTier.Conversion == nil {
		return line.Quantity, nil
	}
	cr := line.PricingTier.Conversion
	if cr.InputAmount <= 0 {
		return 0, fmt.Errorf("conversion ratio for %q has non-positive input amount %v", line.Name, cr.InputAmount)
	}
	return line.Quantity / cr.InputAmount * cr.OutputAmount, nil
}
