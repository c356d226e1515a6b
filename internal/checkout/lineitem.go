package checkout

import "fmt"

// EffectiveUnitPrice applies the price override and discount percentage to a
// cart line. The result is clamped at zero and snapshotted once at saga
// entry; it is never recomputed afterwards.
func EffectiveUnitPrice(line CartLine) float64 {
	price := line.Price
	if line.OverridePrice != nil {
		price = *line.OverridePrice
	}
	if line.DiscountPercentage != nil {
		price = price * (1 - *line.DiscountPercentage/100)
	}
	if price < 0 {
		price = 0
	}
	return price
}

// BuildLineItem turns a cart line plus its resolved backend product id into
// the order-creation payload shape. Deterministic, no I/O; malformed input
// is the caller's responsibility via prior validation.
func BuildLineItem(line CartLine, productID int) OrderLineItem {
	price := EffectiveUnitPrice(line)
	total := fmt.Sprintf("%.2f", price*line.Quantity)
	return OrderLineItem{
		ProductID:   productID,
		VariationID: line.VariationID,
		Name:        line.Name,
		Quantity:    line.Quantity,
		Subtotal:    total,
		Total:       total,
		Metadata: LineItemMetadata{
			ActualQuantity:     line.Quantity,
			ActualPrice:        price,
			OriginalPrice:      line.Price,
			OverridePrice:      line.OverridePrice,
			DiscountPercentage: line.DiscountPercentage,
			Tier:               line.PricingTier,
		},
	}
}
