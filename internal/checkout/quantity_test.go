package checkout

import (
	"math"
	"testing"
)

func lineWithRatio(quantity, inputAmount, outputAmount float64) CartLine {
	return CartLine{
		ProductID: 1,
		Name:      "pre-roll blueprint",
		Quantity:  quantity,
		Price:     20.00,
		PricingTier: &PricingTier{
			Label: "eighth",
			Conversion: &ConversionRatio{
				InputAmount:  inputAmount,
				InputUnit:    "g",
				OutputAmount: outputAmount,
				OutputUnit:   "unit",
			},
		},
	}
}

func TestResolveDeductQuantity_IdentityWithoutRatio(t *testing.T) {
	line := simpleLine(1, 10, 3.5)
	got, err := ResolveDeductQuantity(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3.5 {
		t.Fatalf("expected identity deduction 3.5, got %v", got)
	}

	// a tier without a conversion ratio is also identity
	line.PricingTier = &PricingTier{Label: "bulk"}
	got, err = ResolveDeductQuantity(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3.5 {
		t.Fatalf("expected identity deduction 3.5, got %v", got)
	}
}

func TestResolveDeductQuantity_ConvertsSaleUnitsToStockUnits(t *testing.T) {
	// 3.5 g sold with a 3.5g -> 1 unit ratio deducts exactly 1 unit
	got, err := ResolveDeductQuantity(lineWithRatio(3.5, 3.5, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.0 {
		t.Fatalf("expected 1.0 unit deducted, got %v", got)
	}
}

func TestResolveDeductQuantity_Linear(t *testing.T) {
	base, err := ResolveDeductQuantity(lineWithRatio(7, 3.5, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doubled, err := ResolveDeductQuantity(lineWithRatio(14, 3.5, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(doubled-2*base) > 1e-9 {
		t.Fatalf("doubling quantity must double deduction: base=%v doubled=%v", base, doubled)
	}
}

func TestResolveDeductQuantity_RejectsNonPositiveInputAmount(t *testing.T) {
	for _, input := range []float64{0, -1} {
		if _, err := ResolveDeductQuantity(lineWithRatio(3.5, input, 1)); err == nil {
			t.Fatalf("expected error for input amount %v", input)
		}
	}
}
