package validation

// ConversionRatioDTO mirrors the pricing engine's unit-conversion rule. The
// input amount is range-checked by the quantity converter at deduction time,
// not here, so that rule lives in exactly one place.
type ConversionRatioDTO struct {
	InputAmount  float64 `json:"input_amount"`
	InputUnit    string  `json:"input_unit"`
	OutputAmount float64 `json:"output_amount"`
	OutputUnit   string  `json:"output_unit"`
	Description  string  `json:"description,omitempty"`
}

// PricingTierDTO is the tier provenance attached to a cart line.
type PricingTierDTO struct {
	Label           string              `json:"label"`
	RuleName        string              `json:"rule_name"`
	Price           float64             `json:"price"`
	Quantity        float64             `json:"quantity"`
	Category        string              `json:"category,omitempty"`
	ConversionRatio *ConversionRatioDTO `json:"conversion_ratio,omitempty"`
}

// CartLineDTO is one cart row as submitted by the register UI.
type CartLineDTO struct {
	ProductID          int             `json:"product_id" validate:"required,gt=0"`
	VariationID        int             `json:"variation_id,omitempty"`
	Name               string          `json:"name" validate:"required"`
	Quantity           float64         `json:"quantity" validate:"required,gt=0"`
	Price              float64         `json:"price" validate:"gte=0"`
	OverridePrice      *float64        `json:"override_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercentage *float64        `json:"discount_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	PricingTier        *PricingTierDTO `json:"pricing_tier,omitempty"`
}

// PaymentLegDTO is one method+amount leg of a split payment.
type PaymentLegDTO struct {
	Method string  `json:"method" validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// TaxLineDTO is the tax snapshot computed by the register before checkout.
type TaxLineDTO struct {
	Label  string  `json:"label"`
	Rate   float64 `json:"rate" validate:"gte=0"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

// AddressDTO is the billing/shipping snapshot.
type AddressDTO struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty"`
}

// CheckoutRequest is the payload for POST /checkout. customer_id 0 means a
// guest sale.
type CheckoutRequest struct {
	Lines           []CartLineDTO   `json:"lines" validate:"required,min=1,dive"`
	CustomerID      int             `json:"customer_id,omitempty" validate:"gte=0"`
	LocationID      int             `json:"location_id" validate:"required,gt=0"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	AmountCollected float64         `json:"amount_collected" validate:"gte=0"`
	SplitPayments   []PaymentLegDTO `json:"split_payments,omitempty" validate:"omitempty,dive"`
	Tax             *TaxLineDTO     `json:"tax,omitempty"`
	EmployeeID      string          `json:"employee_id,omitempty"`
	Billing         *AddressDTO     `json:"billing,omitempty"`
	Shipping        *AddressDTO     `json:"shipping,omitempty"`
}
