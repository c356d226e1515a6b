package commerce

import (
	"fmt"
	"strconv"

	"github.com/retailpoint/pos-checkout/internal/checkout"
)

// The backend speaks a meta_data key/value dialect; everything typed in the
// checkout package is flattened to these wire shapes here and nowhere else.

type wireMetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wireSplitPayment struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
}

type wireTaxLine struct {
	Label    string `json:"label"`
	RatePct  string `json:"rate_percent"`
	TaxTotal string `json:"tax_total"`
}

type wireAddress struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type wireLineItem struct {
	ProductID   int            `json:"product_id"`
	VariationID int            `json:"variation_id,omitempty"`
	Name        string         `json:"name"`
	Quantity    float64        `json:"quantity"`
	Subtotal    string         `json:"subtotal"`
	Total       string         `json:"total"`
	MetaData    []wireMetaData `json:"meta_data"`
}

type wireOrder struct {
	CustomerID    int                `json:"customer_id,omitempty"`
	Status        string             `json:"status"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	SplitPayments []wireSplitPayment `json:"split_payments,omitempty"`
	LocationID    int                `json:"location_id"`
	LineItems     []wireLineItem     `json:"line_items"`
	TaxLines      []wireTaxLine      `json:"tax_lines,omitempty"`
	Billing       wireAddress        `json:"billing"`
	Shipping      wireAddress        `json:"shipping"`
	MetaData      []wireMetaData     `json:"meta_data"`
}

type createOrderResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ID int `json:"id"`
	} `json:"data"`
}

type awardPointsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Points int `json:"points"`
	} `json:"data"`
}

type productSearchResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

type inventoryDeductResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func toWireOrder(req *checkout.OrderRequest) wireOrder {
	w := wireOrder{
		CustomerID:    req.CustomerID,
		Status:        "processing",
		PaymentMethod: req.PaymentMethod,
		LocationID:    req.LocationID,
		Billing:       toWireAddress(req.Billing),
		Shipping:      toWireAddress(req.Shipping),
	}
	for _, leg := range req.SplitPayments {
		w.SplitPayments = append(w.SplitPayments, wireSplitPayment{Method: leg.Method, Amount: money(leg.Amount)})
	}
	for _, item := range req.LineItems {
		w.LineItems = append(w.LineItems, toWireLineItem(item))
	}
	if req.Tax != nil {
		w.TaxLines = append(w.TaxLines, wireTaxLine{
			Label:    req.Tax.Label,
			RatePct:  num(req.Tax.Rate),
			TaxTotal: money(req.Tax.Amount),
		})
	}
	w.MetaData = []wireMetaData{
		{Key: "pos_attempt_id", Value: req.AttemptID},
		{Key: "creation_channel", Value: req.Channel},
	}
	if req.EmployeeID != "" {
		w.MetaData = append(w.MetaData, wireMetaData{Key: "employee_id", Value: req.EmployeeID})
	}
	if req.InventoryPending {
		w.MetaData = append(w.MetaData, wireMetaData{Key: "inventory_processed", Value: "false"})
	}
	return w
}

func toWireAddress(a checkout.Address) wireAddress {
	return wireAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address1:  a.Address1,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

func toWireLineItem(item checkout.OrderLineItem) wireLineItem {
	return wireLineItem{
		ProductID:   item.ProductID,
		VariationID: item.VariationID,
		Name:        item.Name,
		Quantity:    item.Quantity,
		Subtotal:    item.Subtotal,
		Total:       item.Total,
		MetaData:    toWireLineMeta(item.Metadata),
	}
}

// toWireLineMeta always emits actual quantity/price and original price;
// override, discount, tier and conversion provenance only when present.
func toWireLineMeta(m checkout.LineItemMetadata) []wireMetaData {
	meta := []wireMetaData{
		{Key: "actual_quantity", Value: num(m.ActualQuantity)},
		{Key: "actual_price", Value: money(m.ActualPrice)},
		{Key: "original_price", Value: money(m.OriginalPrice)},
	}
	if m.OverridePrice != nil {
		meta = append(meta, wireMetaData{Key: "override_price", Value: money(*m.OverridePrice)})
	}
	if m.DiscountPercentage != nil {
		meta = append(meta, wireMetaData{Key: "discount_percentage", Value: num(*m.DiscountPercentage)})
	}
	if t := m.Tier; t != nil {
		meta = append(meta,
			wireMetaData{Key: "pricing_tier_label", Value: t.Label},
			wireMetaData{Key: "pricing_tier_rule", Value: t.RuleName},
			wireMetaData{Key: "pricing_tier_price", Value: money(t.Price)},
			wireMetaData{Key: "pricing_tier_quantity", Value: num(t.Quantity)},
			wireMetaData{Key: "pricing_tier_category", Value: t.Category},
		)
		if cr := t.Conversion; cr != nil {
			meta = append(meta,
				wireMetaData{Key: "conversion_ratio_input_amount", Value: num(cr.InputAmount)},
				wireMetaData{Key: "conversion_ratio_input_unit", Value: cr.InputUnit},
				wireMetaData{Key: "conversion_ratio_output_amount", Value: num(cr.OutputAmount)},
				wireMetaData{Key: "conversion_ratio_output_unit", Value: cr.OutputUnit},
				wireMetaData{Key: "conversion_ratio_description", Value: cr.Description},
			)
		}
	}
	return meta
}
