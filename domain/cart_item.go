package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const CategoryBundle = "bundle"

// PricingMode selects how a cart item is billed. An item is billed monthly
// or as a one-time fee, never both, so the two modes are separate types
// instead of a flag next to two price fields.
type PricingMode interface {
	pricingMode()
}

// MonthlyBilling bills the item's price every cycle.
type MonthlyBilling struct {
	Price decimal.Decimal
}

func (MonthlyBilling) pricingMode() {}

// OneTimeFee bills the item's price once, on the first invoice only.
type OneTimeFee struct {
	Price decimal.Decimal
}

func (OneTimeFee) pricingMode() {}

// BundleProduct is one constituent of a bundle item.
type BundleProduct struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
}

// CartItem is one purchasable line produced by the recommendation builder.
// Items are immutable for the duration of a checkout.
type CartItem struct {
	ID          string
	Name        string
	Description string
	Quantity    int
	Billing     PricingMode

	// Bundle fields, set only when Category == CategoryBundle.
	Category       string
	BundleProducts []BundleProduct
	FullPrice      decimal.Decimal // pre-discount list price of the bundle

	// Promotion fields. IsFree marks the whole quantity complimentary;
	// FreeQuantity marks a subset. An item uses one rule, not both.
	IsFree       bool
	FreeQuantity int
}

func (i CartItem) IsBundle() bool {
	return i.Category == CategoryBundle
}

// cartItemWire is the flat persisted form. The pricing mode travels as a
// discriminator plus both price fields, matching what the cart builder emits.
type cartItemWire struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Quantity       int             `json:"quantity"`
	PricingType    string          `json:"pricing_type"`
	MonthlyPrice   decimal.Decimal `json:"monthly_price"`
	OnetimePrice   decimal.Decimal `json:"onetime_price"`
	Category       string          `json:"category,omitempty"`
	BundleProducts []BundleProduct `json:"bundle_products,omitempty"`
	FullPrice      decimal.Decimal `json:"full_price"`
	IsFree         bool            `json:"is_free,omitempty"`
	FreeQuantity   int             `json:"free_quantity,omitempty"`
}

const (
	pricingTypeMonthly = "monthly"
	pricingTypeOnetime = "onetime"
)

func (i CartItem) MarshalJSON() ([]byte, error) {
	w := cartItemWire{
		ID:             i.ID,
		Name:           i.Name,
		Description:    i.Description,
		Quantity:       i.Quantity,
		Category:       i.Category,
		BundleProducts: i.BundleProducts,
		FullPrice:      i.FullPrice,
		IsFree:         i.IsFree,
		FreeQuantity:   i.FreeQuantity,
	}
	switch b := i.Billing.(type) {
	case MonthlyBilling:
		w.PricingType = pricingTypeMonthly
		w.MonthlyPrice = b.Price
	case OneTimeFee:
		w.PricingType = pricingTypeOnetime
		w.OnetimePrice = b.Price
	default:
		return nil, fmt.Errorf("cart item %q has no pricing mode", i.ID)
	}
	return json.Marshal(w)
}

func (i *CartItem) UnmarshalJSON(data []byte) error {
	var w cartItemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	item := CartItem{
		ID:             w.ID,
		Name:           w.Name,
		Description:    w.Description,
		Quantity:       w.Quantity,
		Category:       w.Category,
		BundleProducts: w.BundleProducts,
		FullPrice:      w.FullPrice,
		IsFree:         w.IsFree,
		FreeQuantity:   w.FreeQuantity,
	}
	switch w.PricingType {
	case pricingTypeMonthly:
		item.Billing = MonthlyBilling{Price: w.MonthlyPrice}
	case pricingTypeOnetime:
		item.Billing = OneTimeFee{Price: w.OnetimePrice}
	default:
		return fmt.Errorf("cart item %q has unknown pricing type %q", w.ID, w.PricingType)
	}
	*i = item
	return nil
}
