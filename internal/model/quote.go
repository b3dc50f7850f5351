package model

import (
	"encoding/json"
	"time"
)

// ComponentOverrides are the per-request knobs a user may turn on a single
// component calculation. Nil means "use the stored default".
type ComponentOverrides struct {
	ThicknessMM *float64 `json:"thickness_mm_override,omitempty"`
	WasteFactor *float64 `json:"fabrication_waste_factor_override,omitempty"`
	Markup      *float64 `json:"markup_override,omitempty"`
}

// ComponentRequest asks for a single-component calculation.
type ComponentRequest struct {
	FanConfigurationID int64 `json:"fan_configuration_id"`
	ComponentID        int64 `json:"component_id"`
	BladeQuantity      int   `json:"blade_quantity"`
	ComponentOverrides
}

// ComponentEntry is one selected component inside a full-quote request.
type ComponentEntry struct {
	ComponentID int64 `json:"component_id"`
	ComponentOverrides
}

// MotorSelection is the optional motor part of a full-quote request.
type MotorSelection struct {
	MotorID                  int64     `json:"motor_id"`
	MountType                MountType `json:"mount_type"`
	SupplierDiscountOverride *float64  `json:"supplier_discount_override,omitempty"`
	MarkupOverride           *float64  `json:"motor_markup_override,omitempty"`
}

// BuyoutItem is a bought-in line item. When Subtotal is set it is
// authoritative over UnitCost*Qty so manually adjusted buy-outs survive
// recalculation.
type BuyoutItem struct {
	Description string   `json:"description"`
	UnitCost    float64  `json:"unit_cost"`
	Qty         float64  `json:"qty"`
	Subtotal    *float64 `json:"subtotal,omitempty"`
}

// Total returns the effective subtotal for the item.
func (b BuyoutItem) Total() float64 {
	if b.Subtotal != nil {
		return *b.Subtotal
	}
	return b.UnitCost * b.Qty
}

// QuoteRequest asks for a full quote calculation.
type QuoteRequest struct {
	FanConfigurationID int64            `json:"fan_configuration_id"`
	BladeQuantity      int              `json:"blade_quantity"`
	Components         []ComponentEntry `json:"components"`
	Motor              *MotorSelection  `json:"motor,omitempty"`
	Buyouts            []BuyoutItem     `json:"buyout_items,omitempty"`
	MarkupOverride     *float64         `json:"markup_override,omitempty"`
	// EffectiveDate selects motor price and discount records. Zero means now.
	EffectiveDate time.Time `json:"effective_date,omitempty"`
}

// ComponentResult carries every intermediate of a single-component
// calculation. The presentation layer renders each row, so nothing here may
// be dropped silently.
type ComponentResult struct {
	ComponentID           int64   `json:"component_id"`
	Name                  string  `json:"name"`
	OverallDiameterMM     float64 `json:"overall_diameter_mm"`
	TotalLengthMM         float64 `json:"total_length_mm"`
	MaterialThicknessMM   float64 `json:"material_thickness_mm"`
	StiffeningFactor      float64 `json:"stiffening_factor"`
	IdealMassKG           float64 `json:"ideal_mass_kg"`
	RealMassKG            float64 `json:"real_mass_kg"`
	FabricationWastePct   float64 `json:"fabrication_waste_percentage"`
	FeedstockMassKG       float64 `json:"feedstock_mass_kg"`
	MaterialCost          float64 `json:"material_cost"`
	LabourCost            float64 `json:"labour_cost"`
	TotalCostBeforeMarkup float64 `json:"total_cost_before_markup"`
	MarkupApplied         float64 `json:"markup_applied"`
	TotalCostAfterMarkup  float64 `json:"total_cost_after_markup"`
}

// MotorPriceResult carries every intermediate of the motor pricing pipeline.
type MotorPriceResult struct {
	MotorID            int64     `json:"motor_id"`
	SupplierName       string    `json:"supplier_name"`
	MountType          MountType `json:"mount_type"`
	BasePrice          float64   `json:"base_price"`
	DiscountPct        float64   `json:"discount_pct"`
	DiscountIsOverride bool      `json:"discount_is_override"`
	DiscountedPrice    float64   `json:"discounted_price"`
	MarkupApplied      float64   `json:"markup_applied"`
	FinalPrice         float64   `json:"final_price"`
}

// BuyoutLine is a buy-out item with its resolved subtotal.
type BuyoutLine struct {
	Description string  `json:"description"`
	UnitCost    float64 `json:"unit_cost"`
	Qty         float64 `json:"qty"`
	Subtotal    float64 `json:"subtotal"`
}

// QuoteTotals are the three independently-computed subtotals and their sum.
type QuoteTotals struct {
	Components float64 `json:"components"`
	Motor      float64 `json:"motor"`
	Buyouts    float64 `json:"buyouts"`
	GrandTotal float64 `json:"grand_total"`
}

// QuoteResult is the full response of a quote calculation.
type QuoteResult struct {
	FanUID        string            `json:"fan_uid"`
	BladeQuantity int               `json:"blade_quantity"`
	Components    []ComponentResult `json:"components"`
	Motor         *MotorPriceResult `json:"motor,omitempty"`
	Buyouts       []BuyoutLine      `json:"buyout_items"`
	Totals        QuoteTotals       `json:"totals"`
}

// ComponentsSummary is the lighter-weight response for UI "recalculate server
// totals" actions. It never requires a motor selection.
type ComponentsSummary struct {
	FanUID          string            `json:"fan_uid"`
	Components      []ComponentResult `json:"components"`
	ComponentsTotal float64           `json:"components_total"`
	BuyoutTotal     float64           `json:"buyout_total"`
}

// QuoteStatus is the lifecycle state of a saved quote document.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSubmitted QuoteStatus = "submitted"
	QuoteStatusApproved  QuoteStatus = "approved"
	QuoteStatusRejected  QuoteStatus = "rejected"
)

// SavedQuote is one immutable revision of a persisted quote document. The
// engine treats Document as an opaque versioned JSON tree; the document
// package owns its shape.
type SavedQuote struct {
	ID              string          `json:"id"`
	QuoteRef        string          `json:"quote_ref"`
	RevisionNumber  int             `json:"revision_number"`
	OriginalQuoteID string          `json:"original_quote_id,omitempty"`
	Status          QuoteStatus     `json:"status"`
	ClientName      string          `json:"client_name,omitempty"`
	ProjectName     string          `json:"project_name,omitempty"`
	Document        json.RawMessage `json:"quote_data"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SavedQuoteSummary is the list-view projection of a saved quote.
type SavedQuoteSummary struct {
	ID             string      `json:"id"`
	QuoteRef       string      `json:"quote_ref"`
	RevisionNumber int         `json:"revision_number"`
	Status         QuoteStatus `json:"status"`
	ClientName     string      `json:"client_name,omitempty"`
	ProjectName    string      `json:"project_name,omitempty"`
	GrandTotal     float64     `json:"grand_total"`
	CreatedAt      time.Time   `json:"created_at"`
}
