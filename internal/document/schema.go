// Package document owns the versioned quote document: its canonical shape,
// migration of older shapes at the ingestion boundary, and reconciliation of
// stored totals. The engine otherwise treats saved documents as opaque JSON.
package document

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/axialworks/fanquote/internal/model"
)

// CurrentVersion is the canonical document schema version. Version 2 and the
// unversioned flat shape that preceded it are upgraded on ingestion; two
// parallel representations are never kept in sync.
const CurrentVersion = 3

// Issue is one reconciliation or validation finding. Reconciliation never
// raises for data problems; it accumulates issues so a caller can report
// them all in one pass.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Issue codes.
const (
	CodeNotObject   = "not_object"
	CodeMissing     = "missing"
	CodeType        = "type"
	CodeSumMismatch = "sum_mismatch"
)

// DerivedTotals are the totals recomputed from a document's stored leaf
// values, used to validate consistency against the stored grand total.
type DerivedTotals struct {
	ComponentsFinalPrice float64 `json:"components_final_price"`
	MotorFinalPrice      float64 `json:"motor_final_price"`
	BuyoutTotal          float64 `json:"buyout_total"`
	GrandTotal           float64 `json:"grand_total"`
}

// Project carries the quote header fields a document records about the job.
type Project struct {
	Name      string `json:"name"`
	Client    string `json:"client"`
	Location  string `json:"location"`
	Notes     string `json:"notes"`
	Reference string `json:"reference"`
}

// Build assembles a canonical quote document from a calculated quote. The
// specification section records what was asked for, pricing records the
// knobs, and calculation records every computed leaf so the reconciler can
// re-sum without re-running the calculators.
func Build(req model.QuoteRequest, res *model.QuoteResult, project Project) (json.RawMessage, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	selected := make([]string, 0, len(res.Components))
	byName := map[string]any{}
	calculated := map[string]any{}
	for i, cr := range res.Components {
		selected = append(selected, cr.Name)
		overrides := map[string]any{}
		if i < len(req.Components) {
			entry := req.Components[i]
			if entry.ThicknessMM != nil {
				overrides["thickness_mm_override"] = *entry.ThicknessMM
			}
			if entry.WasteFactor != nil {
				overrides["fabrication_waste_factor_override"] = *entry.WasteFactor
			}
			if entry.Markup != nil {
				overrides["markup_override"] = *entry.Markup
			}
		}
		byName[cr.Name] = map[string]any{"id": cr.ComponentID, "overrides": overrides}
		calculated[cr.Name] = cr
	}

	buyouts := make([]any, 0, len(res.Buyouts))
	for _, b := range res.Buyouts {
		buyouts = append(buyouts, map[string]any{
			"description": b.Description,
			"unit_cost":   b.UnitCost,
			"qty":         b.Qty,
			"subtotal":    b.Subtotal,
		})
	}

	spec := map[string]any{
		"fan": map[string]any{
			"config_id":      req.FanConfigurationID,
			"uid":            res.FanUID,
			"blade_quantity": res.BladeQuantity,
		},
		"components": map[string]any{
			"selected": selected,
			"by_name":  byName,
		},
		"buyouts": buyouts,
	}
	if req.Motor != nil {
		spec["motor"] = map[string]any{
			"motor_id":   req.Motor.MotorID,
			"mount_type": string(req.Motor.MountType),
		}
	}

	pricing := map[string]any{}
	if req.MarkupOverride != nil {
		pricing["markup_override"] = *req.MarkupOverride
	}
	if req.Motor != nil && req.Motor.MarkupOverride != nil {
		pricing["motor_markup_override"] = *req.Motor.MarkupOverride
	}
	if req.Motor != nil && req.Motor.SupplierDiscountOverride != nil {
		pricing["supplier_discount_override"] = *req.Motor.SupplierDiscountOverride
	}

	calculation := map[string]any{
		"components": calculated,
		"server_summary": map[string]any{
			"final_price": res.Totals.Components,
		},
		"derived_totals": DerivedTotals{
			ComponentsFinalPrice: res.Totals.Components,
			MotorFinalPrice:      res.Totals.Motor,
			BuyoutTotal:          res.Totals.Buyouts,
			GrandTotal:           res.Totals.GrandTotal,
		},
	}
	if res.Motor != nil {
		calculation["motor"] = res.Motor
	}

	doc := map[string]any{
		"meta": map[string]any{
			"version":    CurrentVersion,
			"created_at": now,
			"updated_at": now,
		},
		"project":       project,
		"specification": spec,
		"pricing":       pricing,
		"calculation":   calculation,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "document: marshal")
	}
	return raw, nil
}
