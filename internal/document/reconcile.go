package document

import (
	"encoding/json"
	"fmt"
	"math"
)

// Tolerance is the maximum absolute drift, in currency units, allowed
// between the stored grand total and the re-summed one.
const Tolerance = 0.01

// requiredSections are the top-level objects every canonical document carries.
var requiredSections = []string{"meta", "specification", "pricing", "calculation"}

// Reconcile re-sums a quote document's stored leaf values and checks them
// against its stored grand total. It never raises for data problems:
// malformed nodes become typed issues and the affected values are skipped,
// so a partially-filled document under active editing still reconciles.
func Reconcile(raw json.RawMessage) (DerivedTotals, []Issue) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return DerivedTotals{}, []Issue{{
			Path: "/", Code: CodeNotObject, Message: "document root must be an object",
		}}
	}

	var issues []Issue
	for _, section := range requiredSections {
		v, ok := doc[section]
		if !ok {
			issues = append(issues, Issue{
				Path: "/" + section, Code: CodeMissing,
				Message: fmt.Sprintf("required section %q is missing", section),
			})
			continue
		}
		if _, ok := v.(map[string]any); !ok {
			issues = append(issues, Issue{
				Path: "/" + section, Code: CodeType,
				Message: fmt.Sprintf("section %q must be an object", section),
			})
		}
	}

	spec := objectAt(doc, "specification")
	calc := objectAt(doc, "calculation")

	derived := DerivedTotals{
		ComponentsFinalPrice: componentsTotal(calc, &issues),
		MotorFinalPrice:      motorTotal(calc, &issues),
		BuyoutTotal:          buyoutTotal(spec, &issues),
	}
	derived.GrandTotal = derived.ComponentsFinalPrice + derived.MotorFinalPrice + derived.BuyoutTotal

	issues = append(issues, checkSelectedCalculated(spec, calc)...)
	issues = append(issues, checkGrandTotal(calc, derived)...)

	return derived, issues
}

// componentsTotal prefers the server-computed summary over summing the
// per-component leaves, matching how the totals were produced.
func componentsTotal(calc map[string]any, issues *[]Issue) float64 {
	summary := objectAt(calc, "server_summary")
	if v, ok := summary["final_price"]; ok {
		if n, ok := asNumber(v); ok {
			return n
		}
		*issues = append(*issues, Issue{
			Path: "/calculation/server_summary/final_price", Code: CodeType,
			Message: "final_price must be numeric",
		})
	}

	var total float64
	for name, node := range objectAt(calc, "components") {
		entry, ok := node.(map[string]any)
		if !ok {
			*issues = append(*issues, Issue{
				Path: "/calculation/components/" + name, Code: CodeType,
				Message: "calculated component must be an object",
			})
			continue
		}
		v, ok := entry["total_cost_after_markup"]
		if !ok {
			v = entry["final_price"]
		}
		if v == nil {
			continue
		}
		n, ok := asNumber(v)
		if !ok {
			*issues = append(*issues, Issue{
				Path: "/calculation/components/" + name + "/total_cost_after_markup", Code: CodeType,
				Message: "total_cost_after_markup must be numeric",
			})
			continue
		}
		total += n
	}
	return total
}

func motorTotal(calc map[string]any, issues *[]Issue) float64 {
	motor := objectAt(calc, "motor")
	if motor == nil {
		return 0
	}
	v, ok := motor["final_price"]
	if !ok || v == nil {
		return 0
	}
	n, ok := asNumber(v)
	if !ok {
		*issues = append(*issues, Issue{
			Path: "/calculation/motor/final_price", Code: CodeType,
			Message: "final_price must be numeric",
		})
		return 0
	}
	return n
}

func buyoutTotal(spec map[string]any, issues *[]Issue) float64 {
	raw, ok := spec["buyouts"]
	if !ok || raw == nil {
		return 0
	}
	items, ok := raw.([]any)
	if !ok {
		*issues = append(*issues, Issue{
			Path: "/specification/buyouts", Code: CodeType,
			Message: "buyouts must be a list",
		})
		return 0
	}

	var total float64
	for i, node := range items {
		item, ok := node.(map[string]any)
		if !ok {
			*issues = append(*issues, Issue{
				Path: fmt.Sprintf("/specification/buyouts/%d", i), Code: CodeType,
				Message: "buyout item must be an object",
			})
			continue
		}
		if sub, ok := asNumber(item["subtotal"]); ok {
			total += sub
			continue
		}
		if item["subtotal"] != nil {
			*issues = append(*issues, Issue{
				Path: fmt.Sprintf("/specification/buyouts/%d/subtotal", i), Code: CodeType,
				Message: "subtotal must be numeric",
			})
			continue
		}
		// Documents predating migration carry cost/quantity instead.
		unitCost, ok := asNumber(item["unit_cost"])
		if !ok {
			unitCost, _ = asNumber(item["cost"])
		}
		qty, ok := asNumber(item["qty"])
		if !ok {
			qty, _ = asNumber(item["quantity"])
		}
		total += unitCost * qty
	}
	return total
}

// checkSelectedCalculated verifies every component marked selected has a
// corresponding calculated entry.
func checkSelectedCalculated(spec, calc map[string]any) []Issue {
	components := objectAt(spec, "components")
	if components == nil {
		return nil
	}
	raw, ok := components["selected"]
	if !ok || raw == nil {
		return nil
	}
	selected, ok := raw.([]any)
	if !ok {
		return []Issue{{
			Path: "/specification/components/selected", Code: CodeType,
			Message: "selected must be a list",
		}}
	}

	calculated := objectAt(calc, "components")
	var issues []Issue
	for _, node := range selected {
		name, ok := node.(string)
		if !ok {
			continue
		}
		if _, ok := calculated[name]; !ok {
			issues = append(issues, Issue{
				Path: "/calculation/components/" + name, Code: CodeMissing,
				Message: fmt.Sprintf("selected component %q has no calculated entry", name),
			})
		}
	}
	return issues
}

func checkGrandTotal(calc map[string]any, derived DerivedTotals) []Issue {
	totals := objectAt(calc, "derived_totals")
	if totals == nil {
		return nil
	}
	v, ok := totals["grand_total"]
	if !ok || v == nil {
		return nil
	}
	stored, ok := asNumber(v)
	if !ok {
		return []Issue{{
			Path: "/calculation/derived_totals/grand_total", Code: CodeType,
			Message: "grand_total must be numeric",
		}}
	}
	if diff := math.Abs(stored - derived.GrandTotal); diff > Tolerance {
		return []Issue{{
			Path: "/calculation/derived_totals/grand_total", Code: CodeSumMismatch,
			Message: fmt.Sprintf("stored grand_total %.2f differs from recomputed %.2f by %.2f", stored, derived.GrandTotal, diff),
		}}
	}
	return nil
}
