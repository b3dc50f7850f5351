package document

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Migrate upgrades a quote document to the canonical schema. Documents
// already at the current version pass through untouched; the version 2
// nested shape and the unversioned flat shape that preceded it are mapped
// into the canonical sections and their deprecated keys dropped. Idempotent.
func Migrate(raw json.RawMessage) (json.RawMessage, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "document: parse")
	}
	if docVersion(doc) >= CurrentVersion {
		return raw, nil
	}

	out, err := json.Marshal(migrateLegacy(doc))
	if err != nil {
		return nil, eris.Wrap(err, "document: marshal migrated")
	}
	return out, nil
}

func docVersion(doc map[string]any) int {
	meta := objectAt(doc, "meta")
	if meta == nil {
		return 0
	}
	v, ok := asNumber(meta["version"])
	if !ok {
		return 0
	}
	return int(v)
}

// migrateLegacy maps both the v2 nested shape (fan / components / motor /
// buy_out_items / calculation at the root) and the flat shape (fan_config_id,
// selected_components_unordered, ...) into canonical sections.
func migrateLegacy(old map[string]any) map[string]any {
	meta := map[string]any{"version": CurrentVersion}
	if oldMeta := objectAt(old, "meta"); oldMeta != nil {
		for _, k := range []string{"created_at", "updated_at", "created_by"} {
			if v, ok := oldMeta[k]; ok {
				meta[k] = v
			}
		}
	}

	project := map[string]any{}
	if oldProject := objectAt(old, "project"); oldProject != nil {
		for k, v := range oldProject {
			project[k] = v
		}
	} else {
		project["name"] = stringOr(old["project_name"], "")
		project["client"] = stringOr(old["client_name"], "")
		project["location"] = stringOr(old["project_location"], "")
		project["notes"] = stringOr(old["project_notes"], "")
	}
	if ref := stringOr(old["quote_ref"], ""); ref != "" {
		project["reference"] = ref
	}

	fan := map[string]any{}
	if oldFan := objectAt(old, "fan"); oldFan != nil {
		fan["config_id"] = oldFan["config_id"]
		fan["uid"] = oldFan["uid"]
		fan["hub_size_mm"] = oldFan["hub_size_mm"]
		fan["blade_quantity"] = oldFan["blade_sets"]
	} else {
		fan["config_id"] = old["fan_config_id"]
		fan["uid"] = old["fan_uid"]
		fan["hub_size_mm"] = old["fan_hub"]
		fan["blade_quantity"] = old["blade_sets"]
	}

	components := map[string]any{"selected": []any{}, "by_name": map[string]any{}}
	calculated := map[string]any{}
	if oldComponents := objectAt(old, "components"); oldComponents != nil {
		if sel, ok := oldComponents["selected"].([]any); ok {
			components["selected"] = sel
		}
		byName := map[string]any{}
		for name, node := range objectAt(oldComponents, "by_name") {
			entry, ok := node.(map[string]any)
			if !ok {
				continue
			}
			byName[name] = map[string]any{"overrides": entry["overrides"]}
			if calc, ok := entry["calculated"].(map[string]any); ok && len(calc) > 0 {
				calculated[name] = calc
			}
		}
		components["by_name"] = byName
	} else {
		if sel, ok := old["selected_components_unordered"].([]any); ok {
			components["selected"] = sel
		}
		byName := map[string]any{}
		for name, det := range objectAt(old, "component_details") {
			byName[name] = map[string]any{"overrides": det}
		}
		components["by_name"] = byName
	}

	buyouts := []any{}
	if items, ok := old["buy_out_items"].([]any); ok {
		buyouts = migrateBuyouts(items)
	} else if items, ok := old["buy_out_items_list"].([]any); ok {
		buyouts = migrateBuyouts(items)
	}

	spec := map[string]any{
		"fan":        fan,
		"components": components,
		"buyouts":    buyouts,
	}

	pricing := map[string]any{}
	oldCalc := objectAt(old, "calculation")
	if v, ok := oldCalc["markup_override"]; ok {
		pricing["markup_override"] = v
	} else if v, ok := old["markup_override"]; ok {
		pricing["markup_override"] = v
	}

	calculation := map[string]any{
		"components":     calculated,
		"server_summary": map[string]any{},
		"derived_totals": map[string]any{},
	}
	if summary := objectAt(oldCalc, "server_summary"); summary != nil {
		calculation["server_summary"] = summary
	} else if summary := objectAt(old, "server_summary"); summary != nil {
		calculation["server_summary"] = summary
	}
	if derived := objectAt(oldCalc, "derived_totals"); derived != nil {
		calculation["derived_totals"] = derived
	}

	if oldMotor := objectAt(old, "motor"); oldMotor != nil {
		spec["motor"] = map[string]any{
			"selection":  oldMotor["selection"],
			"mount_type": oldMotor["mount_type"],
		}
		if v, ok := oldMotor["markup_override"]; ok {
			pricing["motor_markup_override"] = v
		}
		if final, ok := asNumber(oldMotor["final_price"]); ok {
			calculation["motor"] = map[string]any{"final_price": final}
		}
	} else {
		if v, ok := old["motor_markup_override"]; ok {
			pricing["motor_markup_override"] = v
		}
		if final, ok := asNumber(old["motor_price_after_markup"]); ok {
			calculation["motor"] = map[string]any{"final_price": final}
		}
	}

	return map[string]any{
		"meta":          meta,
		"project":       project,
		"specification": spec,
		"pricing":       pricing,
		"calculation":   calculation,
	}
}

// migrateBuyouts renames the cost/quantity keys flat-era buy-out items used
// to the canonical unit_cost/qty and drops the client-generated item ids.
func migrateBuyouts(items []any) []any {
	out := make([]any, 0, len(items))
	for _, node := range items {
		item, ok := node.(map[string]any)
		if !ok {
			out = append(out, node)
			continue
		}
		mapped := map[string]any{}
		for k, v := range item {
			switch k {
			case "id":
			case "cost":
				if _, ok := item["unit_cost"]; !ok {
					mapped["unit_cost"] = v
				}
			case "quantity":
				if _, ok := item["qty"]; !ok {
					mapped["qty"] = v
				}
			default:
				mapped[k] = v
			}
		}
		out = append(out, mapped)
	}
	return out
}

// objectAt returns doc[key] as an object, or nil when absent or another type.
func objectAt(doc map[string]any, key string) map[string]any {
	if doc == nil {
		return nil
	}
	m, _ := doc[key].(map[string]any)
	return m
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}
