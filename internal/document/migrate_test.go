package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCurrentVersionPassesThrough(t *testing.T) {
	raw := marshalDoc(t, cleanDocument(t))

	out, err := Migrate(raw)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestMigrateRejectsMalformedJSON(t *testing.T) {
	_, err := Migrate(json.RawMessage(`{broken`))
	require.Error(t, err)
}

func TestMigrateFlatLegacy(t *testing.T) {
	flat := `{
		"quote_ref": "Q-2023-017",
		"project_name": "Shaft 4 ventilation",
		"client_name": "Orefield",
		"project_location": "Rustenburg",
		"project_notes": "urgent",
		"fan_config_id": 1,
		"fan_uid": "AX-0710",
		"fan_hub": 665,
		"blade_sets": 8,
		"selected_components_unordered": ["Rotor", "Casing"],
		"component_details": {
			"Rotor": {"markup_override": 1.3}
		},
		"markup_override": 1.5,
		"motor_markup_override": 1.25,
		"motor_price_after_markup": 1080.0,
		"buy_out_items_list": [
			{"id": "item_0_Guard", "description": "Guard", "cost": 50, "quantity": 2}
		],
		"server_summary": {"final_price": 2200.0}
	}`

	out, err := Migrate(json.RawMessage(flat))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))

	meta := doc["meta"].(map[string]any)
	assert.EqualValues(t, CurrentVersion, meta["version"])

	project := doc["project"].(map[string]any)
	assert.Equal(t, "Shaft 4 ventilation", project["name"])
	assert.Equal(t, "Orefield", project["client"])
	assert.Equal(t, "Rustenburg", project["location"])
	assert.Equal(t, "Q-2023-017", project["reference"])

	spec := doc["specification"].(map[string]any)
	fan := spec["fan"].(map[string]any)
	assert.EqualValues(t, 1, fan["config_id"])
	assert.Equal(t, "AX-0710", fan["uid"])
	assert.EqualValues(t, 665, fan["hub_size_mm"])
	assert.EqualValues(t, 8, fan["blade_quantity"])

	components := spec["components"].(map[string]any)
	assert.Equal(t, []any{"Rotor", "Casing"}, components["selected"])
	rotor := components["by_name"].(map[string]any)["Rotor"].(map[string]any)
	overrides := rotor["overrides"].(map[string]any)
	assert.EqualValues(t, 1.3, overrides["markup_override"])

	buyouts := spec["buyouts"].([]any)
	require.Len(t, buyouts, 1)
	guard := buyouts[0].(map[string]any)
	assert.Equal(t, "Guard", guard["description"])
	assert.EqualValues(t, 50, guard["unit_cost"])
	assert.EqualValues(t, 2, guard["qty"])
	assert.NotContains(t, guard, "cost")
	assert.NotContains(t, guard, "quantity")
	assert.NotContains(t, guard, "id")

	pricing := doc["pricing"].(map[string]any)
	assert.EqualValues(t, 1.5, pricing["markup_override"])
	assert.EqualValues(t, 1.25, pricing["motor_markup_override"])

	calc := doc["calculation"].(map[string]any)
	summary := calc["server_summary"].(map[string]any)
	assert.EqualValues(t, 2200.0, summary["final_price"])
	motor := calc["motor"].(map[string]any)
	assert.EqualValues(t, 1080.0, motor["final_price"])

	// None of the flat keys survive the upgrade.
	for _, legacy := range []string{
		"quote_ref", "fan_config_id", "fan_uid", "fan_hub", "blade_sets",
		"selected_components_unordered", "component_details", "markup_override",
		"motor_markup_override", "motor_price_after_markup",
		"buy_out_items_list", "server_summary",
	} {
		assert.NotContains(t, doc, legacy)
	}
}

func TestMigrateV2Nested(t *testing.T) {
	nested := `{
		"meta": {"version": 2, "created_at": "2024-03-01T10:00:00Z"},
		"project": {"name": "Conveyor drift", "client": "Orefield"},
		"fan": {"config_id": 2, "uid": "AX-0900", "hub_size_mm": 800, "blade_sets": 10},
		"components": {
			"selected": ["Rotor"],
			"by_name": {
				"Rotor": {
					"overrides": {"thickness_mm_override": 6},
					"calculated": {"total_cost_after_markup": 950.0}
				}
			}
		},
		"motor": {
			"selection": {"motor_id": 5},
			"mount_type": "Flange",
			"markup_override": 1.2,
			"final_price": 1080.0
		},
		"buy_out_items": [{"description": "Guard", "unit_cost": 50, "qty": 1}],
		"calculation": {
			"markup_override": 1.4,
			"server_summary": {"final_price": 950.0},
			"derived_totals": {"grand_total": 2080.0}
		}
	}`

	out, err := Migrate(json.RawMessage(nested))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))

	meta := doc["meta"].(map[string]any)
	assert.EqualValues(t, CurrentVersion, meta["version"])
	assert.Equal(t, "2024-03-01T10:00:00Z", meta["created_at"])

	spec := doc["specification"].(map[string]any)
	fan := spec["fan"].(map[string]any)
	assert.Equal(t, "AX-0900", fan["uid"])
	assert.EqualValues(t, 10, fan["blade_quantity"])

	components := spec["components"].(map[string]any)
	rotor := components["by_name"].(map[string]any)["Rotor"].(map[string]any)
	overrides := rotor["overrides"].(map[string]any)
	assert.EqualValues(t, 6, overrides["thickness_mm_override"])
	// Calculated values move out of by_name into the calculation section.
	assert.NotContains(t, rotor, "calculated")

	motor := spec["motor"].(map[string]any)
	assert.Equal(t, "Flange", motor["mount_type"])

	pricing := doc["pricing"].(map[string]any)
	assert.EqualValues(t, 1.4, pricing["markup_override"])
	assert.EqualValues(t, 1.2, pricing["motor_markup_override"])

	calc := doc["calculation"].(map[string]any)
	rotorCalc := calc["components"].(map[string]any)["Rotor"].(map[string]any)
	assert.EqualValues(t, 950.0, rotorCalc["total_cost_after_markup"])
	assert.EqualValues(t, 1080.0, calc["motor"].(map[string]any)["final_price"])
	assert.EqualValues(t, 2080.0, calc["derived_totals"].(map[string]any)["grand_total"])
}

func TestMigrateIdempotent(t *testing.T) {
	flat := `{"fan_config_id": 1, "fan_uid": "AX-0710", "blade_sets": 8}`

	once, err := Migrate(json.RawMessage(flat))
	require.NoError(t, err)
	twice, err := Migrate(once)
	require.NoError(t, err)

	assert.JSONEq(t, string(once), string(twice))
}

func TestMigratedDocumentReconciles(t *testing.T) {
	flat := `{
		"fan_config_id": 1,
		"fan_uid": "AX-0710",
		"blade_sets": 8,
		"selected_components_unordered": [],
		"motor_price_after_markup": 1080.0,
		"server_summary": {"final_price": 950.0},
		"buy_out_items_list": [{"id": "item_0_Guard", "description": "Guard", "cost": 50, "quantity": 2}]
	}`

	out, err := Migrate(json.RawMessage(flat))
	require.NoError(t, err)

	derived, issues := Reconcile(out)
	assert.Empty(t, issues)
	assert.InDelta(t, 950.0, derived.ComponentsFinalPrice, 1e-9)
	assert.InDelta(t, 1080.0, derived.MotorFinalPrice, 1e-9)
	assert.InDelta(t, 100.0, derived.BuyoutTotal, 1e-9)
	assert.InDelta(t, 2130.0, derived.GrandTotal, 1e-9)
}

func TestMigrateBuyoutsKeepSubtotalAndUnitCost(t *testing.T) {
	flat := `{
		"fan_config_id": 1,
		"buy_out_items_list": [
			{"description": "Guard", "cost": 50, "quantity": 2},
			{"description": "Damper", "unit_cost": 40, "qty": 3, "subtotal": 120},
			{"description": "Mixed", "cost": 999, "unit_cost": 10, "quantity": 4}
		]
	}`

	out, err := Migrate(json.RawMessage(flat))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	buyouts := doc["specification"].(map[string]any)["buyouts"].([]any)
	require.Len(t, buyouts, 3)

	damper := buyouts[1].(map[string]any)
	assert.EqualValues(t, 40, damper["unit_cost"])
	assert.EqualValues(t, 3, damper["qty"])
	assert.EqualValues(t, 120, damper["subtotal"])

	// A canonical key beats its legacy alias when both are present.
	mixed := buyouts[2].(map[string]any)
	assert.EqualValues(t, 10, mixed["unit_cost"])
	assert.EqualValues(t, 4, mixed["qty"])
	assert.NotContains(t, mixed, "cost")
	assert.NotContains(t, mixed, "quantity")
}
