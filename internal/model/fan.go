// Package model defines the domain types shared across the quoting engine:
// reference data (fans, components, materials, rates, motors), calculation
// requests and results, and the error taxonomy.
package model

// MassFormula selects which geometry-specific mass algorithm applies to a
// component.
type MassFormula string

const (
	MassCylinderSurface MassFormula = "CYLINDER_SURFACE"
	MassConeSurface     MassFormula = "CONE_SURFACE"
	MassSCD             MassFormula = "SCD_MASS"
	MassRotorEmpirical  MassFormula = "ROTOR_EMPIRICAL"
)

// DiameterFormula selects how a component's working diameter is derived from
// the fan's hub and casing sizes.
type DiameterFormula string

const (
	DiameterHub         DiameterFormula = "HUB_DIAMETER"
	DiameterHubX135     DiameterFormula = "HUB_DIAMETER_X_1_35"
	DiameterHubX125     DiameterFormula = "HUB_DIAMETER_X_1_25"
	DiameterConical60   DiameterFormula = "CONICAL_60_DEG"
	DiameterHubPlusWall DiameterFormula = "HUB_PLUS_CONSTANT"
)

// LengthFormula selects how a component's length is derived when no fixed
// length is stored for the (fan, component) pair.
type LengthFormula string

const (
	LengthConical15  LengthFormula = "CONICAL_15_DEG"
	LengthConical35  LengthFormula = "CONICAL_3_5_DEG"
	LengthMultiplier LengthFormula = "LENGTH_D_X_MULTIPLIER"
)

// StiffeningFormula selects how the stiffening factor is derived when no
// fixed factor is stored.
type StiffeningFormula string

const (
	StiffeningLinearHubA StiffeningFormula = "LINEAR_HUB_SCALING_A"
)

// FanConfiguration is an immutable reference record describing one fan setup.
// Created and edited by administrators, never by the engine.
type FanConfiguration struct {
	ID                     int64   `json:"id"`
	UID                    string  `json:"uid"`
	FanSizeMM              float64 `json:"fan_size_mm"`
	HubSizeMM              float64 `json:"hub_size_mm"`
	AvailableBladeQtys     []int   `json:"available_blade_qtys"`
	StatorBladeQty         int     `json:"stator_blade_qty"`
	BladeName              string  `json:"blade_name,omitempty"`
	BladeMaterial          string  `json:"blade_material,omitempty"`
	MassPerBladeKG         float64 `json:"mass_per_blade_kg"`
	AvailableMotorKW       []int   `json:"available_motor_kw"`
	MotorPoles             int     `json:"motor_poles"`
	AvailableComponents    []int64 `json:"available_components"`
	AutoSelectedComponents []int64 `json:"auto_selected_components,omitempty"`
}

// HasComponent reports whether the component id is in the fan's available set.
func (fc *FanConfiguration) HasComponent(componentID int64) bool {
	for _, id := range fc.AvailableComponents {
		if id == componentID {
			return true
		}
	}
	return false
}

// Component is an immutable reference record for a selectable fan part.
type Component struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	OrderBy string `json:"order_by,omitempty"`
}

// FanComponentParameter holds the physical inputs the mass formulas need for
// one (fan configuration, component) pair. The engine treats this row as the
// authoritative geometry source; thickness and waste factor are overridable
// per request.
type FanComponentParameter struct {
	FanConfigurationID int64             `json:"fan_configuration_id"`
	ComponentID        int64             `json:"component_id"`
	MassFormulaType    MassFormula       `json:"mass_formula_type"`
	DiameterFormula    DiameterFormula   `json:"diameter_formula_type,omitempty"`
	LengthFormula      LengthFormula     `json:"length_formula_type,omitempty"`
	StiffeningFormula  StiffeningFormula `json:"stiffening_formula_type,omitempty"`
	LengthMM           *float64          `json:"length_mm,omitempty"`
	LengthMult         float64           `json:"length_multiplier,omitempty"`
	StiffeningFactor   *float64          `json:"stiffening_factor,omitempty"`
	DefaultThicknessMM float64           `json:"default_thickness_mm"`
	DefaultWasteFactor float64           `json:"default_fabrication_waste_factor"`
	MaterialName       string            `json:"material_name"`
	LabourRateName     string            `json:"labour_rate_name"`
}

// Material is a purchasable feedstock with a cost per unit mass.
type Material struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	CostPerUnit float64 `json:"cost_per_unit"`
	CostUnit    string  `json:"cost_unit"`
	Currency    string  `json:"currency"`
	DensityKGM3 float64 `json:"density_kg_m3"`
}

// LabourRate is a fabrication labour rate with a productivity figure
// (mass processed per labour day).
type LabourRate struct {
	ID                   int64   `json:"id"`
	Name                 string  `json:"name"`
	RatePerHour          float64 `json:"rate_per_hour"`
	ProductivityKGPerDay float64 `json:"productivity_kg_per_day"`
	Currency             string  `json:"currency"`
}

// GlobalSetting is one key/value row from the settings store. Values are
// stored as strings and parsed by the consumer.
type GlobalSetting struct {
	Name  string `json:"setting_name"`
	Value string `json:"setting_value"`
}
