package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axialworks/fanquote/internal/model"
)

func f64(v float64) *float64 { return &v }

func testDefaults() Defaults {
	return Defaults{ComponentMarkup: 1.4, MotorMarkup: 1.2, HoursPerDay: 8}
}

func casingInput() ComponentInput {
	length := 800.0
	stiffening := 1.1
	return ComponentInput{
		Fan: &model.FanConfiguration{
			ID: 1, UID: "AX-1000", FanSizeMM: 1000, HubSizeMM: 1000,
			AvailableBladeQtys: []int{8, 10, 12},
		},
		Component: &model.Component{ID: 3, Name: "Casing"},
		Params: &model.FanComponentParameter{
			FanConfigurationID: 1, ComponentID: 3,
			MassFormulaType:    model.MassCylinderSurface,
			DiameterFormula:    model.DiameterHub,
			LengthMM:           &length,
			StiffeningFactor:   &stiffening,
			DefaultThicknessMM: 4,
			DefaultWasteFactor: 0.10,
		},
		Material:      &model.Material{Name: "Steel S355JR", CostPerUnit: 1.5, CostUnit: "kg", DensityKGM3: 7850},
		Labour:        &model.LabourRate{Name: "Fabrication", RatePerHour: 30, ProductivityKGPerDay: 200},
		BladeQuantity: 10,
		Defaults:      testDefaults(),
	}
}

func TestComponent_CylindricalCasingWithOverrides(t *testing.T) {
	t.Parallel()

	in := casingInput()
	in.Overrides = model.ComponentOverrides{
		ThicknessMM: f64(6),
		WasteFactor: f64(0.15),
		Markup:      f64(1.4),
	}

	res, err := Component(in)
	require.NoError(t, err)

	// Hand-computed chain for a 1000 mm x 800 mm cylinder at 6 mm plate.
	ideal := math.Pi * 1000 * 800 * 6 * 7850 / 1e9
	real := ideal * 1.1
	feedstock := real * 1.15
	materialCost := feedstock * 1.5
	labourCost := real / 200 * 8 * 30

	assert.InDelta(t, 1000, res.OverallDiameterMM, 1e-9)
	assert.InDelta(t, 800, res.TotalLengthMM, 1e-9)
	assert.InDelta(t, 6, res.MaterialThicknessMM, 1e-9)
	assert.InDelta(t, 1.1, res.StiffeningFactor, 1e-9)
	assert.InDelta(t, ideal, res.IdealMassKG, 1e-9)
	assert.InDelta(t, real, res.RealMassKG, 1e-9)
	assert.InDelta(t, 15, res.FabricationWastePct, 1e-9)
	assert.InDelta(t, feedstock, res.FeedstockMassKG, 1e-9)
	assert.InDelta(t, materialCost, res.MaterialCost, 1e-9)
	assert.InDelta(t, labourCost, res.LabourCost, 1e-9)
	assert.InDelta(t, materialCost+labourCost, res.TotalCostBeforeMarkup, 1e-9)
	assert.InDelta(t, 1.4, res.MarkupApplied, 1e-9)
	assert.InDelta(t, (materialCost+labourCost)*1.4, res.TotalCostAfterMarkup, 1e-9)
}

func TestComponent_MarkupProperty(t *testing.T) {
	t.Parallel()

	// total_cost_after_markup == total_cost_before_markup * markup for a
	// spread of markups.
	for _, markup := range []float64{1.0, 1.2, 1.4, 2.5} {
		in := casingInput()
		in.Overrides.Markup = f64(markup)

		res, err := Component(in)
		require.NoError(t, err)
		assert.InEpsilon(t, res.TotalCostBeforeMarkup*markup, res.TotalCostAfterMarkup, 1e-6)
	}
}

func TestComponent_DefaultMarkupWhenNoOverride(t *testing.T) {
	t.Parallel()

	res, err := Component(casingInput())
	require.NoError(t, err)
	assert.InDelta(t, 1.4, res.MarkupApplied, 1e-9)
}

func TestComponent_Idempotent(t *testing.T) {
	t.Parallel()

	in := casingInput()
	first, err := Component(in)
	require.NoError(t, err)
	second, err := Component(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComponent_UnknownFormulaType(t *testing.T) {
	t.Parallel()

	in := casingInput()
	in.Params.MassFormulaType = "HELICOID_SWEEP"

	_, err := Component(in)
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))
	assert.Contains(t, err.Error(), "unknown mass formula type")
}

func TestComponent_InvalidInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ComponentInput)
		want   string
	}{
		{
			name:   "non-positive thickness override",
			mutate: func(in *ComponentInput) { in.Overrides.ThicknessMM = f64(0) },
			want:   "thickness must be positive",
		},
		{
			name: "no thickness anywhere",
			mutate: func(in *ComponentInput) {
				in.Params.DefaultThicknessMM = 0
			},
			want: "thickness must be positive",
		},
		{
			name:   "waste factor zero",
			mutate: func(in *ComponentInput) { in.Overrides.WasteFactor = f64(0) },
			want:   "waste factor",
		},
		{
			name:   "waste factor not a fraction",
			mutate: func(in *ComponentInput) { in.Overrides.WasteFactor = f64(15) },
			want:   "waste factor",
		},
		{
			name:   "markup below one",
			mutate: func(in *ComponentInput) { in.Overrides.Markup = f64(0.8) },
			want:   "markup override must be >= 1.0",
		},
		{
			name:   "zero productivity",
			mutate: func(in *ComponentInput) { in.Labour.ProductivityKGPerDay = 0 },
			want:   "productivity must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := casingInput()
			tt.mutate(&in)

			_, err := Component(in)
			require.Error(t, err)
			assert.True(t, model.IsConfiguration(err), "want ConfigurationError, got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestComponent_RotorEmpirical(t *testing.T) {
	t.Parallel()

	in := casingInput()
	in.Fan.HubSizeMM = 665
	in.Fan.MassPerBladeKG = 1.8
	in.Component = &model.Component{ID: 9, Name: "Rotor"}
	in.Params = &model.FanComponentParameter{
		MassFormulaType:    model.MassRotorEmpirical,
		DefaultThicknessMM: 4,
		DefaultWasteFactor: 0.05,
	}
	in.BladeQuantity = 12

	res, err := Component(in)
	require.NoError(t, err)

	// hub/665 == 1, so the scale terms collapse.
	want := 19.5*2 + 8.6 + 2 + 12*1.8 + 5.0
	assert.InDelta(t, want, res.IdealMassKG, 1e-9)
	// No stored stiffening factor: real mass equals ideal mass.
	assert.InDelta(t, want, res.RealMassKG, 1e-9)
}

func TestComponent_SCDIncludesEndPlate(t *testing.T) {
	t.Parallel()

	in := casingInput()
	in.Params.MassFormulaType = model.MassSCD

	res, err := Component(in)
	require.NoError(t, err)

	shell := math.Pi * 1000 * 800
	endPlate := math.Pi / 4 * 1000 * 1000
	want := (shell + endPlate) * 4 * 7850 / 1e9 * 1.1
	assert.InDelta(t, want, res.RealMassKG, 1e-9)
}

func TestComponent_ConeUsesAverageDiameter(t *testing.T) {
	t.Parallel()

	in := casingInput()
	in.Params.MassFormulaType = model.MassConeSurface
	in.Params.DiameterFormula = model.DiameterHubX135

	res, err := Component(in)
	require.NoError(t, err)

	// The cone surface is swept at the start/end average, while the
	// reported overall diameter is the expanded large end.
	avg := (1000.0 + 1350.0) / 2
	want := math.Pi * avg * 800 * 4 * 7850 / 1e9
	assert.InDelta(t, want, res.IdealMassKG, 1e-9)
	assert.InDelta(t, 1350, res.OverallDiameterMM, 1e-9)
}

func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	base := testDefaults()
	out := ResolveDefaults(base, []model.GlobalSetting{
		{Name: SettingDefaultMarkup, Value: "1.35"},
		{Name: SettingHoursPerDay, Value: "7.5"},
		{Name: SettingDefaultMotorMarkup, Value: "not-a-number"},
		{Name: "steel_density_kg_m3", Value: "7850"},
	})

	assert.Equal(t, 1.35, out.ComponentMarkup)
	assert.Equal(t, 7.5, out.HoursPerDay)
	// Unparseable value keeps the compile-time default.
	assert.Equal(t, 1.2, out.MotorMarkup)
	// The input is never mutated.
	assert.Equal(t, 1.4, base.ComponentMarkup)
}
