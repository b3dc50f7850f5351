package refdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axialworks/fanquote/internal/model"
	"github.com/axialworks/fanquote/internal/store"
)

func TestLoadFixture(t *testing.T) {
	set, err := Load(filepath.Join("testdata", "seed.yaml"))
	require.NoError(t, err)

	require.Len(t, set.Fans, 1)
	assert.Equal(t, "AX-0710", set.Fans[0].UID)
	assert.Equal(t, []int{8, 10, 12}, set.Fans[0].AvailableBladeQtys)
	require.Len(t, set.Components, 2)
	require.Len(t, set.Parameters, 2)
	require.Len(t, set.Motors, 1)
	require.Len(t, set.Motors[0].Prices, 2)
	assert.Equal(t, "1.4", set.Settings["default_markup"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "nope.yaml"))
	require.Error(t, err)
}

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "fan without uid",
			body: "fans:\n  - id: 1\n    fan_size_mm: 710\n",
		},
		{
			name: "parameter references unknown fan",
			body: `
components:
  - {id: 10, name: Rotor}
materials:
  - {id: 1, name: Mild Steel, cost_per_unit: 1.1, density_kg_m3: 7850}
labour_rates:
  - {id: 1, name: Fabrication, rate_per_hour: 30, productivity_kg_per_day: 250}
parameters:
  - {fan_id: 99, component_id: 10, mass_formula: ROTOR_EMPIRICAL, material: Mild Steel, labour_rate: Fabrication}
`,
		},
		{
			name: "unknown mass formula",
			body: `
fans:
  - {id: 1, uid: AX-0710}
components:
  - {id: 10, name: Rotor}
materials:
  - {id: 1, name: Mild Steel, cost_per_unit: 1.1, density_kg_m3: 7850}
labour_rates:
  - {id: 1, name: Fabrication, rate_per_hour: 30, productivity_kg_per_day: 250}
parameters:
  - {fan_id: 1, component_id: 10, mass_formula: MAGIC, material: Mild Steel, labour_rate: Fabrication}
`,
		},
		{
			name: "bad price date",
			body: `
motors:
  - id: 5
    supplier: WEG
    prices:
      - {flange: 1000, date_effective: "15 Jan 2024"}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFixture(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestSeedIntoStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	set, err := Load(filepath.Join("testdata", "seed.yaml"))
	require.NoError(t, err)
	require.NoError(t, Seed(ctx, st, set))

	fan, err := st.FanConfigurationByUID(ctx, "AX-0710")
	require.NoError(t, err)
	assert.EqualValues(t, 665, fan.HubSizeMM)
	assert.Equal(t, []int64{10, 11}, fan.AvailableComponents)

	components, err := st.ComponentsForFan(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, "Casing", components[0].Name)

	param, err := st.ComponentParameter(ctx, fan.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, model.MassCylinderSurface, param.MassFormulaType)
	require.NotNil(t, param.LengthMM)
	assert.EqualValues(t, 500, *param.LengthMM)

	material, err := st.MaterialByName(ctx, "Mild Steel")
	require.NoError(t, err)
	assert.EqualValues(t, 7850, material.DensityKGM3)

	settings, err := st.GlobalSettings(ctx)
	require.NoError(t, err)
	byName := map[string]string{}
	for _, s := range settings {
		byName[s.Name] = s.Value
	}
	assert.Equal(t, "1.4", byName["default_markup"])

	// The 2025 price row is effective for a 2026 as-of date; the 2024 row
	// still serves historical dates.
	price, err := st.MotorPriceAt(ctx, 5, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, price.FlangePrice)
	assert.EqualValues(t, 1100, *price.FlangePrice)

	price, err = st.MotorPriceAt(ctx, 5, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, price.FlangePrice)
	assert.EqualValues(t, 1000, *price.FlangePrice)

	discounts, err := st.SupplierDiscounts(ctx, "WEG")
	require.NoError(t, err)
	require.Len(t, discounts, 1)
	assert.EqualValues(t, 10, discounts[0].DiscountPct)

	// Re-seeding is idempotent for upserted rows.
	require.NoError(t, Seed(ctx, st, &Set{Fans: set.Fans, Materials: set.Materials, Labour: set.Labour, Components: set.Components, Parameters: set.Parameters}))
	fans, err := st.FanConfigurations(ctx)
	require.NoError(t, err)
	assert.Len(t, fans, 1)
}
