package quote

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axialworks/fanquote/internal/calc"
	"github.com/axialworks/fanquote/internal/model"
)

type fakeRepo struct {
	fans      map[int64]*model.FanConfiguration
	comps     map[int64]*model.Component
	params    map[[2]int64]*model.FanComponentParameter
	materials map[string]*model.Material
	rates     map[string]*model.LabourRate
	settings  []model.GlobalSetting
	motors    map[int64]*model.Motor
	prices    map[int64]*model.MotorPrice
	discounts map[string][]model.MotorSupplierDiscount
}

func (f *fakeRepo) FanConfiguration(_ context.Context, id int64) (*model.FanConfiguration, error) {
	fan, ok := f.fans[id]
	if !ok {
		return nil, model.NotFound("fan configuration", id)
	}
	return fan, nil
}

func (f *fakeRepo) Component(_ context.Context, id int64) (*model.Component, error) {
	c, ok := f.comps[id]
	if !ok {
		return nil, model.NotFound("component", id)
	}
	return c, nil
}

func (f *fakeRepo) ComponentParameter(_ context.Context, fanID, componentID int64) (*model.FanComponentParameter, error) {
	p, ok := f.params[[2]int64{fanID, componentID}]
	if !ok {
		return nil, model.NotFound("component parameters", componentID)
	}
	return p, nil
}

func (f *fakeRepo) MaterialByName(_ context.Context, name string) (*model.Material, error) {
	m, ok := f.materials[name]
	if !ok {
		return nil, model.NotFound("material", name)
	}
	return m, nil
}

func (f *fakeRepo) LabourRateByName(_ context.Context, name string) (*model.LabourRate, error) {
	r, ok := f.rates[name]
	if !ok {
		return nil, model.NotFound("labour rate", name)
	}
	return r, nil
}

func (f *fakeRepo) GlobalSettings(_ context.Context) ([]model.GlobalSetting, error) {
	return f.settings, nil
}

func (f *fakeRepo) Motor(_ context.Context, id int64) (*model.Motor, error) {
	m, ok := f.motors[id]
	if !ok {
		return nil, model.NotFound("motor", id)
	}
	return m, nil
}

func (f *fakeRepo) MotorPriceAt(_ context.Context, motorID int64, _ time.Time) (*model.MotorPrice, error) {
	p, ok := f.prices[motorID]
	if !ok {
		return nil, model.NotFound("motor price", motorID)
	}
	return p, nil
}

func (f *fakeRepo) SupplierDiscounts(_ context.Context, supplierName string) ([]model.MotorSupplierDiscount, error) {
	return f.discounts[supplierName], nil
}

func ptr(v float64) *float64 { return &v }

// newTestRepo builds a fan with a rotor (empirical formula) and a casing
// (cylinder surface), one motor at 1000.00 with a 10% supplier discount.
func newTestRepo() *fakeRepo {
	flange := 1000.0
	length := 500.0
	return &fakeRepo{
		fans: map[int64]*model.FanConfiguration{
			1: {
				ID:                  1,
				UID:                 "AX-0710",
				FanSizeMM:           710,
				HubSizeMM:           665,
				AvailableBladeQtys:  []int{8, 10, 12},
				MassPerBladeKG:      1.2,
				AvailableComponents: []int64{10, 11},
			},
		},
		comps: map[int64]*model.Component{
			10: {ID: 10, Name: "Rotor", Code: "ROT"},
			11: {ID: 11, Name: "Casing", Code: "CAS"},
		},
		params: map[[2]int64]*model.FanComponentParameter{
			{1, 10}: {
				FanConfigurationID: 1,
				ComponentID:        10,
				MassFormulaType:    model.MassRotorEmpirical,
				DefaultThicknessMM: 1,
				DefaultWasteFactor: 0.1,
				MaterialName:       "Mild Steel",
				LabourRateName:     "Fabrication",
			},
			{1, 11}: {
				FanConfigurationID: 1,
				ComponentID:        11,
				MassFormulaType:    model.MassCylinderSurface,
				LengthMM:           &length,
				DefaultThicknessMM: 5,
				DefaultWasteFactor: 0.12,
				MaterialName:       "Mild Steel",
				LabourRateName:     "Fabrication",
			},
		},
		materials: map[string]*model.Material{
			"Mild Steel": {ID: 1, Name: "Mild Steel", CostPerUnit: 1.1, CostUnit: "kg", DensityKGM3: 7850},
		},
		rates: map[string]*model.LabourRate{
			"Fabrication": {ID: 1, Name: "Fabrication", RatePerHour: 30, ProductivityKGPerDay: 250},
		},
		motors: map[int64]*model.Motor{
			5: {ID: 5, SupplierName: "WEG", MotorRange: "W22", RatedOutputKW: 15, Poles: 4, SpeedRPM: 1470},
		},
		prices: map[int64]*model.MotorPrice{
			5: {ID: 1, MotorID: 5, FlangePrice: &flange, DateEffective: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		discounts: map[string][]model.MotorSupplierDiscount{
			"WEG": {{ID: 1, SupplierName: "WEG", DiscountPct: 10, DateEffective: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}},
		},
	}
}

func testDefaults() calc.Defaults {
	return calc.Defaults{ComponentMarkup: 1.4, MotorMarkup: 1.2, HoursPerDay: 8}
}

// expectedRotorCost chains the same arithmetic the calculator performs for
// the rotor fixture: empirical mass, 10% waste, material and labour rates,
// then markup.
func expectedRotorCost(bladeQty int, markup float64) float64 {
	ideal := 19.5*2 + 8.6 + 2 + float64(bladeQty)*1.2 + 5
	feedstock := ideal * 1.1
	material := feedstock * 1.1
	labour := ideal / 250 * 8 * 30
	return (material + labour) * markup
}

// expectedCasingCost does the same for the casing fixture: 665mm diameter
// cylinder, 500mm stored length, 5mm plate, 12% waste.
func expectedCasingCost(markup float64) float64 {
	ideal := math.Pi * 665 * 500 * 5 * 7850 / 1e9
	feedstock := ideal * 1.12
	material := feedstock * 1.1
	labour := ideal / 250 * 8 * 30
	return (material + labour) * markup
}

func TestCalculateQuoteFull(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	thirty := 30.0
	res, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Components: []model.ComponentEntry{
			{ComponentID: 10},
			{ComponentID: 11},
		},
		Motor: &model.MotorSelection{MotorID: 5, MountType: model.MountFlange},
		Buyouts: []model.BuyoutItem{
			{Description: "Anti-vibration mounts", UnitCost: 25, Qty: 4},
			{Description: "Flexible connector", UnitCost: 999, Qty: 1, Subtotal: &thirty},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Components, 2)
	assert.Equal(t, int64(10), res.Components[0].ComponentID)
	assert.Equal(t, int64(11), res.Components[1].ComponentID)
	assert.Equal(t, "AX-0710", res.FanUID)

	require.InEpsilon(t, expectedRotorCost(10, 1.4), res.Components[0].TotalCostAfterMarkup, 1e-9)
	require.InEpsilon(t, expectedCasingCost(1.4), res.Components[1].TotalCostAfterMarkup, 1e-9)

	require.NotNil(t, res.Motor)
	assert.Equal(t, 1000.0, res.Motor.BasePrice)
	assert.Equal(t, 10.0, res.Motor.DiscountPct)
	assert.False(t, res.Motor.DiscountIsOverride)
	assert.Equal(t, 900.0, res.Motor.DiscountedPrice)
	assert.Equal(t, 1080.0, res.Motor.FinalPrice)

	require.Len(t, res.Buyouts, 2)
	assert.Equal(t, 100.0, res.Buyouts[0].Subtotal)
	assert.Equal(t, 30.0, res.Buyouts[1].Subtotal, "pre-supplied subtotal is authoritative")

	wantComponents := calc.RoundCurrency(expectedRotorCost(10, 1.4) + expectedCasingCost(1.4))
	assert.Equal(t, wantComponents, res.Totals.Components)
	assert.Equal(t, 1080.0, res.Totals.Motor)
	assert.Equal(t, 130.0, res.Totals.Buyouts)
	assert.Equal(t, calc.RoundCurrency(wantComponents+1080+130), res.Totals.GrandTotal)
}

func TestCalculateQuoteEmptySelection(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	res, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Buyouts:            []model.BuyoutItem{{Description: "Guard", UnitCost: 45, Qty: 2}},
	})
	require.NoError(t, err)

	assert.Empty(t, res.Components)
	assert.Nil(t, res.Motor)
	assert.Equal(t, 0.0, res.Totals.Components)
	assert.Equal(t, 0.0, res.Totals.Motor)
	assert.Equal(t, 90.0, res.Totals.Buyouts)
	assert.Equal(t, 90.0, res.Totals.GrandTotal)
}

func TestCalculateQuoteComponentNotAvailable(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	_, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Components:         []model.ComponentEntry{{ComponentID: 10}, {ComponentID: 99}},
	})
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))
}

func TestCalculateQuoteFanNotFound(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	_, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{FanConfigurationID: 42})
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestCalculateQuoteMarkupOverride(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	res, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Components:         []model.ComponentEntry{{ComponentID: 10}},
		MarkupOverride:     ptr(2.0),
	})
	require.NoError(t, err)
	require.InEpsilon(t, expectedRotorCost(10, 2.0), res.Components[0].TotalCostAfterMarkup, 1e-9)

	_, err = eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		Components:         []model.ComponentEntry{{ComponentID: 10}},
		MarkupOverride:     ptr(0.8),
	})
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))
}

func TestCalculateQuotePerComponentOverrideWins(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	res, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Components: []model.ComponentEntry{
			{ComponentID: 10, ComponentOverrides: model.ComponentOverrides{Markup: ptr(1.1)}},
			{ComponentID: 11},
		},
		MarkupOverride: ptr(2.0),
	})
	require.NoError(t, err)
	require.InEpsilon(t, expectedRotorCost(10, 1.1), res.Components[0].TotalCostAfterMarkup, 1e-9)
	require.InEpsilon(t, expectedCasingCost(2.0), res.Components[1].TotalCostAfterMarkup, 1e-9)
}

func TestCalculateQuoteSettingsOverlayDefaults(t *testing.T) {
	repo := newTestRepo()
	repo.settings = []model.GlobalSetting{{Name: "default_markup", Value: "1.5"}}
	eng := NewEngine(repo, testDefaults())

	res, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Components:         []model.ComponentEntry{{ComponentID: 10}},
	})
	require.NoError(t, err)
	require.InEpsilon(t, expectedRotorCost(10, 1.5), res.Components[0].TotalCostAfterMarkup, 1e-9)
}

func TestCalculateQuoteMotorDiscountOverride(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	res, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Motor: &model.MotorSelection{
			MotorID:                  5,
			MountType:                model.MountFlange,
			SupplierDiscountOverride: ptr(25.0),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Motor)
	assert.True(t, res.Motor.DiscountIsOverride)
	assert.Equal(t, 750.0, res.Motor.DiscountedPrice)
	assert.Equal(t, 900.0, res.Motor.FinalPrice)
}

func TestCalculateQuoteMotorMountNotOffered(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	_, err := eng.CalculateQuote(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Motor:              &model.MotorSelection{MotorID: 5, MountType: model.MountFoot},
	})
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err), "missing mount price column is a not-found condition")
}

func TestComponentsSummary(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	sum, err := eng.ComponentsSummary(context.Background(), model.QuoteRequest{
		FanConfigurationID: 1,
		BladeQuantity:      10,
		Components:         []model.ComponentEntry{{ComponentID: 10}, {ComponentID: 11}},
		Buyouts:            []model.BuyoutItem{{Description: "Guard", UnitCost: 45, Qty: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, "AX-0710", sum.FanUID)
	require.Len(t, sum.Components, 2)
	want := calc.RoundCurrency(expectedRotorCost(10, 1.4) + expectedCasingCost(1.4))
	assert.Equal(t, want, sum.ComponentsTotal)
	assert.Equal(t, 90.0, sum.BuyoutTotal)
}

func TestCalculateComponentSingle(t *testing.T) {
	eng := NewEngine(newTestRepo(), testDefaults())

	res, err := eng.CalculateComponent(context.Background(), model.ComponentRequest{
		FanConfigurationID: 1,
		ComponentID:        11,
		BladeQuantity:      10,
		ComponentOverrides: model.ComponentOverrides{Markup: ptr(1.25)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Casing", res.Name)
	require.InEpsilon(t, expectedCasingCost(1.25), res.TotalCostAfterMarkup, 1e-9)
}
