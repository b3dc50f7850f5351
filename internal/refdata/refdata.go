// Package refdata loads reference data fixtures from YAML and seeds them
// into a store: fan configurations, components and their per-fan parameters,
// materials, labour rates, settings, motors and their price history.
package refdata

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/axialworks/fanquote/internal/model"
)

// Seeder is the slice of the store the loader writes through.
type Seeder interface {
	UpsertFanConfiguration(ctx context.Context, fc *model.FanConfiguration) error
	UpsertComponent(ctx context.Context, c *model.Component) error
	UpsertComponentParameter(ctx context.Context, p *model.FanComponentParameter) error
	UpsertMaterial(ctx context.Context, m *model.Material) error
	UpsertLabourRate(ctx context.Context, r *model.LabourRate) error
	UpsertMotor(ctx context.Context, m *model.Motor) error
	InsertMotorPrice(ctx context.Context, p *model.MotorPrice) error
	InsertSupplierDiscount(ctx context.Context, d *model.MotorSupplierDiscount) error
	SetGlobalSetting(ctx context.Context, name, value string) error
}

// Set is one fixture file's worth of reference data.
type Set struct {
	Fans       []FanFixture       `yaml:"fans"`
	Components []ComponentFixture `yaml:"components"`
	Parameters []ParameterFixture `yaml:"parameters"`
	Materials  []MaterialFixture  `yaml:"materials"`
	Labour     []LabourFixture    `yaml:"labour_rates"`
	Settings   map[string]string  `yaml:"settings"`
	Motors     []MotorFixture     `yaml:"motors"`
	Discounts  []DiscountFixture  `yaml:"supplier_discounts"`
}

type FanFixture struct {
	ID                     int64   `yaml:"id"`
	UID                    string  `yaml:"uid"`
	FanSizeMM              float64 `yaml:"fan_size_mm"`
	HubSizeMM              float64 `yaml:"hub_size_mm"`
	AvailableBladeQtys     []int   `yaml:"blade_qtys"`
	StatorBladeQty         int     `yaml:"stator_blade_qty"`
	BladeName              string  `yaml:"blade_name"`
	BladeMaterial          string  `yaml:"blade_material"`
	MassPerBladeKG         float64 `yaml:"mass_per_blade_kg"`
	AvailableMotorKW       []int   `yaml:"motor_kw"`
	MotorPoles             int     `yaml:"motor_poles"`
	AvailableComponents    []int64 `yaml:"available_components"`
	AutoSelectedComponents []int64 `yaml:"auto_selected_components"`
}

type ComponentFixture struct {
	ID      int64  `yaml:"id"`
	Name    string `yaml:"name"`
	Code    string `yaml:"code"`
	OrderBy string `yaml:"order_by"`
}

type ParameterFixture struct {
	FanID              int64    `yaml:"fan_id"`
	ComponentID        int64    `yaml:"component_id"`
	MassFormula        string   `yaml:"mass_formula"`
	DiameterFormula    string   `yaml:"diameter_formula"`
	LengthFormula      string   `yaml:"length_formula"`
	StiffeningFormula  string   `yaml:"stiffening_formula"`
	LengthMM           *float64 `yaml:"length_mm"`
	LengthMult         float64  `yaml:"length_multiplier"`
	StiffeningFactor   *float64 `yaml:"stiffening_factor"`
	DefaultThicknessMM float64  `yaml:"default_thickness_mm"`
	DefaultWasteFactor float64  `yaml:"default_waste_factor"`
	Material           string   `yaml:"material"`
	LabourRate         string   `yaml:"labour_rate"`
}

type MaterialFixture struct {
	ID          int64   `yaml:"id"`
	Name        string  `yaml:"name"`
	CostPerUnit float64 `yaml:"cost_per_unit"`
	CostUnit    string  `yaml:"cost_unit"`
	Currency    string  `yaml:"currency"`
	DensityKGM3 float64 `yaml:"density_kg_m3"`
}

type LabourFixture struct {
	ID                   int64   `yaml:"id"`
	Name                 string  `yaml:"name"`
	RatePerHour          float64 `yaml:"rate_per_hour"`
	ProductivityKGPerDay float64 `yaml:"productivity_kg_per_day"`
	Currency             string  `yaml:"currency"`
}

type MotorFixture struct {
	ID            int64          `yaml:"id"`
	Supplier      string         `yaml:"supplier"`
	Range         string         `yaml:"range"`
	RatedOutputKW float64        `yaml:"rated_output_kw"`
	Poles         int            `yaml:"poles"`
	SpeedRPM      int            `yaml:"speed_rpm"`
	FrameSize     string         `yaml:"frame_size"`
	Prices        []PriceFixture `yaml:"prices"`
}

type PriceFixture struct {
	Flange        *float64 `yaml:"flange"`
	Foot          *float64 `yaml:"foot"`
	DateEffective string   `yaml:"date_effective"`
}

type DiscountFixture struct {
	Supplier      string  `yaml:"supplier"`
	DiscountPct   float64 `yaml:"discount_pct"`
	DateEffective string  `yaml:"date_effective"`
}

// Load reads and validates a fixture file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: read %s", path)
	}

	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, eris.Wrap(err, "refdata: parse")
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

var massFormulas = map[string]model.MassFormula{
	string(model.MassCylinderSurface): model.MassCylinderSurface,
	string(model.MassConeSurface):     model.MassConeSurface,
	string(model.MassSCD):             model.MassSCD,
	string(model.MassRotorEmpirical):  model.MassRotorEmpirical,
}

// Validate checks referential integrity inside the set: every parameter row
// must point at a fan, a component, a material and a labour rate defined in
// the same file, and carry a known mass formula.
func (s *Set) Validate() error {
	fans := map[int64]bool{}
	for _, f := range s.Fans {
		if f.UID == "" {
			return eris.Errorf("refdata: fan %d has no uid", f.ID)
		}
		fans[f.ID] = true
	}
	components := map[int64]bool{}
	for _, c := range s.Components {
		components[c.ID] = true
	}
	materials := map[string]bool{}
	for _, m := range s.Materials {
		materials[m.Name] = true
	}
	rates := map[string]bool{}
	for _, r := range s.Labour {
		rates[r.Name] = true
	}

	for _, p := range s.Parameters {
		if !fans[p.FanID] {
			return eris.Errorf("refdata: parameter references unknown fan %d", p.FanID)
		}
		if !components[p.ComponentID] {
			return eris.Errorf("refdata: parameter references unknown component %d", p.ComponentID)
		}
		if _, ok := massFormulas[p.MassFormula]; !ok {
			return eris.Errorf("refdata: parameter (%d,%d) has unknown mass formula %q", p.FanID, p.ComponentID, p.MassFormula)
		}
		if !materials[p.Material] {
			return eris.Errorf("refdata: parameter (%d,%d) references unknown material %q", p.FanID, p.ComponentID, p.Material)
		}
		if !rates[p.LabourRate] {
			return eris.Errorf("refdata: parameter (%d,%d) references unknown labour rate %q", p.FanID, p.ComponentID, p.LabourRate)
		}
	}

	for _, m := range s.Motors {
		for _, price := range m.Prices {
			if _, err := parseDate(price.DateEffective); err != nil {
				return eris.Wrapf(err, "refdata: motor %d price date", m.ID)
			}
		}
	}
	for _, d := range s.Discounts {
		if _, err := parseDate(d.DateEffective); err != nil {
			return eris.Wrapf(err, "refdata: discount %s date", d.Supplier)
		}
	}
	return nil
}

// Seed writes the set into the store. Upserts throughout, so re-seeding an
// existing database refreshes rows in place; motor prices and discounts are
// append-only history and inserted as new rows.
func Seed(ctx context.Context, dst Seeder, set *Set) error {
	for _, m := range set.Materials {
		material := model.Material{
			ID: m.ID, Name: m.Name, CostPerUnit: m.CostPerUnit,
			CostUnit: m.CostUnit, Currency: m.Currency, DensityKGM3: m.DensityKGM3,
		}
		if err := dst.UpsertMaterial(ctx, &material); err != nil {
			return err
		}
	}
	for _, r := range set.Labour {
		rate := model.LabourRate{
			ID: r.ID, Name: r.Name, RatePerHour: r.RatePerHour,
			ProductivityKGPerDay: r.ProductivityKGPerDay, Currency: r.Currency,
		}
		if err := dst.UpsertLabourRate(ctx, &rate); err != nil {
			return err
		}
	}
	for _, c := range set.Components {
		component := model.Component{ID: c.ID, Name: c.Name, Code: c.Code, OrderBy: c.OrderBy}
		if err := dst.UpsertComponent(ctx, &component); err != nil {
			return err
		}
	}
	for _, f := range set.Fans {
		fan := model.FanConfiguration{
			ID: f.ID, UID: f.UID, FanSizeMM: f.FanSizeMM, HubSizeMM: f.HubSizeMM,
			AvailableBladeQtys: f.AvailableBladeQtys, StatorBladeQty: f.StatorBladeQty,
			BladeName: f.BladeName, BladeMaterial: f.BladeMaterial,
			MassPerBladeKG: f.MassPerBladeKG, AvailableMotorKW: f.AvailableMotorKW,
			MotorPoles:             f.MotorPoles,
			AvailableComponents:    f.AvailableComponents,
			AutoSelectedComponents: f.AutoSelectedComponents,
		}
		if err := dst.UpsertFanConfiguration(ctx, &fan); err != nil {
			return err
		}
	}
	for _, p := range set.Parameters {
		param := model.FanComponentParameter{
			FanConfigurationID: p.FanID,
			ComponentID:        p.ComponentID,
			MassFormulaType:    massFormulas[p.MassFormula],
			DiameterFormula:    model.DiameterFormula(p.DiameterFormula),
			LengthFormula:      model.LengthFormula(p.LengthFormula),
			StiffeningFormula:  model.StiffeningFormula(p.StiffeningFormula),
			LengthMM:           p.LengthMM,
			LengthMult:         p.LengthMult,
			StiffeningFactor:   p.StiffeningFactor,
			DefaultThicknessMM: p.DefaultThicknessMM,
			DefaultWasteFactor: p.DefaultWasteFactor,
			MaterialName:       p.Material,
			LabourRateName:     p.LabourRate,
		}
		if err := dst.UpsertComponentParameter(ctx, &param); err != nil {
			return err
		}
	}
	for name, value := range set.Settings {
		if err := dst.SetGlobalSetting(ctx, name, value); err != nil {
			return err
		}
	}
	for _, m := range set.Motors {
		motor := model.Motor{
			ID: m.ID, SupplierName: m.Supplier, MotorRange: m.Range,
			RatedOutputKW: m.RatedOutputKW, Poles: m.Poles,
			SpeedRPM: m.SpeedRPM, FrameSize: m.FrameSize,
		}
		if err := dst.UpsertMotor(ctx, &motor); err != nil {
			return err
		}
		for _, price := range m.Prices {
			at, err := parseDate(price.DateEffective)
			if err != nil {
				return eris.Wrapf(err, "refdata: motor %d price date", m.ID)
			}
			row := model.MotorPrice{
				MotorID: m.ID, FlangePrice: price.Flange,
				FootPrice: price.Foot, DateEffective: at,
			}
			if err := dst.InsertMotorPrice(ctx, &row); err != nil {
				return err
			}
		}
	}
	for _, d := range set.Discounts {
		at, err := parseDate(d.DateEffective)
		if err != nil {
			return eris.Wrapf(err, "refdata: discount %s date", d.Supplier)
		}
		discount := model.MotorSupplierDiscount{
			SupplierName: d.Supplier, DiscountPct: d.DiscountPct, DateEffective: at,
		}
		if err := dst.InsertSupplierDiscount(ctx, &discount); err != nil {
			return err
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	at, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "refdata: parse date %q", s)
	}
	return at.UTC(), nil
}
