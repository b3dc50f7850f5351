package calc

import (
	"math"

	"github.com/axialworks/fanquote/internal/model"
)

// silencerWallMM is the silencer wall allowance added on each side of the
// fan casing diameter.
const silencerWallMM = 75

// Geometry is the fully resolved physical description of one component on
// one fan: every formula-driven value has been reduced to a concrete number.
type Geometry struct {
	DiameterMM       float64
	StartDiameterMM  float64
	EndDiameterMM    float64
	LengthMM         float64
	StiffeningFactor float64
	HubSizeMM        float64
	BladeQuantity    int
	MassPerBladeKG   float64
}

// ResolveGeometry reduces the formula-driven fields of a fan/component
// parameter row to concrete numbers for the given fan configuration.
func ResolveGeometry(fan *model.FanConfiguration, p *model.FanComponentParameter, bladeQty int) (Geometry, error) {
	g := Geometry{
		HubSizeMM:      fan.HubSizeMM,
		BladeQuantity:  bladeQty,
		MassPerBladeKG: fan.MassPerBladeKG,
	}

	// DiameterMM is the primary diameter used by cylindrical mass formulas;
	// cone formulas use the start/end pair. The expansion formulas take the
	// large end as primary, the 60-degree cone the mid-span average.
	switch p.DiameterFormula {
	case model.DiameterHub, "":
		g.StartDiameterMM = fan.HubSizeMM
		g.EndDiameterMM = fan.HubSizeMM
		g.DiameterMM = fan.HubSizeMM
	case model.DiameterHubX135:
		g.StartDiameterMM = fan.HubSizeMM
		g.EndDiameterMM = fan.HubSizeMM * 1.35
		g.DiameterMM = g.EndDiameterMM
	case model.DiameterHubX125:
		g.StartDiameterMM = fan.HubSizeMM
		g.EndDiameterMM = fan.HubSizeMM * 1.25
		g.DiameterMM = g.EndDiameterMM
	case model.DiameterConical60:
		// Large-end ratio taken from the measured inlet cone data.
		g.StartDiameterMM = fan.HubSizeMM
		g.EndDiameterMM = fan.HubSizeMM * 1.288
		g.DiameterMM = (g.StartDiameterMM + g.EndDiameterMM) / 2
	case model.DiameterHubPlusWall:
		d := fan.FanSizeMM + 2*silencerWallMM
		g.StartDiameterMM = d
		g.EndDiameterMM = d
		g.DiameterMM = d
	default:
		return Geometry{}, model.ConfigErrorf("unknown diameter formula type %q", p.DiameterFormula)
	}

	switch {
	case p.LengthMM != nil:
		g.LengthMM = *p.LengthMM
	case p.LengthFormula == model.LengthConical15:
		g.LengthMM = (0.08 * fan.HubSizeMM) / math.Tan(15*math.Pi/180)
	case p.LengthFormula == model.LengthConical35:
		g.LengthMM = (0.125 * fan.HubSizeMM) / math.Tan(3.5*math.Pi/180)
	case p.LengthFormula == model.LengthMultiplier:
		if p.LengthMult <= 0 {
			return Geometry{}, model.ConfigErrorf("length multiplier must be positive, got %v", p.LengthMult)
		}
		g.LengthMM = fan.FanSizeMM * p.LengthMult
	case p.LengthFormula != "":
		return Geometry{}, model.ConfigErrorf("unknown length formula type %q", p.LengthFormula)
	}

	switch {
	case p.StiffeningFactor != nil:
		g.StiffeningFactor = *p.StiffeningFactor
	case p.StiffeningFormula == model.StiffeningLinearHubA:
		g.StiffeningFactor = 1 + (0.115*fan.HubSizeMM-124)/100
	case p.StiffeningFormula != "":
		return Geometry{}, model.ConfigErrorf("unknown stiffening formula type %q", p.StiffeningFormula)
	default:
		g.StiffeningFactor = 1.0
	}
	if g.StiffeningFactor < 1.0 {
		return Geometry{}, model.ConfigErrorf("stiffening factor must be >= 1.0, got %v", g.StiffeningFactor)
	}

	return g, nil
}
