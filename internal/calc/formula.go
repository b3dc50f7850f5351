package calc

import (
	"math"

	"github.com/axialworks/fanquote/internal/model"
)

// massFormula computes the idealized (pre-stiffening) mass in kg for one
// component geometry. Each mass formula type has exactly one variant; adding
// a new fan geometry means adding one variant here, nothing else changes.
type massFormula interface {
	idealMass(g Geometry, thicknessMM, densityKGM3 float64) (float64, error)
}

// formulaFor dispatches a mass formula tag to its calculator. Unknown tags
// are a configuration problem, never a silent default.
func formulaFor(t model.MassFormula) (massFormula, error) {
	switch t {
	case model.MassCylinderSurface:
		return cylinderSurface{}, nil
	case model.MassConeSurface:
		return coneSurface{}, nil
	case model.MassSCD:
		return scdMass{}, nil
	case model.MassRotorEmpirical:
		return rotorEmpirical{}, nil
	default:
		return nil, model.ConfigErrorf("unknown mass formula type %q", string(t))
	}
}

// cylinderSurface models a rolled cylindrical shell: surface area times
// plate thickness times material density.
type cylinderSurface struct{}

func (cylinderSurface) idealMass(g Geometry, thicknessMM, densityKGM3 float64) (float64, error) {
	if err := requirePositive(g.DiameterMM, "diameter"); err != nil {
		return 0, err
	}
	if err := requirePositive(g.LengthMM, "length"); err != nil {
		return 0, err
	}
	return math.Pi * g.DiameterMM * g.LengthMM * thicknessMM * densityKGM3 / 1e9, nil
}

// coneSurface models a conical shell using the average-diameter method.
type coneSurface struct{}

func (coneSurface) idealMass(g Geometry, thicknessMM, densityKGM3 float64) (float64, error) {
	if err := requirePositive(g.StartDiameterMM, "start diameter"); err != nil {
		return 0, err
	}
	if err := requirePositive(g.EndDiameterMM, "end diameter"); err != nil {
		return 0, err
	}
	if err := requirePositive(g.LengthMM, "length"); err != nil {
		return 0, err
	}
	avg := (g.StartDiameterMM + g.EndDiameterMM) / 2
	return math.Pi * avg * g.LengthMM * thicknessMM * densityKGM3 / 1e9, nil
}

// scdMass models the self-closing door: a cylindrical shell plus one end
// plate.
type scdMass struct{}

func (scdMass) idealMass(g Geometry, thicknessMM, densityKGM3 float64) (float64, error) {
	if err := requirePositive(g.DiameterMM, "diameter"); err != nil {
		return 0, err
	}
	if err := requirePositive(g.LengthMM, "length"); err != nil {
		return 0, err
	}
	shell := math.Pi * g.DiameterMM * g.LengthMM
	endPlate := math.Pi / 4 * g.DiameterMM * g.DiameterMM
	return (shell + endPlate) * thicknessMM * densityKGM3 / 1e9, nil
}

// rotorEmpirical is a parametrised regression over hub size and blade count,
// fitted against measured rotor assemblies. It is independent of plate
// thickness and material density.
type rotorEmpirical struct{}

func (rotorEmpirical) idealMass(g Geometry, _, _ float64) (float64, error) {
	if err := requirePositive(g.HubSizeMM, "hub size"); err != nil {
		return 0, err
	}
	if g.BladeQuantity <= 0 {
		return 0, model.ConfigErrorf("blade quantity must be positive, got %d", g.BladeQuantity)
	}
	scale := (g.HubSizeMM / 665) * (g.HubSizeMM / 665)
	return 19.5*scale*2 + 8.6 + 2 + float64(g.BladeQuantity)*g.MassPerBladeKG + 5*scale, nil
}

func requirePositive(v float64, name string) error {
	if v <= 0 {
		return model.ConfigErrorf("%s must be positive, got %v", name, v)
	}
	return nil
}
