package calc

import (
	"github.com/axialworks/fanquote/internal/model"
)

// ComponentInput bundles everything one component calculation needs. All
// fields are request-scoped reads of reference data; nothing is mutated.
type ComponentInput struct {
	Fan           *model.FanConfiguration
	Component     *model.Component
	Params        *model.FanComponentParameter
	Material      *model.Material
	Labour        *model.LabourRate
	BladeQuantity int
	Overrides     model.ComponentOverrides
	Defaults      Defaults
}

// Component runs the full single-component calculation: resolve effective
// thickness and waste factor, dispatch the mass formula, apply stiffening,
// waste, material and labour rates, then markup. Every intermediate value is
// carried in the result because the presentation layer renders each row.
func Component(in ComponentInput) (model.ComponentResult, error) {
	thickness := in.Params.DefaultThicknessMM
	if in.Overrides.ThicknessMM != nil {
		thickness = *in.Overrides.ThicknessMM
	}
	if thickness <= 0 {
		return model.ComponentResult{}, model.ConfigErrorf(
			"component %q: thickness must be positive, got %v", in.Component.Name, thickness)
	}

	waste := in.Params.DefaultWasteFactor
	if in.Overrides.WasteFactor != nil {
		waste = *in.Overrides.WasteFactor
	}
	if waste <= 0 || waste >= 1 {
		return model.ComponentResult{}, model.ConfigErrorf(
			"component %q: waste factor must be a fraction in (0, 1), got %v", in.Component.Name, waste)
	}

	markup := in.Defaults.ComponentMarkup
	if in.Overrides.Markup != nil {
		if *in.Overrides.Markup < 1.0 {
			return model.ComponentResult{}, model.ConfigErrorf(
				"component %q: markup override must be >= 1.0, got %v", in.Component.Name, *in.Overrides.Markup)
		}
		markup = *in.Overrides.Markup
	}

	geom, err := ResolveGeometry(in.Fan, in.Params, in.BladeQuantity)
	if err != nil {
		return model.ComponentResult{}, err
	}

	formula, err := formulaFor(in.Params.MassFormulaType)
	if err != nil {
		return model.ComponentResult{}, err
	}

	idealMass, err := formula.idealMass(geom, thickness, in.Material.DensityKGM3)
	if err != nil {
		return model.ComponentResult{}, err
	}

	realMass := idealMass * geom.StiffeningFactor
	feedstockMass := realMass * (1 + waste)
	materialCost := feedstockMass * in.Material.CostPerUnit

	if in.Labour.ProductivityKGPerDay <= 0 {
		return model.ComponentResult{}, model.ConfigErrorf(
			"labour rate %q: productivity must be positive, got %v", in.Labour.Name, in.Labour.ProductivityKGPerDay)
	}
	labourCost := realMass / in.Labour.ProductivityKGPerDay * in.Defaults.HoursPerDay * in.Labour.RatePerHour

	before := materialCost + labourCost

	return model.ComponentResult{
		ComponentID:           in.Component.ID,
		Name:                  in.Component.Name,
		OverallDiameterMM:     geom.DiameterMM,
		TotalLengthMM:         geom.LengthMM,
		MaterialThicknessMM:   thickness,
		StiffeningFactor:      geom.StiffeningFactor,
		IdealMassKG:           idealMass,
		RealMassKG:            realMass,
		FabricationWastePct:   waste * 100,
		FeedstockMassKG:       feedstockMass,
		MaterialCost:          materialCost,
		LabourCost:            labourCost,
		TotalCostBeforeMarkup: before,
		MarkupApplied:         markup,
		TotalCostAfterMarkup:  before * markup,
	}, nil
}
