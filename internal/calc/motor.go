package calc

import (
	"math"
	"time"

	"github.com/axialworks/fanquote/internal/model"
)

// RoundCurrency rounds to two decimal places, the precision of every stored
// price.
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

// SelectMountPrice picks the price column for the requested mount type from
// a price row. A missing column means the supplier does not offer that mount
// style for the motor.
func SelectMountPrice(price *model.MotorPrice, mount model.MountType) (float64, error) {
	if !mount.Valid() {
		return 0, model.ConfigErrorf("unknown mount type %q", string(mount))
	}
	var p *float64
	switch mount {
	case model.MountFlange:
		p = price.FlangePrice
	case model.MountFoot:
		p = price.FootPrice
	}
	if p == nil {
		return 0, model.NotFound(string(mount)+" price for motor", price.MotorID)
	}
	return *p, nil
}

// ResolveDiscount returns the effective supplier discount percentage. A
// request override takes precedence; otherwise the most recent active
// discount at or before the effective date applies, defaulting to 0% when
// the supplier has none.
func ResolveDiscount(override *float64, discounts []model.MotorSupplierDiscount, effective time.Time) (pct float64, isOverride bool, err error) {
	if override != nil {
		if *override < 0 || *override > 100 {
			return 0, false, model.ConfigErrorf("supplier discount override must be between 0 and 100, got %v", *override)
		}
		return *override, true, nil
	}
	var best *model.MotorSupplierDiscount
	for i := range discounts {
		d := &discounts[i]
		if d.DateEffective.After(effective) {
			continue
		}
		if best == nil || d.DateEffective.After(best.DateEffective) {
			best = d
		}
	}
	if best == nil {
		return 0, false, nil
	}
	return best.DiscountPct, false, nil
}

// Motor prices a motor. The order of operations is a contract: the supplier
// discount applies to the base price first and the result is rounded to
// currency precision, then the markup multiplies the discounted price.
// Applying markup first lands on a different rounding path and a different
// final price.
func Motor(motor *model.Motor, basePrice float64, mount model.MountType, discountPct float64, discountIsOverride bool, markup float64) (model.MotorPriceResult, error) {
	if discountPct < 0 || discountPct > 100 {
		return model.MotorPriceResult{}, model.ConfigErrorf("supplier discount must be between 0 and 100, got %v", discountPct)
	}
	if markup < 1.0 {
		return model.MotorPriceResult{}, model.ConfigErrorf("motor markup must be >= 1.0, got %v", markup)
	}

	discounted := RoundCurrency(basePrice * (1 - discountPct/100))
	final := RoundCurrency(discounted * markup)

	return model.MotorPriceResult{
		MotorID:            motor.ID,
		SupplierName:       motor.SupplierName,
		MountType:          mount,
		BasePrice:          basePrice,
		DiscountPct:        discountPct,
		DiscountIsOverride: discountIsOverride,
		DiscountedPrice:    discounted,
		MarkupApplied:      markup,
		FinalPrice:         final,
	}, nil
}
