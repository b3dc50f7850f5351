// Package calc implements the per-component mass/cost calculators and the
// motor pricing pipeline. Everything here is a pure function of its inputs:
// the same inputs always produce the same result, so failures are never
// retried.
package calc

import (
	"strconv"

	"github.com/axialworks/fanquote/internal/model"
)

// Setting names recognised from the global settings store.
const (
	SettingDefaultMarkup      = "default_markup"
	SettingDefaultMotorMarkup = "default_motor_markup"
	SettingHoursPerDay        = "working_hours_per_day"
)

// Defaults carries the resolved pricing defaults for one calculation run.
// It is built once per request and passed explicitly; the engine keeps no
// global mutable settings state.
type Defaults struct {
	ComponentMarkup float64
	MotorMarkup     float64
	HoursPerDay     float64
}

// ResolveDefaults overlays global settings rows onto the compile-time base
// defaults. Unparseable or non-positive values are ignored in favour of the
// base; a request-supplied markup override always wins later, in the
// calculators themselves.
func ResolveDefaults(base Defaults, settings []model.GlobalSetting) Defaults {
	out := base
	for _, s := range settings {
		v, err := strconv.ParseFloat(s.Value, 64)
		if err != nil || v <= 0 {
			continue
		}
		switch s.Name {
		case SettingDefaultMarkup:
			out.ComponentMarkup = v
		case SettingDefaultMotorMarkup:
			out.MotorMarkup = v
		case SettingHoursPerDay:
			out.HoursPerDay = v
		}
	}
	return out
}
