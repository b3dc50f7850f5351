// Package quote orchestrates the component calculator, the motor pricing
// pipeline and buy-out items into full quote responses.
package quote

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/axialworks/fanquote/internal/calc"
	"github.com/axialworks/fanquote/internal/model"
)

// Repository is the read view of reference data one quote calculation needs.
// *store.SQLiteStore and *store.PostgresStore satisfy it.
type Repository interface {
	FanConfiguration(ctx context.Context, id int64) (*model.FanConfiguration, error)
	Component(ctx context.Context, id int64) (*model.Component, error)
	ComponentParameter(ctx context.Context, fanID, componentID int64) (*model.FanComponentParameter, error)
	MaterialByName(ctx context.Context, name string) (*model.Material, error)
	LabourRateByName(ctx context.Context, name string) (*model.LabourRate, error)
	GlobalSettings(ctx context.Context) ([]model.GlobalSetting, error)
	Motor(ctx context.Context, id int64) (*model.Motor, error)
	MotorPriceAt(ctx context.Context, motorID int64, at time.Time) (*model.MotorPrice, error)
	SupplierDiscounts(ctx context.Context, supplierName string) ([]model.MotorSupplierDiscount, error)
}

// Engine aggregates per-component calculations, motor pricing and buy-outs
// into quote totals. It holds no mutable state; each call reads reference
// data through the repository and returns a fully populated result or an
// error, never a partial result.
type Engine struct {
	repo Repository
	base calc.Defaults
}

// NewEngine creates an Engine with the configured base defaults. Global
// settings rows overlay the base per request, so setting changes take
// effect without a restart.
func NewEngine(repo Repository, base calc.Defaults) *Engine {
	return &Engine{repo: repo, base: base}
}

// CalculateComponent runs a single-component calculation.
func (e *Engine) CalculateComponent(ctx context.Context, req model.ComponentRequest) (*model.ComponentResult, error) {
	fan, err := e.repo.FanConfiguration(ctx, req.FanConfigurationID)
	if err != nil {
		return nil, err
	}
	defs, err := e.defaults(ctx)
	if err != nil {
		return nil, err
	}
	entry := model.ComponentEntry{ComponentID: req.ComponentID, ComponentOverrides: req.ComponentOverrides}
	in, err := e.componentInput(ctx, fan, entry, req.BladeQuantity, defs)
	if err != nil {
		return nil, err
	}
	res, err := calc.Component(in)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CalculateQuote runs a full quote: every selected component, the optional
// motor, and the buy-out items. Component calculations run concurrently;
// results keep the selection order.
func (e *Engine) CalculateQuote(ctx context.Context, req model.QuoteRequest) (*model.QuoteResult, error) {
	fan, defs, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	components, err := e.calculateComponents(ctx, fan, req, defs)
	if err != nil {
		return nil, err
	}

	var motor *model.MotorPriceResult
	if req.Motor != nil {
		motor, err = e.priceMotor(ctx, req.Motor, defs, effectiveDate(req))
		if err != nil {
			return nil, err
		}
	}

	buyouts := buyoutLines(req.Buyouts)

	totals := model.QuoteTotals{
		Components: calc.RoundCurrency(sumComponents(components)),
		Buyouts:    calc.RoundCurrency(sumBuyouts(buyouts)),
	}
	if motor != nil {
		totals.Motor = motor.FinalPrice
	}
	totals.GrandTotal = calc.RoundCurrency(totals.Components + totals.Motor + totals.Buyouts)

	return &model.QuoteResult{
		FanUID:        fan.UID,
		BladeQuantity: req.BladeQuantity,
		Components:    components,
		Motor:         motor,
		Buyouts:       buyouts,
		Totals:        totals,
	}, nil
}

// ComponentsSummary recalculates only the components and buy-out subtrees.
// It never requires a motor selection.
func (e *Engine) ComponentsSummary(ctx context.Context, req model.QuoteRequest) (*model.ComponentsSummary, error) {
	fan, defs, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	components, err := e.calculateComponents(ctx, fan, req, defs)
	if err != nil {
		return nil, err
	}
	return &model.ComponentsSummary{
		FanUID:          fan.UID,
		Components:      components,
		ComponentsTotal: calc.RoundCurrency(sumComponents(components)),
		BuyoutTotal:     calc.RoundCurrency(sumBuyouts(buyoutLines(req.Buyouts))),
	}, nil
}

func (e *Engine) prepare(ctx context.Context, req model.QuoteRequest) (*model.FanConfiguration, calc.Defaults, error) {
	fan, err := e.repo.FanConfiguration(ctx, req.FanConfigurationID)
	if err != nil {
		return nil, calc.Defaults{}, err
	}
	defs, err := e.defaults(ctx)
	if err != nil {
		return nil, calc.Defaults{}, err
	}
	if req.MarkupOverride != nil {
		if *req.MarkupOverride < 1.0 {
			return nil, calc.Defaults{}, model.ConfigErrorf(
				"quote markup override must be >= 1.0, got %v", *req.MarkupOverride)
		}
		defs.ComponentMarkup = *req.MarkupOverride
	}
	return fan, defs, nil
}

func (e *Engine) defaults(ctx context.Context) (calc.Defaults, error) {
	settings, err := e.repo.GlobalSettings(ctx)
	if err != nil {
		return calc.Defaults{}, eris.Wrap(err, "quote: load global settings")
	}
	return calc.ResolveDefaults(e.base, settings), nil
}

// calculateComponents evaluates every selected component concurrently. Each
// calculation only reads reference data, so the goroutines need no
// coordination beyond the slot they write into.
func (e *Engine) calculateComponents(ctx context.Context, fan *model.FanConfiguration, req model.QuoteRequest, defs calc.Defaults) ([]model.ComponentResult, error) {
	results := make([]model.ComponentResult, len(req.Components))

	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range req.Components {
		g.Go(func() error {
			in, err := e.componentInput(gctx, fan, entry, req.BladeQuantity, defs)
			if err != nil {
				return err
			}
			res, err := calc.Component(in)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) componentInput(ctx context.Context, fan *model.FanConfiguration, entry model.ComponentEntry, bladeQty int, defs calc.Defaults) (calc.ComponentInput, error) {
	if !fan.HasComponent(entry.ComponentID) {
		return calc.ComponentInput{}, model.ConfigErrorf(
			"component %d is not available on fan configuration %s", entry.ComponentID, fan.UID)
	}
	comp, err := e.repo.Component(ctx, entry.ComponentID)
	if err != nil {
		return calc.ComponentInput{}, err
	}
	params, err := e.repo.ComponentParameter(ctx, fan.ID, entry.ComponentID)
	if err != nil {
		return calc.ComponentInput{}, err
	}
	material, err := e.repo.MaterialByName(ctx, params.MaterialName)
	if err != nil {
		return calc.ComponentInput{}, err
	}
	labour, err := e.repo.LabourRateByName(ctx, params.LabourRateName)
	if err != nil {
		return calc.ComponentInput{}, err
	}
	return calc.ComponentInput{
		Fan:           fan,
		Component:     comp,
		Params:        params,
		Material:      material,
		Labour:        labour,
		BladeQuantity: bladeQty,
		Overrides:     entry.ComponentOverrides,
		Defaults:      defs,
	}, nil
}

func (e *Engine) priceMotor(ctx context.Context, sel *model.MotorSelection, defs calc.Defaults, effective time.Time) (*model.MotorPriceResult, error) {
	motor, err := e.repo.Motor(ctx, sel.MotorID)
	if err != nil {
		return nil, err
	}
	price, err := e.repo.MotorPriceAt(ctx, sel.MotorID, effective)
	if err != nil {
		return nil, err
	}
	base, err := calc.SelectMountPrice(price, sel.MountType)
	if err != nil {
		return nil, err
	}
	discounts, err := e.repo.SupplierDiscounts(ctx, motor.SupplierName)
	if err != nil {
		return nil, err
	}
	pct, isOverride, err := calc.ResolveDiscount(sel.SupplierDiscountOverride, discounts, effective)
	if err != nil {
		return nil, err
	}
	markup := defs.MotorMarkup
	if sel.MarkupOverride != nil {
		markup = *sel.MarkupOverride
	}
	res, err := calc.Motor(motor, base, sel.MountType, pct, isOverride, markup)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func effectiveDate(req model.QuoteRequest) time.Time {
	if req.EffectiveDate.IsZero() {
		return time.Now().UTC()
	}
	return req.EffectiveDate
}

func buyoutLines(items []model.BuyoutItem) []model.BuyoutLine {
	lines := make([]model.BuyoutLine, len(items))
	for i, item := range items {
		lines[i] = model.BuyoutLine{
			Description: item.Description,
			UnitCost:    item.UnitCost,
			Qty:         item.Qty,
			Subtotal:    item.Total(),
		}
	}
	return lines
}

func sumComponents(results []model.ComponentResult) float64 {
	var total float64
	for _, r := range results {
		total += r.TotalCostAfterMarkup
	}
	return total
}

func sumBuyouts(lines []model.BuyoutLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.Subtotal
	}
	return total
}
