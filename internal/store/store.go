// Package store provides the Parameter Repository: reference data reads
// (fan configurations, components, materials, rates, motors) and saved
// quote persistence, backed by SQLite or Postgres.
package store

import (
	"context"
	"time"

	"github.com/axialworks/fanquote/internal/model"
)

// QuoteFilter specifies criteria for listing saved quotes.
type QuoteFilter struct {
	Status     model.QuoteStatus `json:"status,omitempty"`
	ClientName string            `json:"client_name,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
}

// MotorFilter specifies criteria for listing motors.
type MotorFilter struct {
	SupplierName string  `json:"supplier_name,omitempty"`
	Poles        int     `json:"poles,omitempty"`
	MinKW        float64 `json:"min_kw,omitempty"`
	MaxKW        float64 `json:"max_kw,omitempty"`
}

// Store defines the persistence interface for the quoting engine. Reference
// data reads return model.NotFoundError when no row matches.
type Store interface {
	// Fan configurations and components
	FanConfigurations(ctx context.Context) ([]model.FanConfiguration, error)
	FanConfiguration(ctx context.Context, id int64) (*model.FanConfiguration, error)
	FanConfigurationByUID(ctx context.Context, uid string) (*model.FanConfiguration, error)
	Component(ctx context.Context, id int64) (*model.Component, error)
	ComponentsForFan(ctx context.Context, fanID int64) ([]model.Component, error)
	ComponentParameter(ctx context.Context, fanID, componentID int64) (*model.FanComponentParameter, error)

	// Materials, rates and settings
	MaterialByName(ctx context.Context, name string) (*model.Material, error)
	LabourRateByName(ctx context.Context, name string) (*model.LabourRate, error)
	GlobalSettings(ctx context.Context) ([]model.GlobalSetting, error)
	SetGlobalSetting(ctx context.Context, name, value string) error

	// Motors
	Motor(ctx context.Context, id int64) (*model.Motor, error)
	Motors(ctx context.Context, filter MotorFilter) ([]model.MotorWithPrice, error)
	MotorPriceAt(ctx context.Context, motorID int64, at time.Time) (*model.MotorPrice, error)
	SupplierDiscounts(ctx context.Context, supplierName string) ([]model.MotorSupplierDiscount, error)

	// Saved quotes
	CreateQuote(ctx context.Context, q *model.SavedQuote) (*model.SavedQuote, error)
	GetQuote(ctx context.Context, id string) (*model.SavedQuote, error)
	ListQuotes(ctx context.Context, filter QuoteFilter) ([]model.SavedQuoteSummary, error)
	QuoteRevisions(ctx context.Context, quoteRef string) ([]model.SavedQuoteSummary, error)
	UpdateQuoteStatus(ctx context.Context, id string, status model.QuoteStatus) error

	// Seeding / price import
	UpsertFanConfiguration(ctx context.Context, fc *model.FanConfiguration) error
	UpsertComponent(ctx context.Context, c *model.Component) error
	UpsertComponentParameter(ctx context.Context, p *model.FanComponentParameter) error
	UpsertMaterial(ctx context.Context, m *model.Material) error
	UpsertLabourRate(ctx context.Context, r *model.LabourRate) error
	UpsertMotor(ctx context.Context, m *model.Motor) error
	InsertMotorPrice(ctx context.Context, p *model.MotorPrice) error
	InsertSupplierDiscount(ctx context.Context, d *model.MotorSupplierDiscount) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
