package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/axialworks/fanquote/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS fan_configurations (
	id                       INTEGER PRIMARY KEY,
	uid                      TEXT NOT NULL UNIQUE,
	fan_size_mm              REAL NOT NULL,
	hub_size_mm              REAL NOT NULL,
	available_blade_qtys     TEXT NOT NULL DEFAULT '[]',
	stator_blade_qty         INTEGER NOT NULL DEFAULT 0,
	blade_name               TEXT,
	blade_material           TEXT,
	mass_per_blade_kg        REAL NOT NULL DEFAULT 0,
	available_motor_kw       TEXT NOT NULL DEFAULT '[]',
	motor_poles              INTEGER NOT NULL DEFAULT 0,
	available_components     TEXT NOT NULL DEFAULT '[]',
	auto_selected_components TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS components (
	id       INTEGER PRIMARY KEY,
	name     TEXT NOT NULL,
	code     TEXT NOT NULL,
	order_by TEXT
);

CREATE TABLE IF NOT EXISTS fan_component_parameters (
	fan_configuration_id    INTEGER NOT NULL REFERENCES fan_configurations(id),
	component_id            INTEGER NOT NULL REFERENCES components(id),
	mass_formula_type       TEXT NOT NULL,
	diameter_formula_type   TEXT,
	length_formula_type     TEXT,
	stiffening_formula_type TEXT,
	length_mm               REAL,
	length_multiplier       REAL,
	stiffening_factor       REAL,
	default_thickness_mm    REAL NOT NULL,
	default_waste_factor    REAL NOT NULL,
	material_name           TEXT NOT NULL,
	labour_rate_name        TEXT NOT NULL,
	PRIMARY KEY (fan_configuration_id, component_id)
);

CREATE TABLE IF NOT EXISTS materials (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	cost_per_unit REAL NOT NULL,
	cost_unit     TEXT NOT NULL DEFAULT 'kg',
	currency      TEXT NOT NULL DEFAULT 'GBP',
	density_kg_m3 REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS labour_rates (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	name                    TEXT NOT NULL UNIQUE,
	rate_per_hour           REAL NOT NULL,
	productivity_kg_per_day REAL NOT NULL,
	currency                TEXT NOT NULL DEFAULT 'GBP'
);

CREATE TABLE IF NOT EXISTS global_settings (
	setting_name  TEXT PRIMARY KEY,
	setting_value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS motors (
	id            INTEGER PRIMARY KEY,
	supplier_name TEXT NOT NULL,
	motor_range   TEXT,
	rated_output  REAL NOT NULL,
	poles         INTEGER NOT NULL,
	speed_rpm     INTEGER,
	frame_size    TEXT
);

CREATE TABLE IF NOT EXISTS motor_prices (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	motor_id       INTEGER NOT NULL REFERENCES motors(id),
	flange_price   REAL,
	foot_price     REAL,
	date_effective DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS motor_supplier_discounts (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	supplier_name  TEXT NOT NULL,
	discount_pct   REAL NOT NULL,
	date_effective DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_quotes (
	id                TEXT PRIMARY KEY,
	quote_ref         TEXT NOT NULL,
	revision_number   INTEGER NOT NULL,
	original_quote_id TEXT,
	status            TEXT NOT NULL DEFAULT 'draft',
	client_name       TEXT,
	project_name      TEXT,
	document          TEXT NOT NULL,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (quote_ref, revision_number)
);

CREATE INDEX IF NOT EXISTS idx_motor_prices_motor_date ON motor_prices(motor_id, date_effective DESC);
CREATE INDEX IF NOT EXISTS idx_discounts_supplier_date ON motor_supplier_discounts(supplier_name, date_effective DESC);
CREATE INDEX IF NOT EXISTS idx_saved_quotes_ref ON saved_quotes(quote_ref);
CREATE INDEX IF NOT EXISTS idx_saved_quotes_status ON saved_quotes(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const fanColumns = `id, uid, fan_size_mm, hub_size_mm, available_blade_qtys, stator_blade_qty,
	blade_name, blade_material, mass_per_blade_kg, available_motor_kw, motor_poles,
	available_components, auto_selected_components`

func (s *SQLiteStore) FanConfigurations(ctx context.Context) ([]model.FanConfiguration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fanColumns+` FROM fan_configurations ORDER BY fan_size_mm, uid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fan configurations")
	}
	defer rows.Close()

	var fans []model.FanConfiguration
	for rows.Next() {
		fc, err := scanFan(rows)
		if err != nil {
			return nil, err
		}
		fans = append(fans, *fc)
	}
	return fans, eris.Wrap(rows.Err(), "sqlite: list fan configurations")
}

func (s *SQLiteStore) FanConfiguration(ctx context.Context, id int64) (*model.FanConfiguration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fanColumns+` FROM fan_configurations WHERE id = ?`, id)
	fc, err := scanFan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("fan configuration", id)
	}
	return fc, err
}

func (s *SQLiteStore) FanConfigurationByUID(ctx context.Context, uid string) (*model.FanConfiguration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fanColumns+` FROM fan_configurations WHERE uid = ?`, uid)
	fc, err := scanFan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("fan configuration", uid)
	}
	return fc, err
}

func (s *SQLiteStore) Component(ctx context.Context, id int64) (*model.Component, error) {
	var c model.Component
	var orderBy sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, code, order_by FROM components WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Code, &orderBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("component", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get component %d", id)
	}
	c.OrderBy = orderBy.String
	return &c, nil
}

// ComponentsForFan returns the fan's available components in display order.
func (s *SQLiteStore) ComponentsForFan(ctx context.Context, fanID int64) ([]model.Component, error) {
	fan, err := s.FanConfiguration(ctx, fanID)
	if err != nil {
		return nil, err
	}
	components := make([]model.Component, 0, len(fan.AvailableComponents))
	for _, id := range fan.AvailableComponents {
		c, err := s.Component(ctx, id)
		if err != nil {
			return nil, err
		}
		components = append(components, *c)
	}
	sortComponents(components)
	return components, nil
}

func (s *SQLiteStore) ComponentParameter(ctx context.Context, fanID, componentID int64) (*model.FanComponentParameter, error) {
	var p model.FanComponentParameter
	var diameter, length, stiffening sql.NullString
	var lengthMM, lengthMult, stiffFactor sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT fan_configuration_id, component_id, mass_formula_type, diameter_formula_type,
			length_formula_type, stiffening_formula_type, length_mm, length_multiplier,
			stiffening_factor, default_thickness_mm, default_waste_factor, material_name, labour_rate_name
		FROM fan_component_parameters WHERE fan_configuration_id = ? AND component_id = ?`,
		fanID, componentID,
	).Scan(&p.FanConfigurationID, &p.ComponentID, &p.MassFormulaType, &diameter, &length,
		&stiffening, &lengthMM, &lengthMult, &stiffFactor, &p.DefaultThicknessMM,
		&p.DefaultWasteFactor, &p.MaterialName, &p.LabourRateName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("component parameters", fmt.Sprintf("%d/%d", fanID, componentID))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get parameters %d/%d", fanID, componentID)
	}
	p.DiameterFormula = model.DiameterFormula(diameter.String)
	p.LengthFormula = model.LengthFormula(length.String)
	p.StiffeningFormula = model.StiffeningFormula(stiffening.String)
	if lengthMM.Valid {
		p.LengthMM = &lengthMM.Float64
	}
	p.LengthMult = lengthMult.Float64
	if stiffFactor.Valid {
		p.StiffeningFactor = &stiffFactor.Float64
	}
	return &p, nil
}

func (s *SQLiteStore) MaterialByName(ctx context.Context, name string) (*model.Material, error) {
	var m model.Material
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, cost_per_unit, cost_unit, currency, density_kg_m3 FROM materials WHERE name = ?`, name,
	).Scan(&m.ID, &m.Name, &m.CostPerUnit, &m.CostUnit, &m.Currency, &m.DensityKGM3)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("material", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get material %s", name)
	}
	return &m, nil
}

func (s *SQLiteStore) LabourRateByName(ctx context.Context, name string) (*model.LabourRate, error) {
	var r model.LabourRate
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, rate_per_hour, productivity_kg_per_day, currency FROM labour_rates WHERE name = ?`, name,
	).Scan(&r.ID, &r.Name, &r.RatePerHour, &r.ProductivityKGPerDay, &r.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("labour rate", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get labour rate %s", name)
	}
	return &r, nil
}

func (s *SQLiteStore) GlobalSettings(ctx context.Context) ([]model.GlobalSetting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT setting_name, setting_value FROM global_settings ORDER BY setting_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list settings")
	}
	defer rows.Close()

	var settings []model.GlobalSetting
	for rows.Next() {
		var gs model.GlobalSetting
		if err := rows.Scan(&gs.Name, &gs.Value); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan setting")
		}
		settings = append(settings, gs)
	}
	return settings, eris.Wrap(rows.Err(), "sqlite: list settings")
}

func (s *SQLiteStore) SetGlobalSetting(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO global_settings (setting_name, setting_value) VALUES (?, ?)
		ON CONFLICT(setting_name) DO UPDATE SET setting_value = excluded.setting_value`,
		name, value,
	)
	return eris.Wrapf(err, "sqlite: set setting %s", name)
}

func (s *SQLiteStore) Motor(ctx context.Context, id int64) (*model.Motor, error) {
	var m model.Motor
	var rng, frame sql.NullString
	var rpm sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, supplier_name, motor_range, rated_output, poles, speed_rpm, frame_size FROM motors WHERE id = ?`, id,
	).Scan(&m.ID, &m.SupplierName, &rng, &m.RatedOutputKW, &m.Poles, &rpm, &frame)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("motor", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get motor %d", id)
	}
	m.MotorRange = rng.String
	m.SpeedRPM = int(rpm.Int64)
	m.FrameSize = frame.String
	return &m, nil
}

func (s *SQLiteStore) Motors(ctx context.Context, filter MotorFilter) ([]model.MotorWithPrice, error) {
	query := `SELECT m.id, m.supplier_name, m.motor_range, m.rated_output, m.poles, m.speed_rpm, m.frame_size,
			p.id, p.motor_id, p.flange_price, p.foot_price, p.date_effective
		FROM motors m
		LEFT JOIN motor_prices p ON p.id = (
			SELECT id FROM motor_prices WHERE motor_id = m.id ORDER BY date_effective DESC LIMIT 1
		)
		WHERE 1=1`
	args := []any{}
	if filter.SupplierName != "" {
		query += ` AND m.supplier_name = ?`
		args = append(args, filter.SupplierName)
	}
	if filter.Poles > 0 {
		query += ` AND m.poles = ?`
		args = append(args, filter.Poles)
	}
	if filter.MinKW > 0 {
		query += ` AND m.rated_output >= ?`
		args = append(args, filter.MinKW)
	}
	if filter.MaxKW > 0 {
		query += ` AND m.rated_output <= ?`
		args = append(args, filter.MaxKW)
	}
	query += ` ORDER BY m.rated_output, m.poles, m.supplier_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list motors")
	}
	defer rows.Close()

	var motors []model.MotorWithPrice
	for rows.Next() {
		var mw model.MotorWithPrice
		var rng, frame sql.NullString
		var rpm, priceID, priceMotorID sql.NullInt64
		var flange, foot sql.NullFloat64
		var effective sql.NullTime
		err := rows.Scan(&mw.ID, &mw.SupplierName, &rng, &mw.RatedOutputKW, &mw.Poles, &rpm, &frame,
			&priceID, &priceMotorID, &flange, &foot, &effective)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan motor")
		}
		mw.MotorRange = rng.String
		mw.SpeedRPM = int(rpm.Int64)
		mw.FrameSize = frame.String
		if priceID.Valid {
			mw.Price = model.MotorPrice{ID: priceID.Int64, MotorID: priceMotorID.Int64, DateEffective: effective.Time}
			if flange.Valid {
				mw.Price.FlangePrice = &flange.Float64
			}
			if foot.Valid {
				mw.Price.FootPrice = &foot.Float64
			}
		}
		motors = append(motors, mw)
	}
	return motors, eris.Wrap(rows.Err(), "sqlite: list motors")
}

// MotorPriceAt returns the price row in effect at the given time: the most
// recent row dated at or before it.
func (s *SQLiteStore) MotorPriceAt(ctx context.Context, motorID int64, at time.Time) (*model.MotorPrice, error) {
	var p model.MotorPrice
	var flange, foot sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, motor_id, flange_price, foot_price, date_effective FROM motor_prices
		WHERE motor_id = ? AND date_effective <= ? ORDER BY date_effective DESC LIMIT 1`,
		motorID, at.UTC(),
	).Scan(&p.ID, &p.MotorID, &flange, &foot, &p.DateEffective)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("motor price", motorID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get motor price %d", motorID)
	}
	if flange.Valid {
		p.FlangePrice = &flange.Float64
	}
	if foot.Valid {
		p.FootPrice = &foot.Float64
	}
	return &p, nil
}

func (s *SQLiteStore) SupplierDiscounts(ctx context.Context, supplierName string) ([]model.MotorSupplierDiscount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, supplier_name, discount_pct, date_effective FROM motor_supplier_discounts
		WHERE supplier_name = ? ORDER BY date_effective DESC`,
		supplierName,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list discounts %s", supplierName)
	}
	defer rows.Close()

	var discounts []model.MotorSupplierDiscount
	for rows.Next() {
		var d model.MotorSupplierDiscount
		if err := rows.Scan(&d.ID, &d.SupplierName, &d.DiscountPct, &d.DateEffective); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan discount")
		}
		discounts = append(discounts, d)
	}
	return discounts, eris.Wrap(rows.Err(), "sqlite: list discounts")
}

// CreateQuote persists a new quote document revision. Saving a reference
// that already exists appends the next revision number and links back to the
// first revision; existing rows are never overwritten.
func (s *SQLiteStore) CreateQuote(ctx context.Context, q *model.SavedQuote) (*model.SavedQuote, error) {
	saved := *q
	saved.ID = uuid.New().String()
	now := time.Now().UTC()
	saved.CreatedAt = now
	saved.UpdatedAt = now
	if saved.Status == "" {
		saved.Status = model.QuoteStatusDraft
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin create quote")
	}
	defer tx.Rollback()

	var maxRev int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(revision_number), 0) FROM saved_quotes WHERE quote_ref = ?`, saved.QuoteRef,
	).Scan(&maxRev)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: resolve revision %s", saved.QuoteRef)
	}
	saved.RevisionNumber = maxRev + 1
	if maxRev > 0 {
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM saved_quotes WHERE quote_ref = ? AND revision_number = 1`, saved.QuoteRef,
		).Scan(&saved.OriginalQuoteID)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: resolve original quote %s", saved.QuoteRef)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO saved_quotes (id, quote_ref, revision_number, original_quote_id, status,
			client_name, project_name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.QuoteRef, saved.RevisionNumber, nullString(saved.OriginalQuoteID),
		string(saved.Status), nullString(saved.ClientName), nullString(saved.ProjectName),
		string(saved.Document), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert quote %s", saved.QuoteRef)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit create quote")
	}
	return &saved, nil
}

func (s *SQLiteStore) GetQuote(ctx context.Context, id string) (*model.SavedQuote, error) {
	var q model.SavedQuote
	var original, client, project sql.NullString
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, quote_ref, revision_number, original_quote_id, status, client_name,
			project_name, document, created_at, updated_at
		FROM saved_quotes WHERE id = ?`, id,
	).Scan(&q.ID, &q.QuoteRef, &q.RevisionNumber, &original, &q.Status, &client,
		&project, &doc, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("quote", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get quote %s", id)
	}
	q.OriginalQuoteID = original.String
	q.ClientName = client.String
	q.ProjectName = project.String
	q.Document = json.RawMessage(doc)
	return &q, nil
}

const quoteSummaryColumns = `id, quote_ref, revision_number, status, client_name, project_name,
	COALESCE(json_extract(document, '$.calculation.derived_totals.grand_total'), 0), created_at`

func (s *SQLiteStore) ListQuotes(ctx context.Context, filter QuoteFilter) ([]model.SavedQuoteSummary, error) {
	query := `SELECT ` + quoteSummaryColumns + ` FROM saved_quotes WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ClientName != "" {
		query += ` AND client_name = ?`
		args = append(args, filter.ClientName)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET %d`, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list quotes")
	}
	defer rows.Close()
	return scanQuoteSummaries(rows)
}

func (s *SQLiteStore) QuoteRevisions(ctx context.Context, quoteRef string) ([]model.SavedQuoteSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quoteSummaryColumns+` FROM saved_quotes WHERE quote_ref = ? ORDER BY revision_number`,
		quoteRef,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list revisions %s", quoteRef)
	}
	defer rows.Close()
	return scanQuoteSummaries(rows)
}

func (s *SQLiteStore) UpdateQuoteStatus(ctx context.Context, id string, status model.QuoteStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE saved_quotes SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update quote status %s", id)
	}
	return checkRowsAffected(res, "quote", id)
}

func (s *SQLiteStore) UpsertFanConfiguration(ctx context.Context, fc *model.FanConfiguration) error {
	bladeQtys, err := json.Marshal(fc.AvailableBladeQtys)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal blade qtys")
	}
	motorKW, err := json.Marshal(fc.AvailableMotorKW)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal motor kw")
	}
	available, err := json.Marshal(fc.AvailableComponents)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal available components")
	}
	autoSelected, err := json.Marshal(fc.AutoSelectedComponents)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal auto-selected components")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fan_configurations (`+fanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uid = excluded.uid, fan_size_mm = excluded.fan_size_mm, hub_size_mm = excluded.hub_size_mm,
			available_blade_qtys = excluded.available_blade_qtys, stator_blade_qty = excluded.stator_blade_qty,
			blade_name = excluded.blade_name, blade_material = excluded.blade_material,
			mass_per_blade_kg = excluded.mass_per_blade_kg, available_motor_kw = excluded.available_motor_kw,
			motor_poles = excluded.motor_poles, available_components = excluded.available_components,
			auto_selected_components = excluded.auto_selected_components`,
		fc.ID, fc.UID, fc.FanSizeMM, fc.HubSizeMM, string(bladeQtys), fc.StatorBladeQty,
		nullString(fc.BladeName), nullString(fc.BladeMaterial), fc.MassPerBladeKG,
		string(motorKW), fc.MotorPoles, string(available), string(autoSelected),
	)
	return eris.Wrapf(err, "sqlite: upsert fan configuration %s", fc.UID)
}

func (s *SQLiteStore) UpsertComponent(ctx context.Context, c *model.Component) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO components (id, name, code, order_by) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, code = excluded.code, order_by = excluded.order_by`,
		c.ID, c.Name, c.Code, nullString(c.OrderBy),
	)
	return eris.Wrapf(err, "sqlite: upsert component %s", c.Code)
}

func (s *SQLiteStore) UpsertComponentParameter(ctx context.Context, p *model.FanComponentParameter) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fan_component_parameters (fan_configuration_id, component_id, mass_formula_type,
			diameter_formula_type, length_formula_type, stiffening_formula_type, length_mm,
			length_multiplier, stiffening_factor, default_thickness_mm, default_waste_factor,
			material_name, labour_rate_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fan_configuration_id, component_id) DO UPDATE SET
			mass_formula_type = excluded.mass_formula_type,
			diameter_formula_type = excluded.diameter_formula_type,
			length_formula_type = excluded.length_formula_type,
			stiffening_formula_type = excluded.stiffening_formula_type,
			length_mm = excluded.length_mm, length_multiplier = excluded.length_multiplier,
			stiffening_factor = excluded.stiffening_factor,
			default_thickness_mm = excluded.default_thickness_mm,
			default_waste_factor = excluded.default_waste_factor,
			material_name = excluded.material_name, labour_rate_name = excluded.labour_rate_name`,
		p.FanConfigurationID, p.ComponentID, string(p.MassFormulaType),
		nullString(string(p.DiameterFormula)), nullString(string(p.LengthFormula)),
		nullString(string(p.StiffeningFormula)), p.LengthMM, nullFloat(p.LengthMult),
		p.StiffeningFactor, p.DefaultThicknessMM, p.DefaultWasteFactor,
		p.MaterialName, p.LabourRateName,
	)
	return eris.Wrapf(err, "sqlite: upsert parameters %d/%d", p.FanConfigurationID, p.ComponentID)
}

func (s *SQLiteStore) UpsertMaterial(ctx context.Context, m *model.Material) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO materials (name, cost_per_unit, cost_unit, currency, density_kg_m3) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET cost_per_unit = excluded.cost_per_unit,
			cost_unit = excluded.cost_unit, currency = excluded.currency,
			density_kg_m3 = excluded.density_kg_m3`,
		m.Name, m.CostPerUnit, m.CostUnit, m.Currency, m.DensityKGM3,
	)
	return eris.Wrapf(err, "sqlite: upsert material %s", m.Name)
}

func (s *SQLiteStore) UpsertLabourRate(ctx context.Context, r *model.LabourRate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO labour_rates (name, rate_per_hour, productivity_kg_per_day, currency) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET rate_per_hour = excluded.rate_per_hour,
			productivity_kg_per_day = excluded.productivity_kg_per_day, currency = excluded.currency`,
		r.Name, r.RatePerHour, r.ProductivityKGPerDay, r.Currency,
	)
	return eris.Wrapf(err, "sqlite: upsert labour rate %s", r.Name)
}

func (s *SQLiteStore) UpsertMotor(ctx context.Context, m *model.Motor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO motors (id, supplier_name, motor_range, rated_output, poles, speed_rpm, frame_size)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET supplier_name = excluded.supplier_name,
			motor_range = excluded.motor_range, rated_output = excluded.rated_output,
			poles = excluded.poles, speed_rpm = excluded.speed_rpm, frame_size = excluded.frame_size`,
		m.ID, m.SupplierName, nullString(m.MotorRange), m.RatedOutputKW, m.Poles,
		nullInt(m.SpeedRPM), nullString(m.FrameSize),
	)
	return eris.Wrapf(err, "sqlite: upsert motor %d", m.ID)
}

func (s *SQLiteStore) InsertMotorPrice(ctx context.Context, p *model.MotorPrice) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO motor_prices (motor_id, flange_price, foot_price, date_effective) VALUES (?, ?, ?, ?)`,
		p.MotorID, p.FlangePrice, p.FootPrice, p.DateEffective.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert motor price %d", p.MotorID)
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

func (s *SQLiteStore) InsertSupplierDiscount(ctx context.Context, d *model.MotorSupplierDiscount) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO motor_supplier_discounts (supplier_name, discount_pct, date_effective) VALUES (?, ?, ?)`,
		d.SupplierName, d.DiscountPct, d.DateEffective.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert discount %s", d.SupplierName)
	}
	if id, err := res.LastInsertId(); err == nil {
		d.ID = id
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFan(row scannable) (*model.FanConfiguration, error) {
	var fc model.FanConfiguration
	var bladeName, bladeMaterial sql.NullString
	var bladeQtys, motorKW, available, autoSelected string
	err := row.Scan(&fc.ID, &fc.UID, &fc.FanSizeMM, &fc.HubSizeMM, &bladeQtys, &fc.StatorBladeQty,
		&bladeName, &bladeMaterial, &fc.MassPerBladeKG, &motorKW, &fc.MotorPoles,
		&available, &autoSelected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan fan configuration")
	}
	fc.BladeName = bladeName.String
	fc.BladeMaterial = bladeMaterial.String
	for _, col := range []struct {
		raw string
		dst any
	}{
		{bladeQtys, &fc.AvailableBladeQtys},
		{motorKW, &fc.AvailableMotorKW},
		{available, &fc.AvailableComponents},
		{autoSelected, &fc.AutoSelectedComponents},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal fan %s lists", fc.UID)
		}
	}
	return &fc, nil
}

func scanQuoteSummaries(rows *sql.Rows) ([]model.SavedQuoteSummary, error) {
	var summaries []model.SavedQuoteSummary
	for rows.Next() {
		var sm model.SavedQuoteSummary
		var client, project sql.NullString
		err := rows.Scan(&sm.ID, &sm.QuoteRef, &sm.RevisionNumber, &sm.Status, &client,
			&project, &sm.GrandTotal, &sm.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan quote summary")
		}
		sm.ClientName = client.String
		sm.ProjectName = project.String
		summaries = append(summaries, sm)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: scan quote summaries")
}

func sortComponents(components []model.Component) {
	sort.Slice(components, func(i, j int) bool {
		if components[i].OrderBy != components[j].OrderBy {
			return components[i].OrderBy < components[j].OrderBy
		}
		return components[i].ID < components[j].ID
	})
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return model.NotFound(entity, id)
	}
	return nil
}

// The null* helpers treat the zero value as "unset" and store NULL for it.
// Callers with a column where zero is meaningful must bind the value
// directly instead.

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func nullInt(i int) any {
	if i == 0 {
		return nil
	}
	return i
}
