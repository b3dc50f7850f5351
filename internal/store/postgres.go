package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/axialworks/fanquote/internal/db"
	"github.com/axialworks/fanquote/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot calculation path.
var preparedStatements = map[string]string{
	"get_fan":        `SELECT ` + fanColumns + ` FROM fan_configurations WHERE id = $1`,
	"get_parameters": `SELECT fan_configuration_id, component_id, mass_formula_type, diameter_formula_type, length_formula_type, stiffening_formula_type, length_mm, length_multiplier, stiffening_factor, default_thickness_mm, default_waste_factor, material_name, labour_rate_name FROM fan_component_parameters WHERE fan_configuration_id = $1 AND component_id = $2`,
	"get_material":   `SELECT id, name, cost_per_unit, cost_unit, currency, density_kg_m3 FROM materials WHERE name = $1`,
	"get_rate":       `SELECT id, name, rate_per_hour, productivity_kg_per_day, currency FROM labour_rates WHERE name = $1`,
	"get_motor":      `SELECT id, supplier_name, motor_range, rated_output, poles, speed_rpm, frame_size FROM motors WHERE id = $1`,
	"get_price_at":   `SELECT id, motor_id, flange_price, foot_price, date_effective FROM motor_prices WHERE motor_id = $1 AND date_effective <= $2 ORDER BY date_effective DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems that need
// direct query access (e.g., the bulk price list import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS fan_configurations (
	id                       BIGINT PRIMARY KEY,
	uid                      TEXT NOT NULL UNIQUE,
	fan_size_mm              DOUBLE PRECISION NOT NULL,
	hub_size_mm              DOUBLE PRECISION NOT NULL,
	available_blade_qtys     JSONB NOT NULL DEFAULT '[]',
	stator_blade_qty         INTEGER NOT NULL DEFAULT 0,
	blade_name               TEXT,
	blade_material           TEXT,
	mass_per_blade_kg        DOUBLE PRECISION NOT NULL DEFAULT 0,
	available_motor_kw       JSONB NOT NULL DEFAULT '[]',
	motor_poles              INTEGER NOT NULL DEFAULT 0,
	available_components     JSONB NOT NULL DEFAULT '[]',
	auto_selected_components JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS components (
	id       BIGINT PRIMARY KEY,
	name     TEXT NOT NULL,
	code     TEXT NOT NULL,
	order_by TEXT
);

CREATE TABLE IF NOT EXISTS fan_component_parameters (
	fan_configuration_id    BIGINT NOT NULL REFERENCES fan_configurations(id),
	component_id            BIGINT NOT NULL REFERENCES components(id),
	mass_formula_type       TEXT NOT NULL,
	diameter_formula_type   TEXT,
	length_formula_type     TEXT,
	stiffening_formula_type TEXT,
	length_mm               DOUBLE PRECISION,
	length_multiplier       DOUBLE PRECISION,
	stiffening_factor       DOUBLE PRECISION,
	default_thickness_mm    DOUBLE PRECISION NOT NULL,
	default_waste_factor    DOUBLE PRECISION NOT NULL,
	material_name           TEXT NOT NULL,
	labour_rate_name        TEXT NOT NULL,
	PRIMARY KEY (fan_configuration_id, component_id)
);

CREATE TABLE IF NOT EXISTS materials (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	cost_per_unit DOUBLE PRECISION NOT NULL,
	cost_unit     TEXT NOT NULL DEFAULT 'kg',
	currency      TEXT NOT NULL DEFAULT 'GBP',
	density_kg_m3 DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS labour_rates (
	id                      BIGSERIAL PRIMARY KEY,
	name                    TEXT NOT NULL UNIQUE,
	rate_per_hour           DOUBLE PRECISION NOT NULL,
	productivity_kg_per_day DOUBLE PRECISION NOT NULL,
	currency                TEXT NOT NULL DEFAULT 'GBP'
);

CREATE TABLE IF NOT EXISTS global_settings (
	setting_name  TEXT PRIMARY KEY,
	setting_value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS motors (
	id            BIGINT PRIMARY KEY,
	supplier_name TEXT NOT NULL,
	motor_range   TEXT,
	rated_output  DOUBLE PRECISION NOT NULL,
	poles         INTEGER NOT NULL,
	speed_rpm     INTEGER,
	frame_size    TEXT
);

CREATE TABLE IF NOT EXISTS motor_prices (
	id             BIGSERIAL PRIMARY KEY,
	motor_id       BIGINT NOT NULL REFERENCES motors(id),
	flange_price   DOUBLE PRECISION,
	foot_price     DOUBLE PRECISION,
	date_effective TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS motor_supplier_discounts (
	id             BIGSERIAL PRIMARY KEY,
	supplier_name  TEXT NOT NULL,
	discount_pct   DOUBLE PRECISION NOT NULL,
	date_effective TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_quotes (
	id                TEXT PRIMARY KEY,
	quote_ref         TEXT NOT NULL,
	revision_number   INTEGER NOT NULL,
	original_quote_id TEXT,
	status            TEXT NOT NULL DEFAULT 'draft',
	client_name       TEXT,
	project_name      TEXT,
	document          JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (quote_ref, revision_number)
);

CREATE INDEX IF NOT EXISTS idx_motor_prices_motor_date ON motor_prices(motor_id, date_effective DESC);
CREATE INDEX IF NOT EXISTS idx_discounts_supplier_date ON motor_supplier_discounts(supplier_name, date_effective DESC);
CREATE INDEX IF NOT EXISTS idx_saved_quotes_ref ON saved_quotes(quote_ref);
CREATE INDEX IF NOT EXISTS idx_saved_quotes_status ON saved_quotes(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FanConfigurations(ctx context.Context) ([]model.FanConfiguration, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+fanColumns+` FROM fan_configurations ORDER BY fan_size_mm, uid`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list fan configurations")
	}
	defer rows.Close()

	var fans []model.FanConfiguration
	for rows.Next() {
		fc, err := scanPgFan(rows)
		if err != nil {
			return nil, err
		}
		fans = append(fans, *fc)
	}
	return fans, eris.Wrap(rows.Err(), "postgres: list fan configurations")
}

func (s *PostgresStore) FanConfiguration(ctx context.Context, id int64) (*model.FanConfiguration, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+fanColumns+` FROM fan_configurations WHERE id = $1`, id)
	fc, err := scanPgFan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("fan configuration", id)
	}
	return fc, err
}

func (s *PostgresStore) FanConfigurationByUID(ctx context.Context, uid string) (*model.FanConfiguration, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+fanColumns+` FROM fan_configurations WHERE uid = $1`, uid)
	fc, err := scanPgFan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("fan configuration", uid)
	}
	return fc, err
}

func (s *PostgresStore) Component(ctx context.Context, id int64) (*model.Component, error) {
	var c model.Component
	var orderBy *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, code, order_by FROM components WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Code, &orderBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("component", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get component %d", id)
	}
	if orderBy != nil {
		c.OrderBy = *orderBy
	}
	return &c, nil
}

// ComponentsForFan returns the fan's available components in display order.
func (s *PostgresStore) ComponentsForFan(ctx context.Context, fanID int64) ([]model.Component, error) {
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

func (s *PostgresStore) ComponentParameter(ctx context.Context, fanID, componentID int64) (*model.FanComponentParameter, error) {
	var p model.FanComponentParameter
	var diameter, length, stiffening *string
	var lengthMult *float64
	err := s.pool.QueryRow(ctx,
		`SELECT fan_configuration_id, component_id, mass_formula_type, diameter_formula_type,
			length_formula_type, stiffening_formula_type, length_mm, length_multiplier,
			stiffening_factor, default_thickness_mm, default_waste_factor, material_name, labour_rate_name
		FROM fan_component_parameters WHERE fan_configuration_id = $1 AND component_id = $2`,
		fanID, componentID,
	).Scan(&p.FanConfigurationID, &p.ComponentID, &p.MassFormulaType, &diameter, &length,
		&stiffening, &p.LengthMM, &lengthMult, &p.StiffeningFactor, &p.DefaultThicknessMM,
		&p.DefaultWasteFactor, &p.MaterialName, &p.LabourRateName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("component parameters", fmt.Sprintf("%d/%d", fanID, componentID))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get parameters %d/%d", fanID, componentID)
	}
	if diameter != nil {
		p.DiameterFormula = model.DiameterFormula(*diameter)
	}
	if length != nil {
		p.LengthFormula = model.LengthFormula(*length)
	}
	if stiffening != nil {
		p.StiffeningFormula = model.StiffeningFormula(*stiffening)
	}
	if lengthMult != nil {
		p.LengthMult = *lengthMult
	}
	return &p, nil
}

func (s *PostgresStore) MaterialByName(ctx context.Context, name string) (*model.Material, error) {
	var m model.Material
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, cost_per_unit, cost_unit, currency, density_kg_m3 FROM materials WHERE name = $1`, name,
	).Scan(&m.ID, &m.Name, &m.CostPerUnit, &m.CostUnit, &m.Currency, &m.DensityKGM3)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("material", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get material %s", name)
	}
	return &m, nil
}

func (s *PostgresStore) LabourRateByName(ctx context.Context, name string) (*model.LabourRate, error) {
	var r model.LabourRate
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, rate_per_hour, productivity_kg_per_day, currency FROM labour_rates WHERE name = $1`, name,
	).Scan(&r.ID, &r.Name, &r.RatePerHour, &r.ProductivityKGPerDay, &r.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("labour rate", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get labour rate %s", name)
	}
	return &r, nil
}

func (s *PostgresStore) GlobalSettings(ctx context.Context) ([]model.GlobalSetting, error) {
	rows, err := s.pool.Query(ctx, `SELECT setting_name, setting_value FROM global_settings ORDER BY setting_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list settings")
	}
	defer rows.Close()

	var settings []model.GlobalSetting
	for rows.Next() {
		var gs model.GlobalSetting
		if err := rows.Scan(&gs.Name, &gs.Value); err != nil {
			return nil, eris.Wrap(err, "postgres: scan setting")
		}
		settings = append(settings, gs)
	}
	return settings, eris.Wrap(rows.Err(), "postgres: list settings")
}

func (s *PostgresStore) SetGlobalSetting(ctx context.Context, name, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO global_settings (setting_name, setting_value) VALUES ($1, $2)
		ON CONFLICT (setting_name) DO UPDATE SET setting_value = EXCLUDED.setting_value`,
		name, value,
	)
	return eris.Wrapf(err, "postgres: set setting %s", name)
}

func (s *PostgresStore) Motor(ctx context.Context, id int64) (*model.Motor, error) {
	var m model.Motor
	var rng, frame *string
	var rpm *int
	err := s.pool.QueryRow(ctx,
		`SELECT id, supplier_name, motor_range, rated_output, poles, speed_rpm, frame_size FROM motors WHERE id = $1`, id,
	).Scan(&m.ID, &m.SupplierName, &rng, &m.RatedOutputKW, &m.Poles, &rpm, &frame)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("motor", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get motor %d", id)
	}
	if rng != nil {
		m.MotorRange = *rng
	}
	if rpm != nil {
		m.SpeedRPM = *rpm
	}
	if frame != nil {
		m.FrameSize = *frame
	}
	return &m, nil
}

func (s *PostgresStore) Motors(ctx context.Context, filter MotorFilter) ([]model.MotorWithPrice, error) {
	query := `SELECT m.id, m.supplier_name, m.motor_range, m.rated_output, m.poles, m.speed_rpm, m.frame_size,
			p.id, p.motor_id, p.flange_price, p.foot_price, p.date_effective
		FROM motors m
		LEFT JOIN LATERAL (
			SELECT id, motor_id, flange_price, foot_price, date_effective FROM motor_prices
			WHERE motor_id = m.id ORDER BY date_effective DESC LIMIT 1
		) p ON true
		WHERE true`
	args := []any{}
	argIdx := 1

	if filter.SupplierName != "" {
		query += fmt.Sprintf(` AND m.supplier_name = $%d`, argIdx)
		args = append(args, filter.SupplierName)
		argIdx++
	}
	if filter.Poles > 0 {
		query += fmt.Sprintf(` AND m.poles = $%d`, argIdx)
		args = append(args, filter.Poles)
		argIdx++
	}
	if filter.MinKW > 0 {
		query += fmt.Sprintf(` AND m.rated_output >= $%d`, argIdx)
		args = append(args, filter.MinKW)
		argIdx++
	}
	if filter.MaxKW > 0 {
		query += fmt.Sprintf(` AND m.rated_output <= $%d`, argIdx)
		args = append(args, filter.MaxKW)
		argIdx++
	}
	query += ` ORDER BY m.rated_output, m.poles, m.supplier_name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list motors")
	}
	defer rows.Close()

	var motors []model.MotorWithPrice
	for rows.Next() {
		var mw model.MotorWithPrice
		var rng, frame *string
		var rpm *int
		var priceID, priceMotorID *int64
		var flange, foot *float64
		var effective *time.Time
		err := rows.Scan(&mw.ID, &mw.SupplierName, &rng, &mw.RatedOutputKW, &mw.Poles, &rpm, &frame,
			&priceID, &priceMotorID, &flange, &foot, &effective)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan motor")
		}
		if rng != nil {
			mw.MotorRange = *rng
		}
		if rpm != nil {
			mw.SpeedRPM = *rpm
		}
		if frame != nil {
			mw.FrameSize = *frame
		}
		if priceID != nil {
			mw.Price = model.MotorPrice{ID: *priceID, MotorID: *priceMotorID, FlangePrice: flange, FootPrice: foot}
			if effective != nil {
				mw.Price.DateEffective = *effective
			}
		}
		motors = append(motors, mw)
	}
	return motors, eris.Wrap(rows.Err(), "postgres: list motors")
}

// MotorPriceAt returns the price row in effect at the given time: the most
// recent row dated at or before it.
func (s *PostgresStore) MotorPriceAt(ctx context.Context, motorID int64, at time.Time) (*model.MotorPrice, error) {
	var p model.MotorPrice
	err := s.pool.QueryRow(ctx,
		`SELECT id, motor_id, flange_price, foot_price, date_effective FROM motor_prices
		WHERE motor_id = $1 AND date_effective <= $2 ORDER BY date_effective DESC LIMIT 1`,
		motorID, at.UTC(),
	).Scan(&p.ID, &p.MotorID, &p.FlangePrice, &p.FootPrice, &p.DateEffective)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("motor price", motorID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get motor price %d", motorID)
	}
	return &p, nil
}

func (s *PostgresStore) SupplierDiscounts(ctx context.Context, supplierName string) ([]model.MotorSupplierDiscount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, supplier_name, discount_pct, date_effective FROM motor_supplier_discounts
		WHERE supplier_name = $1 ORDER BY date_effective DESC`,
		supplierName,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list discounts %s", supplierName)
	}
	defer rows.Close()

	var discounts []model.MotorSupplierDiscount
	for rows.Next() {
		var d model.MotorSupplierDiscount
		if err := rows.Scan(&d.ID, &d.SupplierName, &d.DiscountPct, &d.DateEffective); err != nil {
			return nil, eris.Wrap(err, "postgres: scan discount")
		}
		discounts = append(discounts, d)
	}
	return discounts, eris.Wrap(rows.Err(), "postgres: list discounts")
}

// CreateQuote persists a new quote document revision. Saving a reference
// that already exists appends the next revision number and links back to the
// first revision; existing rows are never overwritten.
func (s *PostgresStore) CreateQuote(ctx context.Context, q *model.SavedQuote) (*model.SavedQuote, error) {
	saved := *q
	saved.ID = uuid.New().String()
	now := time.Now().UTC()
	saved.CreatedAt = now
	saved.UpdatedAt = now
	if saved.Status == "" {
		saved.Status = model.QuoteStatusDraft
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin create quote")
	}
	defer tx.Rollback(ctx)

	var maxRev int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(revision_number), 0) FROM saved_quotes WHERE quote_ref = $1`, saved.QuoteRef,
	).Scan(&maxRev)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: resolve revision %s", saved.QuoteRef)
	}
	saved.RevisionNumber = maxRev + 1
	if maxRev > 0 {
		err = tx.QueryRow(ctx,
			`SELECT id FROM saved_quotes WHERE quote_ref = $1 AND revision_number = 1`, saved.QuoteRef,
		).Scan(&saved.OriginalQuoteID)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: resolve original quote %s", saved.QuoteRef)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO saved_quotes (id, quote_ref, revision_number, original_quote_id, status,
			client_name, project_name, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		saved.ID, saved.QuoteRef, saved.RevisionNumber, pgNullString(saved.OriginalQuoteID),
		string(saved.Status), pgNullString(saved.ClientName), pgNullString(saved.ProjectName),
		[]byte(saved.Document), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert quote %s", saved.QuoteRef)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit create quote")
	}
	return &saved, nil
}

func (s *PostgresStore) GetQuote(ctx context.Context, id string) (*model.SavedQuote, error) {
	var q model.SavedQuote
	var original, client, project *string
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, quote_ref, revision_number, original_quote_id, status, client_name,
			project_name, document, created_at, updated_at
		FROM saved_quotes WHERE id = $1`, id,
	).Scan(&q.ID, &q.QuoteRef, &q.RevisionNumber, &original, &q.Status, &client,
		&project, &doc, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("quote", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get quote %s", id)
	}
	if original != nil {
		q.OriginalQuoteID = *original
	}
	if client != nil {
		q.ClientName = *client
	}
	if project != nil {
		q.ProjectName = *project
	}
	q.Document = json.RawMessage(doc)
	return &q, nil
}

const pgQuoteSummaryColumns = `id, quote_ref, revision_number, status, client_name, project_name,
	COALESCE((document #>> '{calculation,derived_totals,grand_total}')::double precision, 0), created_at`

func (s *PostgresStore) ListQuotes(ctx context.Context, filter QuoteFilter) ([]model.SavedQuoteSummary, error) {
	query := `SELECT ` + pgQuoteSummaryColumns + ` FROM saved_quotes WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.ClientName != "" {
		query += fmt.Sprintf(` AND client_name = $%d`, argIdx)
		args = append(args, filter.ClientName)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET %d`, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list quotes")
	}
	defer rows.Close()
	return scanPgQuoteSummaries(rows)
}

func (s *PostgresStore) QuoteRevisions(ctx context.Context, quoteRef string) ([]model.SavedQuoteSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgQuoteSummaryColumns+` FROM saved_quotes WHERE quote_ref = $1 ORDER BY revision_number`,
		quoteRef,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list revisions %s", quoteRef)
	}
	defer rows.Close()
	return scanPgQuoteSummaries(rows)
}

func (s *PostgresStore) UpdateQuoteStatus(ctx context.Context, id string, status model.QuoteStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE saved_quotes SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update quote status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("quote", id)
	}
	return nil
}

func (s *PostgresStore) UpsertFanConfiguration(ctx context.Context, fc *model.FanConfiguration) error {
	bladeQtys, err := json.Marshal(fc.AvailableBladeQtys)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal blade qtys")
	}
	motorKW, err := json.Marshal(fc.AvailableMotorKW)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal motor kw")
	}
	available, err := json.Marshal(fc.AvailableComponents)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal available components")
	}
	autoSelected, err := json.Marshal(fc.AutoSelectedComponents)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal auto-selected components")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO fan_configurations (`+fanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			uid = EXCLUDED.uid, fan_size_mm = EXCLUDED.fan_size_mm, hub_size_mm = EXCLUDED.hub_size_mm,
			available_blade_qtys = EXCLUDED.available_blade_qtys, stator_blade_qty = EXCLUDED.stator_blade_qty,
			blade_name = EXCLUDED.blade_name, blade_material = EXCLUDED.blade_material,
			mass_per_blade_kg = EXCLUDED.mass_per_blade_kg, available_motor_kw = EXCLUDED.available_motor_kw,
			motor_poles = EXCLUDED.motor_poles, available_components = EXCLUDED.available_components,
			auto_selected_components = EXCLUDED.auto_selected_components`,
		fc.ID, fc.UID, fc.FanSizeMM, fc.HubSizeMM, bladeQtys, fc.StatorBladeQty,
		pgNullString(fc.BladeName), pgNullString(fc.BladeMaterial), fc.MassPerBladeKG,
		motorKW, fc.MotorPoles, available, autoSelected,
	)
	return eris.Wrapf(err, "postgres: upsert fan configuration %s", fc.UID)
}

func (s *PostgresStore) UpsertComponent(ctx context.Context, c *model.Component) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO components (id, name, code, order_by) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, code = EXCLUDED.code, order_by = EXCLUDED.order_by`,
		c.ID, c.Name, c.Code, pgNullString(c.OrderBy),
	)
	return eris.Wrapf(err, "postgres: upsert component %s", c.Code)
}

func (s *PostgresStore) UpsertComponentParameter(ctx context.Context, p *model.FanComponentParameter) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fan_component_parameters (fan_configuration_id, component_id, mass_formula_type,
			diameter_formula_type, length_formula_type, stiffening_formula_type, length_mm,
			length_multiplier, stiffening_factor, default_thickness_mm, default_waste_factor,
			material_name, labour_rate_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (fan_configuration_id, component_id) DO UPDATE SET
			mass_formula_type = EXCLUDED.mass_formula_type,
			diameter_formula_type = EXCLUDED.diameter_formula_type,
			length_formula_type = EXCLUDED.length_formula_type,
			stiffening_formula_type = EXCLUDED.stiffening_formula_type,
			length_mm = EXCLUDED.length_mm, length_multiplier = EXCLUDED.length_multiplier,
			stiffening_factor = EXCLUDED.stiffening_factor,
			default_thickness_mm = EXCLUDED.default_thickness_mm,
			default_waste_factor = EXCLUDED.default_waste_factor,
			material_name = EXCLUDED.material_name, labour_rate_name = EXCLUDED.labour_rate_name`,
		p.FanConfigurationID, p.ComponentID, string(p.MassFormulaType),
		pgNullString(string(p.DiameterFormula)), pgNullString(string(p.LengthFormula)),
		pgNullString(string(p.StiffeningFormula)), p.LengthMM, pgNullFloat(p.LengthMult),
		p.StiffeningFactor, p.DefaultThicknessMM, p.DefaultWasteFactor,
		p.MaterialName, p.LabourRateName,
	)
	return eris.Wrapf(err, "postgres: upsert parameters %d/%d", p.FanConfigurationID, p.ComponentID)
}

func (s *PostgresStore) UpsertMaterial(ctx context.Context, m *model.Material) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO materials (name, cost_per_unit, cost_unit, currency, density_kg_m3) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET cost_per_unit = EXCLUDED.cost_per_unit,
			cost_unit = EXCLUDED.cost_unit, currency = EXCLUDED.currency,
			density_kg_m3 = EXCLUDED.density_kg_m3`,
		m.Name, m.CostPerUnit, m.CostUnit, m.Currency, m.DensityKGM3,
	)
	return eris.Wrapf(err, "postgres: upsert material %s", m.Name)
}

func (s *PostgresStore) UpsertLabourRate(ctx context.Context, r *model.LabourRate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO labour_rates (name, rate_per_hour, productivity_kg_per_day, currency) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET rate_per_hour = EXCLUDED.rate_per_hour,
			productivity_kg_per_day = EXCLUDED.productivity_kg_per_day, currency = EXCLUDED.currency`,
		r.Name, r.RatePerHour, r.ProductivityKGPerDay, r.Currency,
	)
	return eris.Wrapf(err, "postgres: upsert labour rate %s", r.Name)
}

func (s *PostgresStore) UpsertMotor(ctx context.Context, m *model.Motor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO motors (id, supplier_name, motor_range, rated_output, poles, speed_rpm, frame_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET supplier_name = EXCLUDED.supplier_name,
			motor_range = EXCLUDED.motor_range, rated_output = EXCLUDED.rated_output,
			poles = EXCLUDED.poles, speed_rpm = EXCLUDED.speed_rpm, frame_size = EXCLUDED.frame_size`,
		m.ID, m.SupplierName, pgNullString(m.MotorRange), m.RatedOutputKW, m.Poles,
		pgNullInt(m.SpeedRPM), pgNullString(m.FrameSize),
	)
	return eris.Wrapf(err, "postgres: upsert motor %d", m.ID)
}

func (s *PostgresStore) InsertMotorPrice(ctx context.Context, p *model.MotorPrice) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO motor_prices (motor_id, flange_price, foot_price, date_effective)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		p.MotorID, p.FlangePrice, p.FootPrice, p.DateEffective.UTC(),
	).Scan(&p.ID)
	return eris.Wrapf(err, "postgres: insert motor price %d", p.MotorID)
}

func (s *PostgresStore) InsertSupplierDiscount(ctx context.Context, d *model.MotorSupplierDiscount) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO motor_supplier_discounts (supplier_name, discount_pct, date_effective)
		VALUES ($1, $2, $3) RETURNING id`,
		d.SupplierName, d.DiscountPct, d.DateEffective.UTC(),
	).Scan(&d.ID)
	return eris.Wrapf(err, "postgres: insert discount %s", d.SupplierName)
}

func scanPgFan(row pgx.Row) (*model.FanConfiguration, error) {
	var fc model.FanConfiguration
	var bladeName, bladeMaterial *string
	var bladeQtys, motorKW, available, autoSelected []byte
	err := row.Scan(&fc.ID, &fc.UID, &fc.FanSizeMM, &fc.HubSizeMM, &bladeQtys, &fc.StatorBladeQty,
		&bladeName, &bladeMaterial, &fc.MassPerBladeKG, &motorKW, &fc.MotorPoles,
		&available, &autoSelected)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan fan configuration")
	}
	if bladeName != nil {
		fc.BladeName = *bladeName
	}
	if bladeMaterial != nil {
		fc.BladeMaterial = *bladeMaterial
	}
	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{bladeQtys, &fc.AvailableBladeQtys},
		{motorKW, &fc.AvailableMotorKW},
		{available, &fc.AvailableComponents},
		{autoSelected, &fc.AutoSelectedComponents},
	} {
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal fan %s lists", fc.UID)
		}
	}
	return &fc, nil
}

func scanPgQuoteSummaries(rows pgx.Rows) ([]model.SavedQuoteSummary, error) {
	var summaries []model.SavedQuoteSummary
	for rows.Next() {
		var sm model.SavedQuoteSummary
		var client, project *string
		err := rows.Scan(&sm.ID, &sm.QuoteRef, &sm.RevisionNumber, &sm.Status, &client,
			&project, &sm.GrandTotal, &sm.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan quote summary")
		}
		if client != nil {
			sm.ClientName = *client
		}
		if project != nil {
			sm.ProjectName = *project
		}
		summaries = append(summaries, sm)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: scan quote summaries")
}

func pgNullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func pgNullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func pgNullInt(i int) any {
	if i == 0 {
		return nil
	}
	return i
}
