package pricelist

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/axialworks/fanquote/internal/db"
	"github.com/axialworks/fanquote/internal/model"
)

// Writer is the slice of the store the importer writes through.
type Writer interface {
	UpsertMotor(ctx context.Context, m *model.Motor) error
	InsertMotorPrice(ctx context.Context, p *model.MotorPrice) error
}

// Stats summarises one import run.
type Stats struct {
	Motors int
	Prices int
}

// Import upserts the motors named by the price list and appends one
// effective-dated price row per motor. Existing price history is never
// touched.
func Import(ctx context.Context, dst Writer, rows []Row, effective time.Time) (Stats, error) {
	var stats Stats
	for _, row := range rows {
		motor := model.Motor{
			ID:            row.MotorID,
			SupplierName:  row.Supplier,
			MotorRange:    row.MotorRange,
			RatedOutputKW: row.RatedOutputKW,
			Poles:         row.Poles,
			SpeedRPM:      row.SpeedRPM,
			FrameSize:     row.FrameSize,
		}
		if err := dst.UpsertMotor(ctx, &motor); err != nil {
			return stats, err
		}
		stats.Motors++

		price := model.MotorPrice{
			MotorID:       row.MotorID,
			FlangePrice:   row.FlangePrice,
			FootPrice:     row.FootPrice,
			DateEffective: effective.UTC(),
		}
		if err := dst.InsertMotorPrice(ctx, &price); err != nil {
			return stats, err
		}
		stats.Prices++
	}
	zap.L().Info("price list imported",
		zap.Int("motors", stats.Motors),
		zap.Int("prices", stats.Prices),
		zap.Time("effective", effective))
	return stats, nil
}

var motorUpsert = db.UpsertConfig{
	Table:        "motors",
	Columns:      []string{"id", "supplier_name", "motor_range", "rated_output", "poles", "speed_rpm", "frame_size"},
	ConflictKeys: []string{"id"},
}

var priceColumns = []string{"motor_id", "flange_price", "foot_price", "date_effective"}

// BulkImport is the Postgres fast path: motors go through a bulk upsert and
// price rows through COPY in one pass each, instead of a round trip per row.
func BulkImport(ctx context.Context, pool db.Pool, rows []Row, effective time.Time) (Stats, error) {
	if len(rows) == 0 {
		return Stats{}, nil
	}

	motorRows := make([][]any, 0, len(rows))
	priceRows := make([][]any, 0, len(rows))
	for _, row := range rows {
		motorRows = append(motorRows, []any{
			row.MotorID, row.Supplier, nilIfEmpty(row.MotorRange),
			row.RatedOutputKW, row.Poles, nilIfZero(row.SpeedRPM), nilIfEmpty(row.FrameSize),
		})
		priceRows = append(priceRows, []any{
			row.MotorID, row.FlangePrice, row.FootPrice, effective.UTC(),
		})
	}

	motors, err := db.BulkUpsert(ctx, pool, motorUpsert, motorRows)
	if err != nil {
		return Stats{}, err
	}
	prices, err := db.CopyFrom(ctx, pool, "motor_prices", priceColumns, priceRows)
	if err != nil {
		return Stats{Motors: int(motors)}, err
	}

	stats := Stats{Motors: int(motors), Prices: int(prices)}
	zap.L().Info("price list bulk imported",
		zap.Int("motors", stats.Motors),
		zap.Int("prices", stats.Prices),
		zap.Time("effective", effective))
	return stats, nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
