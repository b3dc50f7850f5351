package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "motor_prices", []string{"motor_id", "flange_price"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"motor_id", "flange_price", "foot_price", "date_effective"}
	mock.ExpectCopyFrom(pgx.Identifier{"motor_prices"}, cols).WillReturnResult(3)

	effective := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]any{
		{int64(5), 1000.0, nil, effective},
		{int64(6), 1450.0, 1390.0, effective},
		{int64(7), nil, 2100.0, effective},
	}
	n, err := CopyFrom(context.Background(), mock, "motor_prices", cols, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"motor_id", "flange_price"}
	mock.ExpectCopyFrom(pgx.Identifier{"motor_prices"}, cols).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{int64(5), 1000.0}}
	_, err = CopyFrom(context.Background(), mock, "motor_prices", cols, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO motor_prices")
	assert.NoError(t, mock.ExpectationsWereMet())
}
