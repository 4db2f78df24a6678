package profile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tradescope/internal/config"
)

var totalsCols = []string{
	"uuid", "jurisdiction", "period_start", "period_end",
	"shipments", "value_usd", "qty_kg", "distinct_hs6", "months", "years",
}

var buyerProfileCols = []string{
	"buyer_uuid", "jurisdiction", "period_start", "period_end",
	"total_shipments", "total_value_usd", "total_qty_kg",
	"distinct_hs6", "months_active", "years_active",
	"top_suppliers", "top_products", "classification",
	"stability_score", "onboarding_score", "updated_at",
}

func TestBuildBuyers_EmptyLedger(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`GROUP BY buyer_uuid, dest_country`).
		WillReturnRows(pgxmock.NewRows(totalsCols))

	b := NewBuilder(mock, config.ProfileConfig{TopN: 10})
	n, err := b.BuildBuyers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildBuyers_WritesRollup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	buyerID := uuid.New()
	supplierID := uuid.New()
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`GROUP BY buyer_uuid, dest_country`).
		WillReturnRows(pgxmock.NewRows(totalsCols).
			AddRow(buyerID, "US", start, end,
				int64(120), 3_400_000.0, 980_000.0, 4, 12, 2))

	mock.ExpectQuery(`LEFT JOIN trade.organizations`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"uuid", "jurisdiction", "items"}).
			AddRow(buyerID, "US", []byte(`[{"key":"`+supplierID.String()+`","label":"FOSHAN OCEANLAND CERAMICS","value_usd":2100000,"count":70}]`)))

	mock.ExpectQuery(`hs_code_6 IS NOT NULL`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"uuid", "jurisdiction", "items"}).
			AddRow(buyerID, "US", []byte(`[{"key":"690721","value_usd":3400000,"count":120}]`)))

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_trade_buyer_profiles"}, buyerProfileCols).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "trade"."buyer_profiles"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	b := NewBuilder(mock, config.ProfileConfig{TopN: 10})
	n, err := b.BuildBuyers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildExporters_EmptyLedger(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`GROUP BY supplier_uuid, origin_country`).
		WillReturnRows(pgxmock.NewRows(totalsCols))

	b := NewBuilder(mock, config.ProfileConfig{TopN: 10})
	n, err := b.BuildExporters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
