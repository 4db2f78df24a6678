package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lastOK := time.Now().UTC().Add(-2 * time.Hour)

	mock.ExpectQuery(`FROM trade.run_log`).
		WithArgs(48).
		WillReturnRows(pgxmock.NewRows([]string{"stage", "total", "failed", "last_success"}).
			AddRow("ingest", int64(12), int64(2), &lastOK).
			AddRow("mirror", int64(4), int64(0), nil))

	mock.ExpectQuery(`HAVING COUNT`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	mock.ExpectQuery(`hidden_buyer AND buyer_uuid IS NULL`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1234)))

	snap, err := NewCollector(mock).Collect(context.Background(), 48)
	require.NoError(t, err)

	require.Len(t, snap.Stages, 2)
	assert.Equal(t, "ingest", snap.Stages[0].Stage)
	assert.Equal(t, int64(2), snap.Stages[0].Failed)
	require.NotNil(t, snap.Stages[0].LastSuccess)
	assert.Nil(t, snap.Stages[1].LastSuccess)
	assert.Equal(t, int64(7), snap.DuplicateOrgs)
	assert.Equal(t, int64(1234), snap.HiddenBacklog)
	assert.Equal(t, 48, snap.LookbackHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}
