package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tradescope/internal/model"
)

func TestResolver_Run_PassOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Buyer role: create, attach, backfill.
	mock.ExpectExec(`INSERT INTO trade.organizations`).WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectExec(`UPDATE trade.organizations`).WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(`UPDATE trade.std_shipments`).WillReturnResult(pgxmock.NewResult("UPDATE", 10))
	// Supplier role.
	mock.ExpectExec(`INSERT INTO trade.organizations`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE trade.organizations`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`UPDATE trade.std_shipments`).WillReturnResult(pgxmock.NewResult("UPDATE", 10))
	// Hidden-buyer flagging, then the resolved stamp.
	mock.ExpectExec(`SET hidden_buyer = TRUE`).WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec(`SET resolved_at = now\(\)`).WillReturnResult(pgxmock.NewResult("UPDATE", 12))

	r := NewResolver(mock)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.OrgsCreated)
	assert.Equal(t, int64(2), res.OrgsUpdated)
	assert.Equal(t, int64(4), res.HiddenBuyers)
	assert.Equal(t, int64(12), res.RowsResolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_Run_SecondRunNoPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// With no pending rows every pass touches zero rows; nothing is created.
	for i := 0; i < 8; i++ {
		mock.ExpectExec(`trade`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	}

	r := NewResolver(mock)
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.OrgsCreated)
	assert.Equal(t, int64(0), res.RowsResolved)
}

func TestResolveOne_Placeholder(t *testing.T) {
	r := NewResolver(nil)
	id, err := r.ResolveOne(context.Background(), "TO THE ORDER", "TR", model.OrgTypeBuyer)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestResolveOne_CreatesThenReturnsSameOrg(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// First call: no org exists, one is created.
	mock.ExpectQuery(`SELECT org_uuid, org_type FROM trade.organizations`).
		WithArgs("FOSHAN TILES", "CN").
		WillReturnRows(pgxmock.NewRows([]string{"org_uuid", "org_type"}))
	mock.ExpectExec(`INSERT INTO trade.organizations`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	r := NewResolver(mock)
	first, err := r.ResolveOne(context.Background(), "Foshan Tiles Co., Ltd.", "CN", model.OrgTypeBuyer)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Second call with a different raw spelling of the same name: the
	// existing org is found and returned, no insert happens.
	mock.ExpectQuery(`SELECT org_uuid, org_type FROM trade.organizations`).
		WithArgs("FOSHAN TILES", "CN").
		WillReturnRows(pgxmock.NewRows([]string{"org_uuid", "org_type"}).AddRow(*first, model.OrgTypeBuyer))
	mock.ExpectExec(`UPDATE trade.organizations`).
		WithArgs(*first, []string{"buyer"}, "buyer", "FOSHAN TILES LTD", model.OrgTypeBuyer).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	second, err := r.ResolveOne(context.Background(), "FOSHAN TILES LTD", "CN", model.OrgTypeBuyer)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOne_RoleEscalation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()

	// Org created as BUYER, now seen as supplier: type escalates to MIXED.
	mock.ExpectQuery(`SELECT org_uuid, org_type FROM trade.organizations`).
		WithArgs("FOSHAN TILES", "CN").
		WillReturnRows(pgxmock.NewRows([]string{"org_uuid", "org_type"}).AddRow(id, model.OrgTypeBuyer))
	mock.ExpectExec(`UPDATE trade.organizations`).
		WithArgs(id, []string{"supplier"}, "supplier", "FOSHAN TILES", model.OrgTypeMixed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	r := NewResolver(mock)
	got, err := r.ResolveOne(context.Background(), "FOSHAN TILES", "CN", model.OrgTypeSupplier)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`FROM trade.organizations WHERE org_uuid`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"org_uuid", "normalized_name", "country", "org_type", "variants", "website", "created_at", "updated_at"}).
			AddRow(id, "FOSHAN TILES", "CN", model.OrgTypeMixed, []byte(`{"buyer":["Foshan Tiles Ltd"]}`), nil, now, now))

	r := NewResolver(mock)
	org, err := r.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "FOSHAN TILES", org.NormalizedName)
	assert.Equal(t, model.OrgTypeMixed, org.Type)
	assert.Equal(t, []string{"Foshan Tiles Ltd"}, org.Variants["buyer"])
}

func TestResolver_DuplicateNameCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`HAVING COUNT\(\*\) > 1`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	r := NewResolver(mock)
	n, err := r.DuplicateNameCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
