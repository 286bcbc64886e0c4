package ledger_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-catalog-settlement.git/internal/catalog"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/ledger"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/postgres"
)

func testDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run ledger tests against Postgres")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, postgres.Migrate(ctx, db))
	return db
}

func newProduct(t *testing.T, db *pgxpool.Pool) string {
	t.Helper()
	id := "prod-" + uuid.NewString()
	_, err := (&catalog.Repo{DB: db}).Create(context.Background(), id, "ledger test")
	require.NoError(t, err)
	return id
}

func TestCreateEnforcesOneRowPerProduct(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := &ledger.Repo{DB: db}
	pid := newProduct(t, db)

	e, err := repo.Create(ctx, ledger.NewEntry{
		ProductID:      pid,
		QuantityOnHand: 12,
		UnitCost:       decimal.RequireFromString("3.50"),
		UnitSalePrice:  decimal.RequireFromString("9.00"),
	})
	require.NoError(t, err)
	assert.True(t, e.TotalValue.Equal(decimal.RequireFromString("42.00")))

	_, err = repo.Create(ctx, ledger.NewEntry{ProductID: pid})
	assert.ErrorIs(t, err, ledger.ErrAlreadyExists)
}

func TestCreateRejectsUnknownProductAndNegatives(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := &ledger.Repo{DB: db}

	_, err := repo.Create(ctx, ledger.NewEntry{ProductID: "prod-" + uuid.NewString()})
	assert.ErrorIs(t, err, ledger.ErrNoProduct)

	pid := newProduct(t, db)
	_, err = repo.Create(ctx, ledger.NewEntry{ProductID: pid, QuantityOnHand: -1})
	assert.ErrorIs(t, err, ledger.ErrBelowZero)

	_, err = repo.Create(ctx, ledger.NewEntry{ProductID: pid, UnitCost: decimal.RequireFromString("-0.01")})
	assert.Error(t, err)
}

func TestApplyDeltaRecomputesValueAndGuardsZeroFloor(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := &ledger.Repo{DB: db}
	pid := newProduct(t, db)

	_, err := repo.Create(ctx, ledger.NewEntry{
		ProductID:      pid,
		QuantityOnHand: 5,
		UnitCost:       decimal.RequireFromString("2.00"),
		UnitSalePrice:  decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = repo.LockForUpdate(ctx, tx, pid)
	require.NoError(t, err)

	e, err := repo.ApplyDelta(ctx, tx, pid, -3)
	require.NoError(t, err)
	assert.Equal(t, 2, e.QuantityOnHand)
	assert.True(t, e.TotalValue.Equal(decimal.RequireFromString("4.00")))

	_, err = repo.ApplyDelta(ctx, tx, pid, -3)
	assert.ErrorIs(t, err, ledger.ErrBelowZero)

	// restock direction
	e, err = repo.ApplyDelta(ctx, tx, pid, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, e.QuantityOnHand)
	assert.True(t, e.TotalValue.Equal(decimal.RequireFromString("24.00")))

	require.NoError(t, tx.Commit(ctx))
}

func TestUpdateRestocksAndKeepsDerivedValueConsistent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := &ledger.Repo{DB: db}
	pid := newProduct(t, db)

	_, err := repo.Create(ctx, ledger.NewEntry{
		ProductID:      pid,
		QuantityOnHand: 1,
		UnitCost:       decimal.RequireFromString("10.00"),
		UnitSalePrice:  decimal.RequireFromString("15.00"),
	})
	require.NoError(t, err)

	qty := 8
	cost := decimal.RequireFromString("11.25")
	e, err := repo.Update(ctx, pid, ledger.UpdateParams{QuantityOnHand: &qty, UnitCost: &cost})
	require.NoError(t, err)
	assert.Equal(t, 8, e.QuantityOnHand)
	assert.True(t, e.TotalValue.Equal(decimal.RequireFromString("90.00")))
	// untouched field keeps its value
	assert.True(t, e.UnitSalePrice.Equal(decimal.RequireFromString("15.00")))

	_, err = repo.Update(ctx, "prod-"+uuid.NewString(), ledger.UpdateParams{QuantityOnHand: &qty})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
