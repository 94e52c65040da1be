package ledger

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
	"github.com/ariefcatur/storefront-orders/internal/logger"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/postgres"
)

func TestRepoArchive(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn, logger.Discard())
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer db.Close()

	schema, err := os.ReadFile("../../migrations/001_order_ledger.sql")
	require.NoError(t, err)
	_, err = db.Exec(ctx, string(schema))
	require.NoError(t, err)

	id := time.Now().UnixNano()
	e := Entry{
		EventID: "evt-1",
		Order: orders.Order{
			ID:        id,
			OrderDate: time.Now().UTC(),
			Details:   orders.Details{Name: "A", Email: "a@x.com", Total: json.Number("19.90"), PaymentMethod: "COD"},
		},
		Sold: []catalog.ID{catalog.NumericID(7), catalog.StringID("sku-9")},
	}
	t.Cleanup(func() { _, _ = db.Exec(context.Background(), `DELETE FROM order_ledger WHERE order_id=$1`, id) })

	repo := &Repo{DB: db}
	inserted, err := repo.Archive(ctx, e)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Archive(ctx, e)
	require.NoError(t, err)
	assert.False(t, inserted)

	sold, err := repo.Sold(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "sku-9"}, sold)
}
