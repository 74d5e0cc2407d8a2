package loyalty

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/postgres"
)

func TestPoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total string
		want  int64
	}{
		{"1250", 25},
		{"49.99", 0},
		{"50", 1},
		{"999.99", 19},
		{"0", 0},
		{"-10", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Points(decimal.RequireFromString(tt.total)), tt.total)
	}
}

func TestMemory_AwardIsIdempotent(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	ok, err := m.Award(ctx, "u1", "rcpt_1", decimal.NewFromInt(1250), 25)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = m.Award(ctx, "u1", "rcpt_1", decimal.NewFromInt(1250), 25)
	assert.False(t, ok)
	_, _ = m.Award(ctx, "u1", "rcpt_2", decimal.NewFromInt(500), 10)

	bal, err := m.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 35, bal)
	bal, _ = m.Balance(ctx, "u2")
	assert.Zero(t, bal)
}

// TestRepo runs against a disposable database at POSTGRES_TEST_DSN.
func TestRepo(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn, "loyalty-test")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))

	r := &Repo{DB: pool}
	user := uuid.NewString()
	ok, err := r.Award(ctx, user, "rcpt_a", decimal.NewFromInt(1000), 20)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Award(ctx, user, "rcpt_a", decimal.NewFromInt(1000), 20)
	require.NoError(t, err)
	assert.False(t, ok)

	bal, err := r.Balance(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 20, bal)
}
