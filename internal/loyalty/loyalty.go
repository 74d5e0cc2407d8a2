// Package loyalty computes and records reward points earned at checkout.
package loyalty

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var rate = decimal.NewFromFloat(0.02)

// Points is 2% of the order total, rounded down to a whole point.
func Points(total decimal.Decimal) int64 {
	if total.IsNegative() {
		return 0
	}
	return total.Mul(rate).Floor().IntPart()
}

// Ledger records awarded points. Award is idempotent per (user, orderRef)
// and reports whether a new entry was written.
type Ledger interface {
	Award(ctx context.Context, userID, orderRef string, total decimal.Decimal, points int64) (bool, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Award(ctx context.Context, userID, orderRef string, total decimal.Decimal, points int64) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		INSERT INTO loyalty_ledger(user_id, order_ref, order_total, points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, order_ref) DO NOTHING`,
		userID, orderRef, total.InexactFloat64(), points,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) Balance(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM loyalty_ledger WHERE user_id=$1`, userID,
	).Scan(&n)
	return n, err
}

// Memory is a process-local ledger for running without Postgres; points
// last as long as the process.
type Memory struct {
	mu      sync.Mutex
	seen    map[string]bool
	balance map[string]int64
}

func NewMemory() *Memory {
	return &Memory{seen: map[string]bool{}, balance: map[string]int64{}}
}

func (m *Memory) Award(_ context.Context, userID, orderRef string, _ decimal.Decimal, points int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID + "\x00" + orderRef
	if m.seen[k] {
		return false, nil
	}
	m.seen[k] = true
	m.balance[userID] += points
	return true, nil
}

func (m *Memory) Balance(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance[userID], nil
}
