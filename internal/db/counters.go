package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// nextOrderNumber atomically increments the year-scoped counter row. The
// counter lives in the database, not in process memory, so numbering stays
// monotonic across server instances.
func nextOrderNumber(ctx context.Context, tx pgx.Tx, year int) (int, error) {
	var seq int
	err := tx.QueryRow(ctx, `
		INSERT INTO order_counters (year, value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET value = order_counters.value + 1
		RETURNING value
	`, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance order counter for %d: %w", year, err)
	}
	return seq, nil
}

// FormatOrderNumber renders the customer-facing order number, e.g. LC-2026-0042.
func FormatOrderNumber(year, seq int) string {
	return fmt.Sprintf("LC-%d-%04d", year, seq)
}
