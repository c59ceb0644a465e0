// Package database provides database helper functions
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

// SlowQueryThreshold marks queries worth a warning
const SlowQueryThreshold = 250 * time.Millisecond

// VerifyConnection runs a trivial query against db
func VerifyConnection(ctx context.Context, db *DB) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("connection test query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected query result: %d", result)
	}
	return nil
}

// CheckAndLogSlowQuery logs queries whose duration exceeds the threshold
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration) {
	threshold := SlowQueryThreshold
	if strings.HasPrefix(query, "MIGRATE") {
		threshold *= 4
	}
	if duration > threshold {
		logger.Persistence().Warn("Slow query", "query", query, "duration", duration)
	}
}

// Timestamps are stored as RFC3339 text so every driver round-trips them
// the same way.

func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// NullTime converts an optional time to a nullable column value
func NullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// TimePtr is the inverse of NullTime
func TimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
