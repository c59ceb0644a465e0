package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

// TableCreator builds the schema for documents and CMS collections.
type TableCreator struct {
	logger *logging.ChanneledLogger
}

func NewTableCreator(logger *logging.ChanneledLogger) *TableCreator {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &TableCreator{logger: logger}
}

// Migrate creates every table and index that does not exist yet
func (tc *TableCreator) Migrate(ctx context.Context, db *DB) error {
	start := time.Now()
	for _, tableSQL := range tables {
		query := dialect(db.driver, tableSQL)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", query, err)
		}
	}
	for _, indexSQL := range indexes {
		if db.driver == DriverMySQL {
			// mysql has no CREATE INDEX IF NOT EXISTS
			indexSQL = strings.Replace(indexSQL, " IF NOT EXISTS", "", 1)
		}
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			if db.driver == DriverMySQL && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	CheckAndLogSlowQuery(tc.logger, "MIGRATE", time.Since(start))
	tc.logger.Persistence().Info("Schema ready", "driverName", db.driver, "tables", len(tables), "duration", time.Since(start))
	return nil
}

// dialect swaps the portable column placeholders for driver types
func dialect(driver, query string) string {
	body := "TEXT"
	if driver == DriverMySQL {
		body = "LONGTEXT"
	}
	return strings.NewReplacer("{{ID}}", "VARCHAR(64)", "{{BODY}}", body, "{{TS}}", "VARCHAR(40)").Replace(query)
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS documents (id {{ID}} PRIMARY KEY, name VARCHAR(255) NOT NULL, status VARCHAR(16) NOT NULL, draft_json {{BODY}} NOT NULL, published_json {{BODY}}, updated_at {{TS}} NOT NULL, published_at {{TS}})`,
	`CREATE TABLE IF NOT EXISTS cms_collections (id {{ID}} PRIMARY KEY, name VARCHAR(255) NOT NULL, slug VARCHAR(255) NOT NULL, body_json {{BODY}} NOT NULL, updated_at {{TS}} NOT NULL)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_cms_collections_slug ON cms_collections(slug)`,
}
