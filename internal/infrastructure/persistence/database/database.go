// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

const (
	DriverSQLite   = "sqlite3"
	DriverLibSQL   = "libsql"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config describes one connection
type Config struct {
	Driver          string
	DSN             string
	TursoURL        string
	TursoAuthToken  string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	driver string
}

// NewConnection establishes a new database connection for the configured driver.
func NewConnection(cfg Config, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}
	logger.Persistence().Debug("Creating new database connection", "driverName", driver)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Persistence().Error("Failed to open database connection", "error", err.Error(), "driverName", driver)
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		logger.Persistence().Error("Database ping failed", "error", err.Error(), "driverName", driver)
		return nil, err
	}

	logger.Persistence().Info("Database connection established", "driverName", driver, "duration", time.Since(start))
	return &DB{DB: db, driver: driver}, nil
}

func dataSource(cfg Config) (string, string, error) {
	switch cfg.Driver {
	case DriverSQLite, "", "sqlite":
		dsn := cfg.DSN
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_busy_timeout=5000"
		}
		return DriverSQLite, dsn, nil
	case DriverLibSQL:
		if cfg.TursoURL != "" {
			return DriverLibSQL, fmt.Sprintf("%s?authToken=%s", cfg.TursoURL, cfg.TursoAuthToken), nil
		}
		return DriverLibSQL, cfg.DSN, nil
	case DriverPostgres, DriverMySQL:
		return cfg.Driver, cfg.DSN, nil
	}
	return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func (db *DB) Driver() string { return db.driver }

// Rebind converts ? placeholders to $n for postgres
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UpsertClause returns the dialect specific conflict clause for a table
// keyed on id, updating the named columns
func (db *DB) UpsertClause(columns ...string) string {
	sets := make([]string, len(columns))
	if db.driver == DriverMySQL {
		for i, c := range columns {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return " ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
}
