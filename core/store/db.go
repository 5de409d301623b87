package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"status-service/config"
	"status-service/core/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DB is a *sql.DB that remembers which SQL dialect it speaks.
type DB struct {
	*sql.DB
	dialect string
}

func (d *DB) Dialect() string { return d.dialect }

func (d *DB) IsPostgres() bool { return d.dialect == config.DriverPostgres }

// Rebind rewrites ? placeholders to $n for postgres.
func (d *DB) Rebind(query string) string {
	if !d.IsPostgres() || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// NewDB opens the configured database. It does not ping; callers that need a
// live connection use Ping.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*DB, error) {
	if cfg.IsPostgres() {
		db, err := sql.Open("pgx", strings.TrimSpace(cfg.DBURL))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		if logger != nil {
			logger.Printf("database: postgres")
		}
		return &DB{DB: db, dialect: config.DriverPostgres}, nil
	}
	path := SQLitePath(cfg.DBURL)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; keeps pragmas and transactions on one connection
	db.SetMaxOpenConns(1)
	if logger != nil {
		logger.Printf("database: sqlite %s", path)
	}
	return &DB{DB: db, dialect: config.DriverSQLite}, nil
}

// Ping checks the connection once.
func (d *DB) Ping(ctx context.Context) error {
	return d.PingContext(ctx)
}

// SQLitePath strips SQLAlchemy-style URL prefixes so DATABASE_URL values like
// sqlite:///./incidents.db keep working.
func SQLitePath(raw string) string {
	path := strings.TrimSpace(raw)
	for _, prefix := range []string{"sqlite+aiosqlite:///", "sqlite:///", "file:"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		path = "incidents.db"
	}
	return path
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
}
