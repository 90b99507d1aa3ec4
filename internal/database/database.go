package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	_ "github.com/lib/pq"
	"instametrics/internal/structures"
	"io/fs"
	_ "modernc.org/sqlite"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// DB wraps the connection pool together with the SQL dialect it speaks.
type DB struct {
	Conn    *sql.DB
	Dialect Dialect
}

// New wraps an already opened pool. Migrations are not applied.
func New(conn *sql.DB, dialect Dialect) *DB {
	return &DB{Conn: conn, Dialect: dialect}
}

func NewDatabaseProvider(conf *structures.Config) (*DB, error) {
	return Open(conf.Database.Driver, conf.Database.DSN, conf.Database.MaxOpenConns)
}

// Open connects, pings and migrates the database.
func Open(driver, dsn string, maxOpen int) (*DB, error) {
	dialect := Dialect(driver)
	var driverName string
	switch dialect {
	case DialectSQLite:
		driverName = "sqlite"
		dsn = sqliteDSN(dsn)
	case DialectPostgres:
		driverName = "postgres"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite && isMemoryDSN(dsn) {
		// every pooled connection to :memory: would see its own empty database
		conn.SetMaxOpenConns(1)
	} else if maxOpen > 0 {
		conn.SetMaxOpenConns(maxOpen)
	}

	db := New(conn, dialect)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	if isMemoryDSN(dsn) {
		return dsn + "?_pragma=foreign_keys(1)"
	}
	return dsn + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.Conn.Close()
}

// Rebind rewrites ? placeholders into the dialect's positional form.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			inString = !inString
		}
		if ch == '?' && !inString {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// Migrate applies every embedded migration for the dialect that is not yet
// recorded in schema_migrations.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	dir := "migrations/" + string(db.Dialect)
	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, file := range files {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationFiles, dir+"/"+file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		err = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
			for i, stmt := range splitStatements(string(content)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute migration %s (statement %d): %w", file, i+1, err)
				}
			}
			_, err := tx.ExecContext(ctx, db.Rebind("INSERT INTO schema_migrations (filename) VALUES (?)"), file)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := db.Conn.QueryContext(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// splitStatements splits on semicolons outside single-quoted literals.
func splitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if ch == '\'' {
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteByte(ch)
				current.WriteByte(sql[i+1])
				i++
				continue
			}
			inString = !inString
		}

		if ch == ';' && !inString {
			if s := strings.TrimSpace(current.String()); s != "" {
				statements = append(statements, s)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		statements = append(statements, s)
	}
	return statements
}
