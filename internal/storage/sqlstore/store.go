package sqlstore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/storage/sqlstore/migrations"
)

// Dialect selects the SQL flavor.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect accepts the configured driver name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("sqlstore: unknown driver %q", s)
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

// Store implements the credential ports on top of *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database. The schema is not touched; call Migrate.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open connects with the given driver and DSN and applies migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := New(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// Migrate brings the schema up to date.
func (s *Store) Migrate(ctx context.Context) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(s.dialect.gooseDialect()); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites "?" placeholders to "$N" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
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

func encodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBytes(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// Get returns the stored record of username or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, username string) (*domain.StoredCredential, error) {
	query := s.rebind(`SELECT salt, hash, created_at FROM credentials WHERE username = ?`)

	var salt, hash string
	var created int64
	err := s.db.QueryRowContext(ctx, query, username).Scan(&salt, &hash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound.WithDetailsf("user %q", username)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rec := &domain.StoredCredential{
		Username:  username,
		CreatedAt: time.UnixMilli(created).UTC(),
	}
	if rec.Salt, err = decodeBytes(salt); err != nil {
		return nil, fmt.Errorf("decode salt of %q: %w", username, err)
	}
	if rec.Hash, err = decodeBytes(hash); err != nil {
		return nil, fmt.Errorf("decode hash of %q: %w", username, err)
	}
	return rec, nil
}

// LookupSalt implements service.CredentialStore.
func (s *Store) LookupSalt(ctx context.Context, username string) ([]byte, error) {
	rec, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return rec.Salt, nil
}

// LookupHash implements service.CredentialStore.
func (s *Store) LookupHash(ctx context.Context, username string) ([]byte, error) {
	rec, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return rec.Hash, nil
}

// PutCredential inserts or replaces a record.
func (s *Store) PutCredential(ctx context.Context, rec *domain.StoredCredential) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	query := s.rebind(`INSERT INTO credentials (username, salt, hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
		  salt = excluded.salt,
		  hash = excluded.hash,
		  created_at = excluded.created_at`)

	_, err := s.db.ExecContext(ctx, query,
		rec.Username, encodeBytes(rec.Salt), encodeBytes(rec.Hash), created.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteCredential removes a record. Returns domain.ErrNotFound if absent.
func (s *Store) DeleteCredential(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM credentials WHERE username = ?`), username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound.WithDetailsf("user %q", username)
	}
	return nil
}

// List returns all usernames in order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username FROM credentials ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}
