package library

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/descriptor"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore is a shared effect library backed by PostgreSQL.
type PostgresStore struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// OpenPostgres connects, verifies the connection and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{Pool: pool, log: logger}, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Save upserts the entry. The conflict branch only fires when the
// fingerprint differs, so an identical source returns no row.
func (s *PostgresStore) Save(ctx context.Context, e Entry) (SaveResult, error) {
	key, err := entryKey(e.Name)
	if err != nil {
		return 0, err
	}
	if e.Fingerprint == "" {
		e.Fingerprint = Fingerprint(e.Source)
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	var inserted bool
	err = s.Pool.QueryRow(ctx,
		`INSERT INTO effects (key, name, format, source, fingerprint, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (key) DO UPDATE SET
		     name = EXCLUDED.name, format = EXCLUDED.format, source = EXCLUDED.source,
		     fingerprint = EXCLUDED.fingerprint, updated_at = EXCLUDED.updated_at
		 WHERE effects.fingerprint <> EXCLUDED.fingerprint
		 RETURNING (xmax = 0)`,
		key, e.Name, string(e.Format), e.Source, e.Fingerprint, e.UpdatedAt,
	).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return Unchanged, nil
	}
	if err != nil {
		return 0, fmt.Errorf("save effect %q: %w", e.Name, err)
	}

	s.log.Debug("effect saved", zap.String("name", e.Name), zap.Bool("inserted", inserted))
	if inserted {
		return Created, nil
	}
	return Updated, nil
}

func (s *PostgresStore) Load(ctx context.Context, name string) (Entry, error) {
	key, err := entryKey(name)
	if err != nil {
		return Entry{}, err
	}
	var (
		e      Entry
		format string
	)
	err = s.Pool.QueryRow(ctx,
		`SELECT key, name, format, source, fingerprint, updated_at
		 FROM effects WHERE key = $1`, key,
	).Scan(&e.Key, &e.Name, &format, &e.Source, &e.Fingerprint, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load effect %q: %w", name, err)
	}
	e.Format = descriptor.Format(format)
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT key, name, format, fingerprint, updated_at FROM effects ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list effects: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			format string
		)
		if err := rows.Scan(&e.Key, &e.Name, &format, &e.Fingerprint, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan effect: %w", err)
		}
		e.Format = descriptor.Format(format)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list effects: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	key, err := entryKey(name)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM effects WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete effect %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}
