package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bher20/shipratemanager/internal/metrics"
	"github.com/bher20/shipratemanager/pkg/shipping"
)

type PostgresPoolStorage struct {
	pool *pgxpool.Pool

	// Advisory locks are session scoped, so each held lock pins the
	// connection that took it until release.
	mu    sync.Mutex
	locks map[int64]*pgxpool.Conn
}

func OpenPostgresPool(ctx context.Context, dsn string) (*PostgresPoolStorage, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/shipratemanager?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &PostgresPoolStorage{pool: pool, locks: make(map[int64]*pgxpool.Conn)}, nil
}

func (s *PostgresPoolStorage) Close() error {
	s.mu.Lock()
	for key, conn := range s.locks {
		conn.Release()
		delete(s.locks, key)
	}
	s.mu.Unlock()
	s.pool.Close()
	return nil
}

func (s *PostgresPoolStorage) Ping(ctx context.Context) error {
	s.recordPoolStats()
	return s.pool.Ping(ctx)
}

// ReplaceShippingCosts stores carrier columns as DOUBLE PRECISION.
func (s *PostgresPoolStorage) ReplaceShippingCosts(ctx context.Context, rows shipping.Table) error {
	defer s.recordPoolStats()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, dropTableSQL()); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL("DOUBLE PRECISION")); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	batch := &pgx.Batch{}
	insert := insertSQL(dollarN)
	for _, r := range rows {
		batch.Queue(insert, r.Values()...)
	}
	br := tx.SendBatch(ctx, batch)
	for _, r := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert desi %d: %w", r.Desi, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresPoolStorage) ListShippingCosts(ctx context.Context) (shipping.Table, error) {
	ok, err := s.hasTable(ctx)
	if err != nil || !ok {
		return shipping.Table{}, err
	}

	rows, err := s.pool.Query(ctx, selectSQL()+" ORDER BY desi")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := shipping.Table{}
	for rows.Next() {
		var r shipping.Row
		if err := rows.Scan(scanDest(&r)...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresPoolStorage) GetShippingCost(ctx context.Context, desi int) (*shipping.Row, error) {
	ok, err := s.hasTable(ctx)
	if err != nil || !ok {
		return nil, err
	}

	var r shipping.Row
	if err := s.pool.QueryRow(ctx, selectSQL()+" WHERE desi = $1", desi).Scan(scanDest(&r)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *PostgresPoolStorage) hasTable(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, tableName).Scan(&exists)
	return exists, err
}

func (s *PostgresPoolStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[key]; held {
		return false, nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		conn.Release()
		return false, err
	}
	if !ok {
		conn.Release()
		return false, nil
	}
	s.locks[key] = conn
	return true, nil
}

func (s *PostgresPoolStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	s.mu.Lock()
	conn, held := s.locks[key]
	delete(s.locks, key)
	s.mu.Unlock()
	if !held {
		return false, nil
	}
	defer conn.Release()

	var ok bool
	err := conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, key).Scan(&ok)
	return ok, err
}

func (s *PostgresPoolStorage) recordPoolStats() {
	st := s.pool.Stat()
	metrics.UpdateDBPoolMetrics("postgrespool",
		float64(st.TotalConns()), float64(st.IdleConns()), float64(st.AcquiredConns()))
}
