package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/glebarez/go-sqlite"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

func OpenSQLite(dsn string) (*SQLiteStorage, error) {
	if dsn == "" {
		dsn = "shipping_costs.db"
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases coherent across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error { return s.db.Close() }

func (s *SQLiteStorage) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStorage) ReplaceShippingCosts(ctx context.Context, rows shipping.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dropTableSQL()); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL("REAL")); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(questionMark))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			return fmt.Errorf("insert desi %d: %w", r.Desi, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) ListShippingCosts(ctx context.Context) (shipping.Table, error) {
	ok, err := s.hasTable(ctx)
	if err != nil || !ok {
		return shipping.Table{}, err
	}

	rows, err := s.db.QueryContext(ctx, selectSQL()+" ORDER BY desi")
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

func (s *SQLiteStorage) GetShippingCost(ctx context.Context, desi int) (*shipping.Row, error) {
	ok, err := s.hasTable(ctx)
	if err != nil || !ok {
		return nil, err
	}

	var r shipping.Row
	row := s.db.QueryRowContext(ctx, selectSQL()+" WHERE desi = ?", desi)
	if err := row.Scan(scanDest(&r)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStorage) hasTable(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
