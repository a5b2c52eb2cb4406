package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage opens a GORM-backed store. driver is "postgres" or
// "gorm-sqlite".
func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	switch driver {
	case "postgres":
		gormDialector = postgres.Open(dsn)
	case "gorm-sqlite":
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStorage) ReplaceShippingCosts(ctx context.Context, rows shipping.Table) error {
	models := make([]ShippingCost, len(rows))
	for i, r := range rows {
		models[i] = shippingCostFromRow(r)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(&ShippingCost{}); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
		if err := tx.Migrator().CreateTable(&ShippingCost{}); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(models, 50).Error; err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
		return nil
	})
}

func (s *GormStorage) ListShippingCosts(ctx context.Context) (shipping.Table, error) {
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(&ShippingCost{}) {
		return shipping.Table{}, nil
	}
	var models []ShippingCost
	if err := db.Order("desi").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make(shipping.Table, len(models))
	for i, m := range models {
		out[i] = m.row()
	}
	return out, nil
}

func (s *GormStorage) GetShippingCost(ctx context.Context, desi int) (*shipping.Row, error) {
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(&ShippingCost{}) {
		return nil, nil
	}
	var m ShippingCost
	result := db.First(&m, "desi = ?", desi)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	r := m.row()
	return &r, nil
}

func (s *GormStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() == "postgres" {
		var ok bool
		err := s.db.WithContext(ctx).Raw("SELECT pg_try_advisory_lock(?)", key).Scan(&ok).Error
		return ok, err
	}
	// For SQLite, no advisory locks, assume always successful (single instance)
	return true, nil
}

func (s *GormStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() == "postgres" {
		var ok bool
		err := s.db.WithContext(ctx).Raw("SELECT pg_advisory_unlock(?)", key).Scan(&ok).Error
		return ok, err
	}
	return true, nil
}
