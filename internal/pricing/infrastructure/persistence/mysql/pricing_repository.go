// Package mysql 定价历史的 GORM 仓储实现，MySQL 与 SQLite 共用
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/db"
	"gorm.io/gorm"
)

type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建并返回一个新的 pricingRepository 实例。
func NewPricingRepository(gdb *gorm.DB) domain.PricingRepository {
	return &pricingRepository{db: gdb}
}

// AutoMigrate 创建定价记录表
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&PricingResultModel{})
}

func (r *pricingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.Transaction(ctx, r.db, fn)
}

func (r *pricingRepository) Save(ctx context.Context, rec *domain.PricingRecord) error {
	model := toPricingResultModel(rec)
	if model == nil {
		return nil
	}
	if err := db.Conn(ctx, r.db).Create(model).Error; err != nil {
		return err
	}
	rec.ID = model.ID
	return nil
}

func (r *pricingRepository) GetLatest(ctx context.Context, symbol string) (*domain.PricingRecord, error) {
	var m PricingResultModel
	err := db.Conn(ctx, r.db).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Order("id desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return toPricingRecord(&m), nil
}

func (r *pricingRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingRecord, error) {
	var models []PricingResultModel
	if err := db.Conn(ctx, r.db).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Order("id desc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.PricingRecord, len(models))
	for i := range models {
		res[i] = toPricingRecord(&models[i])
	}
	return res, nil
}
