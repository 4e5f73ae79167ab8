package repository

import (
	"context"

	"inventnet/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MermaRepository is append-only: there is no Update or Delete.
type MermaRepository interface {
	CreateTx(tx *gorm.DB, m *model.Merma) error
	List(ctx context.Context, filter LedgerFilter) ([]model.Merma, int64, error)
	// CostoTotal sums the valuation of every merma matching the filter (all pages).
	CostoTotal(ctx context.Context, filter LedgerFilter) (decimal.Decimal, error)
}

type mermaRepo struct{ db *gorm.DB }

func NewMermaRepository(db *gorm.DB) MermaRepository { return &mermaRepo{db: db} }

func (r *mermaRepo) CreateTx(tx *gorm.DB, m *model.Merma) error {
	return tx.Create(m).Error
}

func (r *mermaRepo) filtered(ctx context.Context, filter LedgerFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Merma{})
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.Automatica != nil {
		q = q.Where("automatica = ?", *filter.Automatica)
	}
	return filter.applyRango(q)
}

func (r *mermaRepo) List(ctx context.Context, filter LedgerFilter) ([]model.Merma, int64, error) {
	q := r.filtered(ctx, filter).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := filter.Normalize()
	var mermas []model.Merma
	err := q.Preload("Producto").Order("created_at DESC").Offset(offset).Limit(limit).Find(&mermas).Error
	return mermas, total, err
}

func (r *mermaRepo) CostoTotal(ctx context.Context, filter LedgerFilter) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.filtered(ctx, filter).Select("COALESCE(SUM(costo_total), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
