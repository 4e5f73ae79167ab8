package repository

import (
	"context"

	"inventnet/internal/model"

	"gorm.io/gorm"
)

type TransformacionRepository interface {
	CreateTx(tx *gorm.DB, t *model.Transformacion) error
	List(ctx context.Context, filter LedgerFilter) ([]model.Transformacion, int64, error)
}

type transformacionRepo struct{ db *gorm.DB }

func NewTransformacionRepository(db *gorm.DB) TransformacionRepository {
	return &transformacionRepo{db: db}
}

func (r *transformacionRepo) CreateTx(tx *gorm.DB, t *model.Transformacion) error {
	return tx.Create(t).Error
}

func (r *transformacionRepo) List(ctx context.Context, filter LedgerFilter) ([]model.Transformacion, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Transformacion{})
	if filter.ProductoID != nil {
		q = q.Where("producto_origen_id = ? OR producto_destino_id = ?", *filter.ProductoID, *filter.ProductoID)
	}
	if filter.Automatica != nil {
		q = q.Where("automatica = ?", *filter.Automatica)
	}
	q = filter.applyRango(q).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := filter.Normalize()
	var list []model.Transformacion
	err := q.Preload("ProductoOrigen").Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}
