package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerFilter defines filters for listing the append-only ledgers
// (mermas, transformaciones, movimientos de stock).
type LedgerFilter struct {
	ProductoID *uuid.UUID
	Desde      *time.Time
	Hasta      *time.Time
	Automatica *bool
	Tipo       string
	Page       int
	Limit      int
}

// Normalize clamps pagination the same way for every ledger.
func (f LedgerFilter) Normalize() (page, limit, offset int) {
	page, limit = f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

func (f LedgerFilter) applyRango(q *gorm.DB) *gorm.DB {
	if f.Desde != nil {
		q = q.Where("created_at >= ?", *f.Desde)
	}
	if f.Hasta != nil {
		q = q.Where("created_at < ?", *f.Hasta)
	}
	return q
}
