package repository

import (
	"context"
	"time"

	"inventnet/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling unit testing with in-memory stubs.
type ProductoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	// ListCandidatos returns active products with at least one lifecycle flag,
	// whatever their stock.
	ListCandidatos(ctx context.Context) ([]model.Producto, error)

	// Used inside transactions: callers must pass the tx instance.

	// AvanzarCicloTx is the compare-and-swap of one transition: it writes the new
	// stock and anchor only if both still hold the values the caller read.
	// Returns false when another pass got there first.
	AvanzarCicloTx(tx *gorm.DB, id uuid.UUID, anclaLeida time.Time, stockLeido, stockNuevo int, nuevaAncla time.Time) (bool, error)
	// LockByIDTx reads a product with SELECT ... FOR UPDATE.
	LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error)
	UpdateStockTx(tx *gorm.DB, id uuid.UUID, delta int) error
	ReiniciarAnclaTx(tx *gorm.DB, id uuid.UUID, ancla time.Time) error
	// ActualizarCicloTx writes the lifecycle policy and anchor of p.
	// stock_actual is never touched.
	ActualizarCicloTx(tx *gorm.DB, p *model.Producto) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) ListCandidatos(ctx context.Context) ([]model.Producto, error) {
	var productos []model.Producto
	err := r.db.WithContext(ctx).
		Where("activo = true AND (cambia_estado = true OR cambia_apariencia = true)").
		Order("fecha_ultima_actualizacion ASC, id ASC").
		Find(&productos).Error
	return productos, err
}

func (r *productoRepo) AvanzarCicloTx(tx *gorm.DB, id uuid.UUID, anclaLeida time.Time, stockLeido, stockNuevo int, nuevaAncla time.Time) (bool, error) {
	res := tx.Model(&model.Producto{}).
		Where("id = ? AND fecha_ultima_actualizacion = ? AND stock_actual = ?", id, anclaLeida, stockLeido).
		Updates(map[string]interface{}{
			"stock_actual":               stockNuevo,
			"fecha_ultima_actualizacion": nuevaAncla,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productoRepo) LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) UpdateStockTx(tx *gorm.DB, id uuid.UUID, delta int) error {
	return tx.Model(&model.Producto{}).Where("id = ?", id).
		Update("stock_actual", gorm.Expr("stock_actual + ?", delta)).Error
}

func (r *productoRepo) ReiniciarAnclaTx(tx *gorm.DB, id uuid.UUID, ancla time.Time) error {
	return tx.Model(&model.Producto{}).Where("id = ?", id).
		Update("fecha_ultima_actualizacion", ancla).Error
}

func (r *productoRepo) ActualizarCicloTx(tx *gorm.DB, p *model.Producto) error {
	// A map so false flags and a nil destination are written too.
	return tx.Model(&model.Producto{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"cambia_estado":              p.CambiaEstado,
			"cambia_apariencia":          p.CambiaApariencia,
			"tiempo_cambio":              p.TiempoCambio,
			"cantidad_cambio":            p.CantidadCambio,
			"producto_destino_id":        p.ProductoDestinoID,
			"descripcion_destino":        p.DescripcionDestino,
			"fecha_ultima_actualizacion": p.FechaUltimaActualizacion,
		}).Error
}

func (r *productoRepo) DB() *gorm.DB { return r.db }
