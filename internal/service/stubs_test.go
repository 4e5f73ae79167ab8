package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"inventnet/internal/infra"
	"inventnet/internal/model"
	"inventnet/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory ProductoRepository stub ────────────────────────────────────────
// Reads return copies so the service cannot mutate stored rows behind the
// compare-and-swap, the way a real SELECT behaves.

type stubProductoRepo struct {
	productos map[uuid.UUID]*model.Producto
	// lockErr injects a failure when a given product is read under lock.
	lockErr map[uuid.UUID]error
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{
		productos: make(map[uuid.UUID]*model.Producto),
		lockErr:   make(map[uuid.UUID]error),
	}
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductoRepo) ListCandidatos(_ context.Context) ([]model.Producto, error) {
	var result []model.Producto
	for _, p := range r.productos {
		if p.Activo && p.TieneCicloDeVida() {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FechaUltimaActualizacion.Before(result[j].FechaUltimaActualizacion)
	})
	return result, nil
}

func (r *stubProductoRepo) AvanzarCicloTx(_ *gorm.DB, id uuid.UUID, anclaLeida time.Time, stockLeido, stockNuevo int, nuevaAncla time.Time) (bool, error) {
	p, ok := r.productos[id]
	if !ok || !p.FechaUltimaActualizacion.Equal(anclaLeida) || p.StockActual != stockLeido {
		return false, nil
	}
	p.StockActual = stockNuevo
	p.FechaUltimaActualizacion = nuevaAncla
	return true, nil
}

func (r *stubProductoRepo) LockByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	if err := r.lockErr[id]; err != nil {
		return nil, err
	}
	return r.FindByID(context.Background(), id)
}

func (r *stubProductoRepo) UpdateStockTx(_ *gorm.DB, id uuid.UUID, delta int) error {
	p, ok := r.productos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.StockActual += delta
	return nil
}

func (r *stubProductoRepo) ReiniciarAnclaTx(_ *gorm.DB, id uuid.UUID, ancla time.Time) error {
	p, ok := r.productos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.FechaUltimaActualizacion = ancla
	return nil
}

func (r *stubProductoRepo) ActualizarCicloTx(_ *gorm.DB, p *model.Producto) error {
	actual, ok := r.productos[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	actual.CambiaEstado = p.CambiaEstado
	actual.CambiaApariencia = p.CambiaApariencia
	actual.TiempoCambio = p.TiempoCambio
	actual.CantidadCambio = p.CantidadCambio
	actual.ProductoDestinoID = p.ProductoDestinoID
	actual.DescripcionDestino = p.DescripcionDestino
	actual.FechaUltimaActualizacion = p.FechaUltimaActualizacion
	return nil
}

// DB returns nil: runTx then calls the callback directly with a nil tx.
func (r *stubProductoRepo) DB() *gorm.DB { return nil }

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

// ── Ledger stubs ─────────────────────────────────────────────────────────────

type stubMermaRepo struct {
	mermas []model.Merma
}

func (r *stubMermaRepo) CreateTx(_ *gorm.DB, m *model.Merma) error {
	r.mermas = append(r.mermas, *m)
	return nil
}

func (r *stubMermaRepo) List(_ context.Context, f repository.LedgerFilter) ([]model.Merma, int64, error) {
	var out []model.Merma
	for _, m := range r.mermas {
		if f.ProductoID != nil && m.ProductoID != *f.ProductoID {
			continue
		}
		if f.Automatica != nil && m.Automatica != *f.Automatica {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMermaRepo) CostoTotal(ctx context.Context, f repository.LedgerFilter) (decimal.Decimal, error) {
	list, _, _ := r.List(ctx, f)
	total := decimal.Zero
	for _, m := range list {
		total = total.Add(m.CostoTotal)
	}
	return total, nil
}

type stubTransformacionRepo struct {
	transformaciones []model.Transformacion
}

func (r *stubTransformacionRepo) CreateTx(_ *gorm.DB, t *model.Transformacion) error {
	r.transformaciones = append(r.transformaciones, *t)
	return nil
}

func (r *stubTransformacionRepo) List(_ context.Context, _ repository.LedgerFilter) ([]model.Transformacion, int64, error) {
	return r.transformaciones, int64(len(r.transformaciones)), nil
}

type stubMovimientoRepo struct {
	movimientos []model.MovimientoStock
}

func (r *stubMovimientoRepo) CreateTx(_ *gorm.DB, m *model.MovimientoStock) error {
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubMovimientoRepo) List(_ context.Context, f repository.LedgerFilter) ([]model.MovimientoStock, int64, error) {
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if f.ProductoID != nil && m.ProductoID != *f.ProductoID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMovimientoRepo) porProducto(id uuid.UUID) []model.MovimientoStock {
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if m.ProductoID == id {
			out = append(out, m)
		}
	}
	return out
}

// ── Locker stub ──────────────────────────────────────────────────────────────

type busyLocker struct{}

func (busyLocker) Adquirir(context.Context, string) (func(), error) {
	return nil, infra.ErrLockOcupado
}

type countingLocker struct {
	mu         sync.Mutex
	adquiridos int
	liberados  int
}

func (l *countingLocker) Adquirir(context.Context, string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adquiridos++
	return func() {
		l.mu.Lock()
		l.liberados++
		l.mu.Unlock()
	}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

var errLecturaSimulada = errors.New("lectura simulada fallida")

type fixture struct {
	productos        *stubProductoRepo
	mermas           *stubMermaRepo
	transformaciones *stubTransformacionRepo
	movimientos      *stubMovimientoRepo
	ahora            time.Time
}

func newFixture() *fixture {
	return &fixture{
		productos:        newStubProductoRepo(),
		mermas:           &stubMermaRepo{},
		transformaciones: &stubTransformacionRepo{},
		movimientos:      &stubMovimientoRepo{},
		ahora:            time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) seed(nombre string, stock, tiempo int, ancla time.Time) *model.Producto {
	p := &model.Producto{
		ID:                       uuid.New(),
		CodigoBarras:             uuid.NewString()[:13],
		Nombre:                   nombre,
		Categoria:                "TEST",
		PrecioCosto:              decimal.NewFromFloat(2.50),
		PrecioVenta:              decimal.NewFromFloat(4.00),
		StockActual:              stock,
		StockMinimo:              1,
		UnidadMedida:             "UN",
		Activo:                   true,
		TiempoCambio:             tiempo,
		FechaUltimaActualizacion: ancla,
	}
	f.productos.productos[p.ID] = p
	return p
}

func (f *fixture) diasAtras(n int) time.Time {
	return f.ahora.Add(-time.Duration(n) * 24 * time.Hour)
}

func (f *fixture) clock() time.Time { return f.ahora }

func ptrInt(v int) *int { return &v }

func ptrString(v string) *string { return &v }
