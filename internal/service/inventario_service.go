package service

import (
	"context"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/repository"
)

// InventarioService exposes the stock movement audit trail. Every stock
// change (merma, transformación, manual adjustment) leaves one row here.
type InventarioService interface {
	ListarMovimientos(ctx context.Context, filter dto.LedgerFilter) (*dto.MovimientoListResponse, error)
}

type inventarioService struct {
	repo repository.MovimientoStockRepository
	loc  *time.Location
}

func NewInventarioService(repo repository.MovimientoStockRepository, loc *time.Location) InventarioService {
	if loc == nil {
		loc = time.UTC
	}
	return &inventarioService{repo: repo, loc: loc}
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter dto.LedgerFilter) (*dto.MovimientoListResponse, error) {
	f, err := parseLedgerFilter(filter, s.loc)
	if err != nil {
		return nil, err
	}
	movs, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	page, limit, _ := f.Normalize()
	data := make([]dto.MovimientoResponse, 0, len(movs))
	for _, m := range movs {
		r := dto.MovimientoResponse{
			ID:            m.ID.String(),
			ProductoID:    m.ProductoID.String(),
			Tipo:          m.Tipo,
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			Motivo:        m.Motivo,
			CreatedAt:     m.CreatedAt,
		}
		if m.ReferenciaID != nil {
			ref := m.ReferenciaID.String()
			r.ReferenciaID = &ref
		}
		data = append(data, r)
	}
	return &dto.MovimientoListResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}
