package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/infra"
	"inventnet/internal/model"
	"inventnet/internal/repository"
)

// reporteMaxFilas caps the PDF report; larger ranges must be narrowed.
const reporteMaxFilas = 500

// MermaService exposes the write-off ledger. Rows are created only by
// CambiosService; this service reads.
type MermaService interface {
	Listar(ctx context.Context, filter dto.LedgerFilter) (*dto.MermaListResponse, error)
	ReportePDF(ctx context.Context, filter dto.LedgerFilter, w io.Writer) error
}

type mermaService struct {
	repo  repository.MermaRepository
	loc   *time.Location
	clock func() time.Time
}

func NewMermaService(repo repository.MermaRepository, loc *time.Location) MermaService {
	if loc == nil {
		loc = time.UTC
	}
	return &mermaService{repo: repo, loc: loc, clock: time.Now}
}

func mermaToResponse(m *model.Merma) dto.MermaResponse {
	r := dto.MermaResponse{
		ID:            m.ID.String(),
		ProductoID:    m.ProductoID.String(),
		Cantidad:      m.Cantidad,
		CostoUnitario: m.CostoUnitario,
		CostoTotal:    m.CostoTotal,
		Motivo:        m.Motivo,
		IDUsuario:     m.IDUsuario,
		Automatica:    m.Automatica,
		CreatedAt:     m.CreatedAt,
	}
	if m.Producto != nil {
		r.ProductoNombre = m.Producto.Nombre
	}
	return r
}

func (s *mermaService) Listar(ctx context.Context, filter dto.LedgerFilter) (*dto.MermaListResponse, error) {
	f, err := parseLedgerFilter(filter, s.loc)
	if err != nil {
		return nil, err
	}
	mermas, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	costo, err := s.repo.CostoTotal(ctx, f)
	if err != nil {
		return nil, err
	}

	page, limit, _ := f.Normalize()
	data := make([]dto.MermaResponse, 0, len(mermas))
	for i := range mermas {
		data = append(data, mermaToResponse(&mermas[i]))
	}
	return &dto.MermaListResponse{
		Data:       data,
		Total:      total,
		CostoTotal: costo,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ReportePDF renders every merma in the filtered range (pagination ignored).
func (s *mermaService) ReportePDF(ctx context.Context, filter dto.LedgerFilter, w io.Writer) error {
	f, err := parseLedgerFilter(filter, s.loc)
	if err != nil {
		return err
	}
	f.Page, f.Limit = 1, reporteMaxFilas

	mermas, total, err := s.repo.List(ctx, f)
	if err != nil {
		return err
	}
	if total > reporteMaxFilas {
		return invalido("el reporte excede %d filas (%d); acote el rango de fechas", reporteMaxFilas, total)
	}
	costo, err := s.repo.CostoTotal(ctx, f)
	if err != nil {
		return err
	}

	periodo := ""
	if filter.Desde != "" || filter.Hasta != "" {
		periodo = fmt.Sprintf("%s a %s", valorOr(filter.Desde, "inicio"), valorOr(filter.Hasta, "hoy"))
	}
	return infra.GenerateReporteMermasPDF(w, infra.ReporteMermas{
		Titulo:     "Reporte de mermas",
		Periodo:    periodo,
		Mermas:     mermas,
		CostoTotal: costo,
		Generado:   s.clock().In(s.loc),
	})
}

func valorOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
