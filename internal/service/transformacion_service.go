package service

import (
	"context"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/repository"
)

type TransformacionService interface {
	Listar(ctx context.Context, filter dto.LedgerFilter) (*dto.TransformacionListResponse, error)
}

type transformacionService struct {
	repo repository.TransformacionRepository
	loc  *time.Location
}

func NewTransformacionService(repo repository.TransformacionRepository, loc *time.Location) TransformacionService {
	if loc == nil {
		loc = time.UTC
	}
	return &transformacionService{repo: repo, loc: loc}
}

// Listar matches filter.ProductoID against both ends of the transformation.
func (s *transformacionService) Listar(ctx context.Context, filter dto.LedgerFilter) (*dto.TransformacionListResponse, error) {
	f, err := parseLedgerFilter(filter, s.loc)
	if err != nil {
		return nil, err
	}
	list, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	page, limit, _ := f.Normalize()
	data := make([]dto.TransformacionResponse, 0, len(list))
	for _, t := range list {
		r := dto.TransformacionResponse{
			ID:                 t.ID.String(),
			ProductoOrigenID:   t.ProductoOrigenID.String(),
			DescripcionDestino: t.DescripcionDestino,
			Cantidad:           t.Cantidad,
			IDUsuario:          t.IDUsuario,
			Automatica:         t.Automatica,
			CreatedAt:          t.CreatedAt,
		}
		if t.ProductoOrigen != nil {
			r.ProductoOrigen = t.ProductoOrigen.Nombre
		}
		if t.ProductoDestinoID != nil {
			id := t.ProductoDestinoID.String()
			r.ProductoDestinoID = &id
		}
		data = append(data, r)
	}
	return &dto.TransformacionListResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}
