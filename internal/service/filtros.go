package service

import (
	"strings"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/repository"

	"github.com/google/uuid"
)

// parseLedgerFilter converts the query-string DTO into a repository filter.
// Dates accept RFC 3339 or YYYY-MM-DD; a bare "hasta" date is inclusive
// (the whole day is covered). Bare dates are read in loc.
func parseLedgerFilter(f dto.LedgerFilter, loc *time.Location) (repository.LedgerFilter, error) {
	out := repository.LedgerFilter{Tipo: f.Tipo, Page: f.Page, Limit: f.Limit}

	if f.ProductoID != "" {
		id, err := uuid.Parse(f.ProductoID)
		if err != nil {
			return out, invalido("producto_id inválido: %v", err)
		}
		out.ProductoID = &id
	}
	if f.Desde != "" {
		t, _, err := parseFecha(f.Desde, loc)
		if err != nil {
			return out, invalido("desde inválido: %v", err)
		}
		out.Desde = &t
	}
	if f.Hasta != "" {
		t, soloFecha, err := parseFecha(f.Hasta, loc)
		if err != nil {
			return out, invalido("hasta inválido: %v", err)
		}
		if soloFecha {
			t = t.AddDate(0, 0, 1)
		}
		out.Hasta = &t
	}
	switch strings.ToLower(f.Automatica) {
	case "":
	case "true":
		v := true
		out.Automatica = &v
	case "false":
		v := false
		out.Automatica = &v
	default:
		return out, invalido("automatica debe ser true o false")
	}
	return out, nil
}

func parseFecha(s string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
