package infra

// pdf.go — Merma report generation using go-pdf/fpdf.
// A4 portrait with:
//   - Title and generation timestamp
//   - Applied period (if any)
//   - Table (fecha, producto, cantidad, costo unitario, costo total, origen)
//   - Bold grand total
//
// The document is streamed to the given writer; nothing is written to disk.

import (
	"fmt"
	"io"
	"time"

	"inventnet/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ReporteMermas is the input of GenerateReporteMermasPDF.
type ReporteMermas struct {
	Titulo     string
	Periodo    string // free text, e.g. "2026-01-01 a 2026-01-31"; empty = all
	Mermas     []model.Merma
	CostoTotal decimal.Decimal
	Generado   time.Time
}

// GenerateReporteMermasPDF renders the report and writes it to w.
func GenerateReporteMermasPDF(w io.Writer, r ReporteMermas) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// Core fonts are cp1252; product names carry accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(r.Titulo), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Generado: "+r.Generado.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if r.Periodo != "" {
		pdf.CellFormat(contentW, 5, tr("Período: "+r.Periodo), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// ── Table header ─────────────────────────────────────────────────────────
	cols := []struct {
		titulo string
		ancho  float64
		align  string
	}{
		{"Fecha", 0.15, "L"},
		{"Producto", 0.37, "L"},
		{"Cant", 0.08, "R"},
		{"Costo unit.", 0.14, "R"},
		{"Costo total", 0.14, "R"},
		{"Origen", 0.12, "C"},
	}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range cols {
		pdf.CellFormat(contentW*c.ancho, 6, c.titulo, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	// ── Rows ─────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 8)
	for _, m := range r.Mermas {
		nombre := m.ProductoID.String()
		if m.Producto != nil {
			nombre = m.Producto.Nombre
		}
		if runes := []rune(nombre); len(runes) > 45 {
			nombre = string(runes[:44]) + "…"
		}
		origen := "manual"
		if m.Automatica {
			origen = "automática"
		}
		valores := []string{
			m.CreatedAt.Format("02/01/2006"),
			nombre,
			fmt.Sprintf("%d", m.Cantidad),
			"$" + m.CostoUnitario.StringFixed(2),
			"$" + m.CostoTotal.StringFixed(2),
			origen,
		}
		for i, c := range cols {
			pdf.CellFormat(contentW*c.ancho, 5, tr(valores[i]), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Mermas) == 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 6, "Sin mermas en el rango seleccionado", "1", 1, "C", false, 0, "")
	}

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.74, 7, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(contentW*0.26, 7, "$"+r.CostoTotal.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write report: %w", err)
	}
	return nil
}
