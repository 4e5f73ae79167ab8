package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/service"

	"github.com/gin-gonic/gin"
)

type MermasHandler struct {
	mermas           service.MermaService
	transformaciones service.TransformacionService
}

func NewMermasHandler(mermas service.MermaService, transformaciones service.TransformacionService) *MermasHandler {
	return &MermasHandler{mermas: mermas, transformaciones: transformaciones}
}

// Listar godoc
// @Summary      Listar mermas
// @Description  Mermas registradas con su valorización; filtra por producto, rango de fechas y origen automático/manual.
// @Tags         mermas
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id query string false "UUID del producto"
// @Param        desde       query string false "YYYY-MM-DD o RFC 3339"
// @Param        hasta       query string false "YYYY-MM-DD (inclusive) o RFC 3339"
// @Param        automatica  query string false "true | false"
// @Param        page        query int    false "Página"
// @Param        limit       query int    false "Tamaño de página"
// @Success      200  {object} dto.MermaListResponse
// @Router       /api/mermas [get]
func (h *MermasHandler) Listar(c *gin.Context) {
	var filter dto.LedgerFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.mermas.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Error al listar mermas")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReportePDF godoc
// @Summary      Reporte PDF de mermas
// @Tags         mermas
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        desde query string false "YYYY-MM-DD o RFC 3339"
// @Param        hasta query string false "YYYY-MM-DD (inclusive) o RFC 3339"
// @Success      200
// @Failure      422  {object} apierror.APIError
// @Router       /api/mermas/reporte.pdf [get]
func (h *MermasHandler) ReportePDF(c *gin.Context) {
	var filter dto.LedgerFilter
	if !bindQuery(c, &filter) {
		return
	}
	// Rendered into memory first so a failure can still answer with JSON.
	var buf bytes.Buffer
	if err := h.mermas.ReportePDF(c.Request.Context(), filter, &buf); err != nil {
		respondError(c, err, "Error al generar el reporte")
		return
	}
	nombre := fmt.Sprintf("mermas-%s.pdf", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, nombre))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// ListarTransformaciones godoc
// @Summary      Listar transformaciones
// @Tags         mermas
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id query string false "UUID del producto origen"
// @Param        desde       query string false "YYYY-MM-DD o RFC 3339"
// @Param        hasta       query string false "YYYY-MM-DD (inclusive) o RFC 3339"
// @Param        page        query int    false "Página"
// @Param        limit       query int    false "Tamaño de página"
// @Success      200  {object} dto.TransformacionListResponse
// @Router       /api/transformaciones [get]
func (h *MermasHandler) ListarTransformaciones(c *gin.Context) {
	var filter dto.LedgerFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.transformaciones.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Error al listar transformaciones")
		return
	}
	c.JSON(http.StatusOK, resp)
}
