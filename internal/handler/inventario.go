package handler

import (
	"net/http"

	"inventnet/internal/dto"
	"inventnet/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// ListarMovimientos godoc
// @Summary      Movimientos de stock
// @Description  Libro de movimientos: ingresos, ajustes, mermas y transformaciones.
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id query string false "UUID del producto"
// @Param        tipo        query string false "ingreso | ajuste_manual | merma | transformacion_salida | transformacion_entrada"
// @Param        desde       query string false "YYYY-MM-DD o RFC 3339"
// @Param        hasta       query string false "YYYY-MM-DD (inclusive) o RFC 3339"
// @Success      200  {object} dto.MovimientoListResponse
// @Router       /api/inventario/movimientos [get]
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.LedgerFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Error al listar movimientos")
		return
	}
	c.JSON(http.StatusOK, resp)
}
