package handler

import (
	"net/http"

	"inventnet/internal/dto"
	"inventnet/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductosHandler struct{ svc service.ProductoService }

func NewProductosHandler(svc service.ProductoService) *ProductosHandler {
	return &ProductosHandler{svc: svc}
}

// ObtenerPorID godoc
// @Summary      Obtener producto
// @Tags         productos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID del producto"
// @Success      200  {object} dto.ProductoResponse
// @Failure      404  {object} apierror.APIError
// @Router       /api/productos/{id} [get]
func (h *ProductosHandler) ObtenerPorID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Error al obtener producto")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfigurarCiclo godoc
// @Summary      Configurar cambios automáticos
// @Description  Define si el producto se da de baja (merma) o se transforma en otro al vencer tiempo_cambio días.
// @Description  Reinicia la fecha de referencia del ciclo.
// @Tags         productos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                     true "UUID del producto"
// @Param        body body     dto.ConfigurarCicloRequest true "Política de cambio"
// @Success      200  {object} dto.ProductoResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /api/productos/{id}/ciclo [put]
func (h *ProductosHandler) ConfigurarCiclo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.ConfigurarCicloRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ConfigurarCiclo(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Error al configurar el ciclo")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AjustarStock godoc
// @Summary      Ajustar stock
// @Description  Ingreso o ajuste manual. Un producto con ciclo de vida que pasa de 0 a stock positivo reinicia su ciclo.
// @Tags         productos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                  true "UUID del producto"
// @Param        body body     dto.AjustarStockRequest true "Delta y motivo"
// @Success      200  {object} dto.AjusteStockResponse
// @Failure      422  {object} apierror.APIError
// @Router       /api/productos/{id}/stock [patch]
func (h *ProductosHandler) AjustarStock(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.AjustarStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AjustarStock(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Error al ajustar stock")
		return
	}
	c.JSON(http.StatusOK, resp)
}
