package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"inventnet/internal/apierror"
	"inventnet/internal/dto"
	"inventnet/internal/middleware"
	"inventnet/internal/service"
	"inventnet/internal/worker"

	"github.com/gin-gonic/gin"
)

type CambiosHandler struct {
	svc       service.CambiosService
	historial *worker.Historial
}

func NewCambiosHandler(svc service.CambiosService, historial *worker.Historial) *CambiosHandler {
	return &CambiosHandler{svc: svc, historial: historial}
}

// ProcesarCambios godoc
// @Summary      Procesar cambios automáticos
// @Description  Ejecuta una pasada de reconciliación: registra mermas y transformaciones de los productos vencidos.
// @Description  id_usuario nulo designa una ejecución automática. Responde 409 si ya hay una pasada en curso.
// @Tags         mermas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.ProcesarCambiosRequest false "Usuario que dispara la ejecución"
// @Success      200  {object} dto.ProcesarCambiosResponse
// @Failure      403  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /api/mermas/procesar-cambios [post]
func (h *CambiosHandler) ProcesarCambios(c *gin.Context) {
	var req dto.ProcesarCambiosRequest
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}
	// A token caller is always attributed to the token's user; only the
	// internal key may name another user or run as automatic.
	if !middleware.IsInternalCall(c) {
		if claims := middleware.GetClaims(c); claims != nil && claims.UserID > 0 {
			if req.IDUsuario != nil && *req.IDUsuario != claims.UserID {
				c.JSON(http.StatusForbidden, apierror.Newf("id_usuario %d no coincide con el usuario autenticado", *req.IDUsuario))
				return
			}
			id := claims.UserID
			req.IDUsuario = &id
		}
	}

	inicio := time.Now()
	resp, err := h.svc.ProcesarCambios(c.Request.Context(), req.IDUsuario)
	// Internal callers (scheduler, CLI) record their own history entry.
	if !middleware.IsInternalCall(c) {
		h.registrar(c, req.IDUsuario, inicio, resp, err)
	}
	if err != nil {
		respondError(c, err, "Error al procesar cambios automáticos")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CambiosHandler) registrar(c *gin.Context, idUsuario *int, inicio time.Time, resp *dto.ProcesarCambiosResponse, err error) {
	reg := worker.CicloRegistro{
		Origen:    worker.OrigenManual,
		IDUsuario: idUsuario,
		Inicio:    inicio,
		Fin:       time.Now(),
	}
	if err != nil {
		reg.Resultado = worker.ResultadoError
		reg.Error = err.Error()
	} else {
		reg.Resultado = worker.ResultadoOK
		reg.Estadisticas = &resp.Estadisticas
	}
	h.historial.Registrar(context.WithoutCancel(c.Request.Context()), reg)
}

// EstadoCiclo godoc
// @Summary      Estado del ciclo de vida
// @Description  Lista los productos con cambios automáticos y cuántos días les faltan para la próxima transición.
// @Tags         productos
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.EstadoCicloResponse
// @Router       /api/productos/ciclo [get]
func (h *CambiosHandler) EstadoCiclo(c *gin.Context) {
	resp, err := h.svc.EstadoCiclo(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error al obtener el estado del ciclo")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial godoc
// @Summary      Historial de ejecuciones
// @Description  Últimas ejecuciones programadas y manuales, la más reciente primero.
// @Tags         mermas
// @Produce      json
// @Security     BearerAuth
// @Param        limit query    int false "Máximo de registros (1-100)"
// @Success      200   {array}  worker.CicloRegistro
// @Router       /api/mermas/procesar-cambios/historial [get]
func (h *CambiosHandler) Historial(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > worker.HistorialMax {
			c.JSON(http.StatusBadRequest, apierror.New("limit debe estar entre 1 y 100"))
			return
		}
		limit = n
	}
	regs, err := h.historial.Listar(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "Error al leer el historial")
		return
	}
	c.JSON(http.StatusOK, regs)
}
