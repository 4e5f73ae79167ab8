package router

import (
	"time"

	"inventnet/internal/config"
	"inventnet/internal/handler"
	"inventnet/internal/infra"
	"inventnet/internal/middleware"
	"inventnet/internal/repository"
	"inventnet/internal/service"
	"inventnet/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Background groups the long-lived collaborators built by the composition
// root. Every field may be nil.
type Background struct {
	Breaker   *infra.CircuitBreaker
	Historial *worker.Historial
	Scheduler *worker.Scheduler
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, bg Background) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	loc := cfg.CambiosLocation()

	// ── Infrastructure ───────────────────────────────────────────────────────
	locker := infra.NewLocker(rdb, cfg.CambiosLockTTL())

	// ── Repositories ─────────────────────────────────────────────────────────
	productoRepo := repository.NewProductoRepository(db)
	mermaRepo := repository.NewMermaRepository(db)
	transformacionRepo := repository.NewTransformacionRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	cambiosSvc := service.NewCambiosService(
		productoRepo, mermaRepo, transformacionRepo, movimientoStockRepo, locker,
		service.Politica{Precedencia: service.Precedencia(cfg.CambiosPrecedencia), Location: loc},
	)
	productoSvc := service.NewProductoService(productoRepo, movimientoStockRepo)
	mermaSvc := service.NewMermaService(mermaRepo, loc)
	transformacionSvc := service.NewTransformacionService(transformacionRepo, loc)
	inventarioSvc := service.NewInventarioService(movimientoStockRepo, loc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cambiosH := handler.NewCambiosHandler(cambiosSvc, bg.Historial)
	productosH := handler.NewProductosHandler(productoSvc)
	mermasH := handler.NewMermasHandler(mermaSvc, transformacionSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, bg.Breaker, bg.Scheduler))

	api := r.Group("/api")

	// Reconciliation entry point: scheduler and CLI use the internal key,
	// operators their token.
	api.POST("/mermas/procesar-cambios",
		middleware.InternalKeyOrJWT(cfg.InternalAPIKey, cfg.JWTSecret),
		middleware.RequireRole(middleware.RolAdministrador, middleware.RolSupervisor),
		cambiosH.ProcesarCambios,
	)

	protected := api.Group("", middleware.JWTAuth(cfg.JWTSecret))
	{
		lectura := middleware.RequireRole(middleware.RolAdministrador, middleware.RolSupervisor, middleware.RolOperador)
		gestion := middleware.RequireRole(middleware.RolAdministrador, middleware.RolSupervisor)

		protected.GET("/mermas", lectura, mermasH.Listar)
		protected.GET("/mermas/reporte.pdf", gestion, mermasH.ReportePDF)
		protected.GET("/mermas/procesar-cambios/historial", gestion, cambiosH.Historial)
		protected.GET("/transformaciones", lectura, mermasH.ListarTransformaciones)

		protected.GET("/productos/ciclo", lectura, cambiosH.EstadoCiclo)
		protected.GET("/productos/:id", lectura, productosH.ObtenerPorID)
		protected.PATCH("/productos/:id/stock", gestion, productosH.AjustarStock)
		// Lifecycle policy: administrador only
		protected.PUT("/productos/:id/ciclo", middleware.RequireRole(middleware.RolAdministrador), productosH.ConfigurarCiclo)

		protected.GET("/inventario/movimientos", gestion, inventarioH.ListarMovimientos)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
