//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"inventnet/internal/config"
	"inventnet/internal/dto"
	"inventnet/internal/infra"
	"inventnet/internal/middleware"
	"inventnet/internal/model"
	"inventnet/internal/repository"
	"inventnet/internal/router"
	"inventnet/internal/service"
	"inventnet/internal/worker"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

const (
	internalKey = "clave-interna-test"
	jwtSecret   = "test-secret-key"
)

type testEnv struct {
	server    *httptest.Server
	db        *gorm.DB
	rdb       *redis.Client
	historial *worker.Historial
	token     string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("inventnet_test"),
		tcPostgres.WithUsername("inventnet"),
		tcPostgres.WithPassword("inventnet"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                  8000,
		Env:                   "test",
		DatabaseURL:           pgURL,
		RedisURL:              rdURL,
		JWTSecret:             jwtSecret,
		InternalAPIKey:        internalKey,
		CambiosTimezone:       "America/Bogota",
		CambiosTimeoutSeconds: 30,
		CambiosLockTTLSeconds: 60,
		CambiosPrecedencia:    "merma",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	historial := worker.NewHistorial(rdb)
	engine := router.New(cfg, db, rdb, router.Background{Historial: historial})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	claims := middleware.JWTClaims{
		UserID: 9, Username: "ana", Rol: middleware.RolAdministrador,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	return &testEnv{server: srv, db: db, rdb: rdb, historial: historial, token: token}
}

func (e *testEnv) seed(t *testing.T, p *model.Producto) *model.Producto {
	t.Helper()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CodigoBarras = p.ID.String()[:13]
	p.Categoria = "TEST"
	p.PrecioCosto = decimal.NewFromFloat(2.5)
	p.PrecioVenta = decimal.NewFromInt(4)
	p.UnidadMedida = "unidad"
	p.Activo = true
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) recargar(t *testing.T, id uuid.UUID) model.Producto {
	t.Helper()
	var p model.Producto
	require.NoError(t, e.db.First(&p, "id = ?", id).Error)
	return p
}

func (e *testEnv) procesar(t *testing.T) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/mermas/procesar-cambios", bytes.NewBufferString(`{"id_usuario":null}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.InternalKeyHeader, internalKey)
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func estadisticas(t *testing.T, resp *http.Response) map[string]int {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Estadisticas map[string]any `json:"estadisticas"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	out := make(map[string]int)
	for k, v := range body.Estadisticas {
		if f, ok := v.(float64); ok {
			out[k] = int(f)
		}
	}
	return out
}

func TestIntegrationCicloCompleto(t *testing.T) {
	env := setupTestEnv(t)
	hace := func(d int) time.Time { return time.Now().UTC().Add(-time.Duration(d) * 24 * time.Hour) }

	maduro := env.seed(t, &model.Producto{Nombre: "Banano maduro", StockActual: 0, CambiaEstado: true, TiempoCambio: 3, FechaUltimaActualizacion: hace(30)})
	pan := env.seed(t, &model.Producto{Nombre: "Pan", StockActual: 10, CambiaEstado: true, TiempoCambio: 2, FechaUltimaActualizacion: hace(3)})
	verde := env.seed(t, &model.Producto{Nombre: "Banano verde", StockActual: 6, CambiaApariencia: true, TiempoCambio: 5, ProductoDestinoID: &maduro.ID, FechaUltimaActualizacion: hace(5)})
	fresco := env.seed(t, &model.Producto{Nombre: "Leche", StockActual: 8, CambiaEstado: true, TiempoCambio: 7, FechaUltimaActualizacion: hace(1)})

	est := estadisticas(t, env.procesar(t))
	assert.Equal(t, 4, est["total_productos_procesados"])
	assert.Equal(t, 1, est["total_mermas"])
	assert.Equal(t, 1, est["total_transformaciones"])

	assert.Equal(t, 0, env.recargar(t, pan.ID).StockActual)
	assert.Equal(t, 0, env.recargar(t, verde.ID).StockActual)
	assert.Equal(t, 8, env.recargar(t, fresco.ID).StockActual)

	m := env.recargar(t, maduro.ID)
	assert.Equal(t, 6, m.StockActual)
	assert.WithinDuration(t, time.Now(), m.FechaUltimaActualizacion, time.Minute, "credited successor starts a new crossing")

	var merma model.Merma
	require.NoError(t, env.db.Where("producto_id = ?", pan.ID).First(&merma).Error)
	assert.Equal(t, 10, merma.Cantidad)
	assert.True(t, merma.CostoTotal.Equal(decimal.NewFromInt(25)))
	assert.True(t, merma.Automatica)
	assert.Nil(t, merma.IDUsuario)

	var movimientos int64
	env.db.Model(&model.MovimientoStock{}).Count(&movimientos)
	assert.Equal(t, int64(3), movimientos, "merma + salida + entrada")

	// Second pass in the same window is a no-op.
	est = estadisticas(t, env.procesar(t))
	assert.Equal(t, 0, est["total_mermas"])
	assert.Equal(t, 0, est["total_transformaciones"])
	var mermas int64
	env.db.Model(&model.Merma{}).Count(&mermas)
	assert.Equal(t, int64(1), mermas)
}

func TestIntegrationPasadasConcurrentesNoDuplican(t *testing.T) {
	env := setupTestEnv(t)
	for i := 0; i < 20; i++ {
		env.seed(t, &model.Producto{
			Nombre: "Lote", StockActual: 5, CambiaEstado: true, TiempoCambio: 1,
			FechaUltimaActualizacion: time.Now().UTC().Add(-48 * time.Hour),
		})
	}

	var wg sync.WaitGroup
	codes := make([]int, 4)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/mermas/procesar-cambios", nil)
			req.Header.Set(middleware.InternalKeyHeader, internalKey)
			resp, err := env.server.Client().Do(req)
			if !assert.NoError(t, err) {
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for _, c := range codes {
		assert.Contains(t, []int{http.StatusOK, http.StatusConflict}, c)
	}
	var mermas int64
	env.db.Model(&model.Merma{}).Count(&mermas)
	assert.Equal(t, int64(20), mermas, "each crossing is written off exactly once")
}

func TestIntegrationCompareAndSwap(t *testing.T) {
	env := setupTestEnv(t)
	repo := repository.NewProductoRepository(env.db)
	ancla := time.Now().UTC().Truncate(time.Microsecond).Add(-72 * time.Hour)
	p := env.seed(t, &model.Producto{Nombre: "CAS", StockActual: 4, CambiaEstado: true, TiempoCambio: 1, FechaUltimaActualizacion: ancla})

	nueva := time.Now().UTC().Truncate(time.Microsecond)
	ok, err := repo.AvanzarCicloTx(env.db, p.ID, ancla, 4, 0, nueva)
	require.NoError(t, err)
	assert.True(t, ok)

	// Same read state again: the row has moved, nothing is written.
	ok, err = repo.AvanzarCicloTx(env.db, p.ID, ancla, 4, 0, nueva)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntegrationRollbackPorProducto(t *testing.T) {
	env := setupTestEnv(t)
	hace := time.Now().UTC().Add(-10 * 24 * time.Hour)
	inactivo := env.seed(t, &model.Producto{Nombre: "Destino", StockActual: 0})
	require.NoError(t, env.db.Model(&model.Producto{}).Where("id = ?", inactivo.ID).Update("activo", false).Error)
	origen := env.seed(t, &model.Producto{Nombre: "Origen", StockActual: 3, CambiaApariencia: true, TiempoCambio: 2, ProductoDestinoID: &inactivo.ID, FechaUltimaActualizacion: hace})
	sano := env.seed(t, &model.Producto{Nombre: "Sano", StockActual: 2, CambiaEstado: true, TiempoCambio: 2, FechaUltimaActualizacion: hace})

	est := estadisticas(t, env.procesar(t))
	assert.Equal(t, 1, est["total_mermas"])
	assert.Equal(t, 0, est["total_transformaciones"])
	assert.Equal(t, 1, est["total_errores"])

	o := env.recargar(t, origen.ID)
	assert.Equal(t, 3, o.StockActual, "failed product is rolled back")
	assert.WithinDuration(t, hace, o.FechaUltimaActualizacion, time.Second)
	assert.Equal(t, 0, env.recargar(t, sano.ID).StockActual)
}

func TestIntegrationConfigurarCicloTrasPasadaConservaStock(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	repo := repository.NewProductoRepository(env.db)
	svc := service.NewProductoService(repo, repository.NewMovimientoStockRepository(env.db))
	ancla := time.Now().UTC().Truncate(time.Microsecond).Add(-10 * 24 * time.Hour)
	p := env.seed(t, &model.Producto{Nombre: "Pan", StockActual: 10, CambiaEstado: true, TiempoCambio: 1, FechaUltimaActualizacion: ancla})

	// Hold the row while a write-off commits; the configure call queues behind it.
	tx := env.db.Begin()
	require.NoError(t, tx.Error)
	_, err := repo.LockByIDTx(tx, p.ID)
	require.NoError(t, err)

	hecho := make(chan error, 1)
	go func() {
		_, err := svc.ConfigurarCiclo(ctx, p.ID, dto.ConfigurarCicloRequest{CambiaEstado: true, TiempoCambio: 3})
		hecho <- err
	}()
	time.Sleep(200 * time.Millisecond)

	ok, err := repo.AvanzarCicloTx(tx, p.ID, ancla, 10, 0, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, tx.Commit().Error)

	select {
	case err := <-hecho:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("configure call never returned")
	}

	got := env.recargar(t, p.ID)
	assert.Equal(t, 0, got.StockActual, "committed write-off survives the policy update")
	assert.Equal(t, 3, got.TiempoCambio)
}

func TestIntegrationConfigurarCicloConcurrenteConPasada(t *testing.T) {
	env := setupTestEnv(t)
	svc := service.NewProductoService(repository.NewProductoRepository(env.db), repository.NewMovimientoStockRepository(env.db))
	p := env.seed(t, &model.Producto{
		Nombre: "Leche", StockActual: 8, CambiaEstado: true, TiempoCambio: 1,
		FechaUltimaActualizacion: time.Now().UTC().Add(-72 * time.Hour),
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/mermas/procesar-cambios", nil)
		req.Header.Set(middleware.InternalKeyHeader, internalKey)
		resp, err := env.server.Client().Do(req)
		if assert.NoError(t, err) {
			resp.Body.Close()
		}
	}()
	go func() {
		defer wg.Done()
		_, err := svc.ConfigurarCiclo(context.Background(), p.ID, dto.ConfigurarCicloRequest{CambiaEstado: true, TiempoCambio: 1})
		assert.NoError(t, err)
	}()
	wg.Wait()

	// Either order is fine; the catalog and the ledger must agree.
	var mermas int64
	require.NoError(t, env.db.Model(&model.Merma{}).Where("producto_id = ?", p.ID).Count(&mermas).Error)
	got := env.recargar(t, p.ID)
	if mermas == 1 {
		assert.Equal(t, 0, got.StockActual)
	} else {
		assert.Equal(t, int64(0), mermas)
		assert.Equal(t, 8, got.StockActual)
	}
}

func TestIntegrationRedisLocker(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	a := infra.NewRedisLocker(env.rdb, time.Minute)
	b := infra.NewRedisLocker(env.rdb, time.Minute)

	liberar, err := a.Adquirir(ctx, "lock:test")
	require.NoError(t, err)
	_, err = b.Adquirir(ctx, "lock:test")
	assert.ErrorIs(t, err, infra.ErrLockOcupado)

	liberar()
	otro, err := b.Adquirir(ctx, "lock:test")
	require.NoError(t, err)
	otro()
}

func TestIntegrationRedisLockerLiberacionFallidaSeRegistra(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	cliente := redis.NewClient(env.rdb.Options())
	liberar, err := infra.NewRedisLocker(cliente, time.Minute).Adquirir(ctx, "lock:liberacion")
	require.NoError(t, err)
	require.NoError(t, cliente.Close())
	liberar()

	assert.Contains(t, buf.String(), "lock release failed")
	assert.Contains(t, buf.String(), `"key":"lock:liberacion"`)
	ttl, err := env.rdb.TTL(ctx, "lock:liberacion").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "key is left to expire")
}

func TestIntegrationEndpointsProtegidos(t *testing.T) {
	env := setupTestEnv(t)
	get := func(path, token string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, env.server.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := env.server.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, get("/api/mermas", "").StatusCode)
	assert.Equal(t, http.StatusOK, get("/api/mermas", env.token).StatusCode)
	assert.Equal(t, http.StatusOK, get("/api/productos/ciclo", env.token).StatusCode)

	pdf := get("/api/mermas/reporte.pdf", env.token)
	assert.Equal(t, http.StatusOK, pdf.StatusCode)
	assert.Equal(t, "application/pdf", pdf.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusOK, get("/health", "").StatusCode)
}
