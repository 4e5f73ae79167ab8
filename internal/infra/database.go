package infra

import (
	"fmt"

	"inventnet/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, creates / updates
// the tables this service owns, then applies the idempotent SQL patches that
// GORM cannot express (CHECK constraints, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations migrates the lifecycle tables and applies schema patches.
// Safe to call on every startup and from integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Producto{},
		&model.Merma{},
		&model.Transformacion{},
		&model.MovimientoStock{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements. Each one is guarded by an
// existence check so re-running on an already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// stock_actual never goes negative, whatever path writes it
		{"check productos.stock_actual >= 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_productos_stock_no_negativo') THEN
    ALTER TABLE productos ADD CONSTRAINT chk_productos_stock_no_negativo CHECK (stock_actual >= 0);
  END IF;
END $$`},
		{"check productos.tiempo_cambio >= 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_productos_tiempo_cambio') THEN
    ALTER TABLE productos ADD CONSTRAINT chk_productos_tiempo_cambio CHECK (tiempo_cambio >= 0);
  END IF;
END $$`},
		{"check mermas.cantidad > 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_mermas_cantidad') THEN
    ALTER TABLE mermas ADD CONSTRAINT chk_mermas_cantidad CHECK (cantidad > 0);
  END IF;
END $$`},
		{"check transformaciones.cantidad > 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_transformaciones_cantidad') THEN
    ALTER TABLE transformaciones ADD CONSTRAINT chk_transformaciones_cantidad CHECK (cantidad > 0);
  END IF;
END $$`},
		// partial index for the candidate scan of the reconciliation pass
		{"partial index idx_productos_ciclo", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_productos_ciclo') THEN
    CREATE INDEX idx_productos_ciclo
        ON productos (fecha_ultima_actualizacion)
        WHERE activo AND (cambia_estado OR cambia_apariencia);
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
