package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/readerpos/pkg/config"
	"github.com/angelmondragon/readerpos/pkg/db"
	"github.com/angelmondragon/readerpos/pkg/logger"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"m/create_receipts.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"m/20260101000000_create_receipts.sql": {Data: []byte("-- +goose Up\n")},
		},
		"impossible timestamp": {
			"m/20261399000000_create_receipts.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"down before up": {
			"m/20260101000000_create_receipts.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		},
		"duplicate version": {
			"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
	}
	for name, fsys := range cases {
		if err := ValidateFS(fsys, "m"); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Receipt Notes!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(filepath.Base(path), "_add_receipt_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "-- +goose Down") {
		t.Fatalf("template missing down section")
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationBumpsTakenVersion(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	dir := t.TempDir()
	first, err := CreateSQLMigration(dir, "add receipts index")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := CreateSQLMigration(dir, "add receipts index")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if filepath.Base(first) != "20260301120000_add_receipts_index.sql" {
		t.Fatalf("unexpected first %s", first)
	}
	if filepath.Base(second) != "20260301120001_add_receipts_index.sql" {
		t.Fatalf("unexpected second %s", second)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("bumped migrations should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatalf("expected error for empty slug")
	}
}

func TestRunUpOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_up?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	if err := Run(ctx, sqlDB, config.DBDriverSQLite, "up"); err != nil {
		t.Fatalf("goose up: %v", err)
	}
	if !conn.Migrator().HasTable("receipts") {
		t.Fatalf("expected receipts table after migration")
	}
	version, err := Version(ctx, sqlDB, config.DBDriverSQLite)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 20261012090000 {
		t.Fatalf("unexpected version %d", version)
	}
}

func TestDialect(t *testing.T) {
	if d, _ := Dialect(config.DBDriverPostgres); d != "postgres" {
		t.Fatalf("unexpected postgres dialect %q", d)
	}
	if d, _ := Dialect(config.DBDriverSQLite); d != "sqlite3" {
		t.Fatalf("unexpected sqlite dialect %q", d)
	}
	if _, err := Dialect("mysql"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestMaybeRunAppliesWhenEnabled(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{
		Driver:       config.DBDriverSQLite,
		DSN:          "file:migrate_autorun?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer client.Close()

	cfg := &config.Config{DB: config.DBConfig{Driver: config.DBDriverSQLite}}
	if err := MaybeRun(ctx, cfg, logger.Nop(), client); err != nil {
		t.Fatalf("disabled autorun: %v", err)
	}
	if client.DB().Migrator().HasTable("receipts") {
		t.Fatalf("disabled autorun should not migrate")
	}

	cfg.DB.AutoMigrate = true
	if err := MaybeRun(ctx, cfg, logger.Nop(), client); err != nil {
		t.Fatalf("autorun: %v", err)
	}
	if !client.DB().Migrator().HasTable("receipts") {
		t.Fatalf("expected receipts table after autorun")
	}
}
