package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// isolate runs the test from an empty directory with no CRM settings in the
// environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"DATABASE_URL", "PORT", "CRM_DATABASE_URL", "CRM_PORT", "CRM_STORE_DRIVER", "CRM_QUERY_MAX_LIMIT"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	if cfg.DatabaseURL != want.DatabaseURL || cfg.Addr() != ":8080" {
		t.Fatalf("unexpected base config %+v", cfg)
	}
	if cfg.Business.UTCOffset != 2*time.Hour {
		t.Errorf("utc offset = %s", cfg.Business.UTCOffset)
	}
	if cfg.Query != want.Query || cfg.Resolver.Concurrency != 4 || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected limits %+v %+v %s", cfg.Query, cfg.Resolver, cfg.ShutdownTimeout)
	}
	if cfg.Store.Driver != DriverPostgres {
		t.Errorf("store driver = %s", cfg.Store.Driver)
	}
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgresql://crm@db:5432/crm")
	t.Setenv("CRM_PORT", "9090")
	t.Setenv("CRM_QUERY_MAX_LIMIT", "500")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgresql://crm@db:5432/crm" {
		t.Errorf("database url = %s", cfg.DatabaseURL)
	}
	if cfg.Addr() != ":9090" {
		t.Errorf("addr = %s", cfg.Addr())
	}
	if cfg.Query.MaxLimit != 500 {
		t.Errorf("max limit = %d", cfg.Query.MaxLimit)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "crm.yaml")
	body := strings.Join([]string{
		"store:",
		"  driver: sqlite",
		"  sqlite_path: /tmp/views.db",
		"business:",
		"  utc_offset: 3h",
		"log:",
		"  level: debug",
		"  json: true",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.SQLitePath != "/tmp/views.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Business.UTCOffset != 3*time.Hour {
		t.Errorf("utc offset = %s", cfg.Business.UTCOffset)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Log.Rotation.MaxBackups != 5 {
		t.Errorf("rotation defaults lost: %+v", cfg.Log.Rotation)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown driver": "CRM_STORE_DRIVER=mongo",
		"limits":         "CRM_QUERY_MAX_LIMIT=10",
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			k, v, _ := strings.Cut(kv, "=")
			t.Setenv(k, v)
			if _, err := Load(viper.New(), ""); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(viper.New(), filepath.Join(dir, "absent.yaml")); err == nil {
		t.Fatal("expected an error for an explicit missing file")
	}
}
