package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAppEnv, "dev")
	t.Setenv("BAKESHOP_APP_PORT", "8080")
	t.Setenv("BAKESHOP_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BAKESHOP_JWT_SECRET", "secret")
	t.Setenv("BAKESHOP_JWT_ISSUER", "bakeshop")
	t.Setenv(EnvDBDSN, "postgres://user:pw@localhost:5432/bakeshop?sslmode=disable")
}

func TestLoadWithDSN(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.App.IsDev() {
		t.Fatalf("expected dev env, got %q", cfg.App.Env)
	}
	if cfg.Reaper.AbandonmentTimeout != 30*time.Minute {
		t.Fatalf("unexpected abandonment timeout: %v", cfg.Reaper.AbandonmentTimeout)
	}
	if cfg.Reaper.Interval != time.Minute {
		t.Fatalf("unexpected reaper interval: %v", cfg.Reaper.Interval)
	}
	if cfg.PayMongo.VerifyAttempts != 3 {
		t.Fatalf("unexpected verify attempts: %d", cfg.PayMongo.VerifyAttempts)
	}
}

func TestLoadBuildsDSNFromLegacyParts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvDBDSN, "")
	t.Setenv(EnvDBHost, "db.internal")
	t.Setenv(EnvDBUser, "bakeshop")
	t.Setenv("BAKESHOP_DB_PASSWORD", "pw")
	t.Setenv(EnvDBName, "bakeshop")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := "postgres://bakeshop:pw@db.internal:5432/bakeshop?sslmode=disable"
	if cfg.DB.DSN != want {
		t.Fatalf("unexpected dsn: %s", cfg.DB.DSN)
	}
}

func TestLoadFailsWithoutDBSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvDBDSN, "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when neither DSN nor legacy parts are set")
	}
}
