package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("POS_SERVER_AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty auth secret when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POS_CONFIG_FILE", "")

	cfg := Load()
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.APITimeout)
	}
	if cfg.TaxRate != 0.07 || cfg.DiscountRate != 0.10 {
		t.Fatalf("expected 0.07/0.10 rates, got %v/%v", cfg.TaxRate, cfg.DiscountRate)
	}
	if cfg.SessionStorage != SessionStorageFile {
		t.Fatalf("expected file storage, got %q", cfg.SessionStorage)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Address())
	}
}

func TestLoadEnvOverridesAndFallbacks(t *testing.T) {
	t.Setenv("POS_API_TIMEOUT", "3s")
	t.Setenv("POS_PRICING_TAX_RATE", "1.5")
	t.Setenv("POS_SESSION_STORAGE", "floppy")
	t.Setenv("POS_SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("POS_METRICS_FILE", " /tmp/posctl.prom ")

	cfg := Load()
	if cfg.APITimeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.APITimeout)
	}
	if cfg.TaxRate != 0.07 {
		t.Fatalf("expected out-of-range tax rate to fall back, got %v", cfg.TaxRate)
	}
	if cfg.SessionStorage != SessionStorageFile {
		t.Fatalf("expected unknown storage to fall back to file, got %q", cfg.SessionStorage)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.MetricsFile != "/tmp/posctl.prom" {
		t.Fatalf("expected metrics file from env, got %q", cfg.MetricsFile)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "api:\n  base_url: http://pos.internal:9000/\npricing:\n  late_fee_per_day_cents: 250\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POS_CONFIG_FILE", path)

	cfg := Load()
	if cfg.APIBaseURL != "http://pos.internal:9000" {
		t.Fatalf("expected base url from file, got %q", cfg.APIBaseURL)
	}
	if cfg.LateFeePerDayCents != 250 {
		t.Fatalf("expected late fee 250, got %d", cfg.LateFeePerDayCents)
	}
}
