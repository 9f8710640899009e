package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Agent.Model == "" || cfg.Agent.DefaultLimit <= 0 {
		t.Fatalf("agent defaults = %+v", cfg.Agent)
	}
	if !cfg.Auth.AllowDevLogin {
		t.Fatal("default config should allow dev login")
	}
}

func TestFromYAMLValidation(t *testing.T) {
	_, err := FromYAML([]byte("company:\n  name: ''\n"))
	if err == nil {
		t.Fatal("expected validation error for missing company name")
	}
}

func TestFromYAMLWebhooks(t *testing.T) {
	cfg, err := FromYAML([]byte(`company:
  name: Test Co
agent:
  model: gpt-4o-mini
  default_limit: 10
  max_limit: 50
webhooks:
  - url: https://example.com/hook
    types: [lead.created, invoice.paid]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Webhooks) != 1 {
		t.Fatalf("webhooks = %+v", cfg.Webhooks)
	}
	if cfg.Webhooks[0].URL != "https://example.com/hook" || len(cfg.Webhooks[0].Types) != 2 {
		t.Fatalf("webhook = %+v", cfg.Webhooks[0])
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Company.Name == "" {
		t.Fatal("expected default config")
	}
}

func TestLoadReadsWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	yml := `company:
  name: Acme Roofing
agent:
  model: gpt-4o
  default_limit: 5
  max_limit: 20
`
	if err := os.WriteFile(filepath.Join(dir, "roofdesk.yml"), []byte(yml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Company.Name != "Acme Roofing" || cfg.Agent.MaxLimit != 20 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestJWTSecretReadsConfiguredEnv(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecretEnv = "ROOFDESK_TEST_SECRET"
	t.Setenv("ROOFDESK_TEST_SECRET", "hunter2")
	if got := cfg.JWTSecret(); got != "hunter2" {
		t.Fatalf("secret = %q", got)
	}
}
