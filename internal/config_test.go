package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestPersistenceConfig(t *testing.T) {
	cfg := PersistenceConfig{FlushDebounce: 2 * time.Second, MaxFlushInterval: 30 * time.Second}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid persistence config should pass: %v", err)
	}

	cfg = PersistenceConfig{FlushDebounce: 0, MaxFlushInterval: 30 * time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("zero debounce should fail")
	}

	cfg = PersistenceConfig{FlushDebounce: 10 * time.Second, MaxFlushInterval: 5 * time.Second}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("max interval below debounce should fail")
	}
	if !strings.Contains(err.Error(), "max_flush_interval") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLeaseConfig(t *testing.T) {
	cfg := LeaseConfig{TTL: 15 * time.Second}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid lease config should pass: %v", err)
	}
	cfg = LeaseConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("zero ttl should fail")
	}
}

func TestFullConfig_SectionValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg = NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Error("full validation should reach the auth section")
	}

	cfg = NewDefaultConfig()
	cfg.Lease.TTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("full validation should reach the lease section")
	}

	cfg = NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("full validation should reach the sqlite section")
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 9090}
	if got := cfg.Address(); got != ":9090" {
		t.Errorf("Address = %q", got)
	}
	cfg = HTTPConfig{Port: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("zero port should fail")
	}
}
