package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/mimir/internal/store"
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

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestMemoryConfigRequiresRoot(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Memory.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty memory root should fail validation")
	}
}

func TestRetentionPolicyFillsDefaults(t *testing.T) {
	rc := RetentionConfig{MaxCheckpoints: 50}
	p := rc.Policy()
	if p.MaxCheckpoints != 50 {
		t.Errorf("MaxCheckpoints = %d", p.MaxCheckpoints)
	}
	def := store.DefaultPolicy()
	if p.DefaultTTLHours != def.DefaultTTLHours {
		t.Errorf("DefaultTTLHours = %d, want default %d", p.DefaultTTLHours, def.DefaultTTLHours)
	}
	if p.SweepInterval != def.SweepInterval {
		t.Errorf("SweepInterval = %v", p.SweepInterval)
	}

	rc.SweepInterval = time.Minute
	if rc.Policy().SweepInterval != time.Minute {
		t.Error("explicit sweep interval should win")
	}
}
