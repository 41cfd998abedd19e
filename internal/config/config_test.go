package config

import (
	"strings"
	"testing"
	"time"

	"fleetgate/internal/gateway"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %s, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("RefreshTokenTTL = %s, want 168h", cfg.RefreshTokenTTL)
	}
	if cfg.ProxyTimeout != 10*time.Second {
		t.Errorf("ProxyTimeout = %s, want 10s", cfg.ProxyTimeout)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
}

func TestLoadAccessTTLMustBeShorterThanRefresh(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "48h")
	t.Setenv("REFRESH_TOKEN_TTL", "24h")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error when access TTL outlives refresh TTL")
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "fifteen minutes")

	_, err := Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "ACCESS_TOKEN_TTL") {
		t.Errorf("err = %q, want it to name the offending variable", err)
	}
}

func TestLoadRequiresSecretInReleaseMode(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error: release mode must not fall back to the default secret")
	}
}

// The static route table must always pass gateway validation: a bad entry
// here should fail at startup, not at request time.
func TestRoutesBuildValidTable(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	table, err := gateway.NewTable(cfg.Routes())
	if err != nil {
		t.Fatalf("route table invalid: %v", err)
	}

	cases := []struct {
		path       string
		downstream string
	}{
		{"/api/teams/3", cfg.Downstreams.Team},
		{"/api/clients", cfg.Downstreams.ClientStore},
		{"/api/stores/9", cfg.Downstreams.ClientStore},
		{"/api/orders/42", cfg.Downstreams.Order},
		{"/api/orders/resolutions", cfg.Downstreams.Order},
		{"/api/riders", cfg.Downstreams.Rider},
		{"/api/vehicles/7", cfg.Downstreams.Vehicle},
		{"/api/spare-parts", cfg.Downstreams.SpareParts},
	}

	for _, tc := range cases {
		route, ok := table.Match(tc.path)
		if !ok {
			t.Errorf("no route for %s", tc.path)
			continue
		}
		if route.Downstream != tc.downstream {
			t.Errorf("Match(%s).Downstream = %s, want %s", tc.path, route.Downstream, tc.downstream)
		}
		if !route.RequiresAuth {
			t.Errorf("route %s must require auth", tc.path)
		}
	}
}
