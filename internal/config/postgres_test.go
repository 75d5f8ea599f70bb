package config

import (
	"context"
	"testing"

	"github.com/sethvargo/go-envconfig"
)

func TestPostgresConfigDSN(t *testing.T) {
	var cfg PostgresConfig
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target: &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{
			"POSTGRES_HOST":     "db",
			"POSTGRES_USERNAME": "user",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DATABASE": "oggdca",
		}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "postgres://user:password@db:5432/oggdca?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPostgresConfigRequired(t *testing.T) {
	var cfg PostgresConfig
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{"POSTGRES_HOST": "db"}),
	})
	if err == nil {
		t.Error("expected missing credentials to be an error")
	}
}
