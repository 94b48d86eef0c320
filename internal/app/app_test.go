package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bilgisen/illustrate/internal/ai"
	"github.com/bilgisen/illustrate/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.FromEnv()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "app.db")
	cfg.RedisURL = ""
	cfg.ArchiveBucket = ""
	return cfg
}

func TestNewWithoutModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.AIProvider = ai.ProviderAnthropic
	cfg.AIApiKey = ""

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Services.Store == nil || a.Services.Refresher == nil {
		t.Fatal("store and refresher must always be built")
	}
	if a.Services.Analyzer != nil || a.Services.Search != nil {
		t.Error("analysis should be disabled without an API key")
	}
}

func TestNewWithModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.AIProvider = ai.ProviderGemini
	cfg.AIApiKey = "k"

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Services.Analyzer == nil || a.Services.Search == nil {
		t.Error("analysis should be enabled")
	}
}
