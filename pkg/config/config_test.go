package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tourweave.yaml")

	tests := []struct {
		name      string
		setup     func()
		validate  func(*testing.T, *Config)
		checkFile func(*testing.T)
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ACO.NumAnts != 40 {
					t.Errorf("expected default NumAnts 40, got %d", cfg.ACO.NumAnts)
				}
				if cfg.GA.Population != 60 {
					t.Errorf("expected default Population 60, got %d", cfg.GA.Population)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "num_ants: 40") {
					t.Error("config file missing default num_ants")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("aco:\n  num_ants: 99\nga:\n  population: 15\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ACO.NumAnts != 99 {
					t.Errorf("expected NumAnts 99, got %d", cfg.ACO.NumAnts)
				}
				if cfg.GA.Population != 15 {
					t.Errorf("expected Population 15, got %d", cfg.GA.Population)
				}
				// Unspecified fields keep their defaults.
				if cfg.ACO.Beta != 2.0 {
					t.Errorf("expected Beta to keep default 2.0, got %f", cfg.ACO.Beta)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "num_ants: 99") {
					t.Error("config file should persist custom value")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.validate(t, cfg)
			tt.checkFile(t)
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "default_config.yaml")

	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("GenerateDefault() did not create file")
	}

	if err := GenerateDefault(configPath); err != nil {
		t.Errorf("GenerateDefault() error on second run = %v", err)
	}
}

func TestRouteAAPIKeyFromEnv(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tourweave.yaml")

	if err := os.WriteFile(configPath, []byte("distance:\n  route_a_url: https://example.test\n"), 0o644); err != nil {
		t.Fatalf("failed to setup test file: %v", err)
	}
	t.Setenv("ROUTE_A_API_KEY", "secret123")

	if _, err := Load(configPath); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if RouteAAPIKey() != "secret123" {
		t.Errorf("expected RouteAAPIKey 'secret123', got %q", RouteAAPIKey())
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if strings.Contains(string(content), "secret123") {
		t.Error("environment secret should NOT be persisted to config file")
	}
}
