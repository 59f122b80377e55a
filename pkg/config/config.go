package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request  RequestConfig  `yaml:"request"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	ACO      ACOConfig      `yaml:"aco"`
	GA       GAConfig       `yaml:"ga"`
	Weights  WeightsConfig  `yaml:"weights"`
	Distance DistanceConfig `yaml:"distance"`
}

// RequestConfig holds HTTP request settings for the distance-oracle adapters.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogSettings holds settings for a specific logger sink.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// DBConfig holds the distance-matrix cache database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ACOConfig holds Ant Colony Optimization hyperparameters.
type ACOConfig struct {
	Alpha       float64  `yaml:"alpha"`       // pheromone exponent
	Beta        float64  `yaml:"beta"`        // heuristic exponent
	Evaporation float64  `yaml:"evaporation"` // rho
	Deposit     float64  `yaml:"deposit"`     // Q
	NumAnts     int      `yaml:"num_ants"`
	Iterations  int      `yaml:"iterations"`
	InitialTau  float64  `yaml:"initial_tau"`
	MaxWait     Duration `yaml:"max_wait"`
}

// GAConfig holds Genetic Algorithm hyperparameters.
type GAConfig struct {
	Population           int     `yaml:"population"`
	Generations           int     `yaml:"generations"`
	MutationRate          float64 `yaml:"mutation_rate"`
	CrossoverRate         float64 `yaml:"crossover_rate"`
	EliteRatio            float64 `yaml:"elite_ratio"`
	TournamentSize        int     `yaml:"tournament_size"`
	EarlyStopGenerations  int     `yaml:"early_stop_generations"`
}

// WeightsConfig points at the on-disk OptimizationWeights layout.
type WeightsConfig struct {
	Path string `yaml:"path"`
}

// DistanceConfig holds the distance-oracle provider settings.
type DistanceConfig struct {
	RouteAKeyedURL  string  `yaml:"route_a_url"` // keyed routing provider (e.g. openrouteservice)
	RouteBPublicURL string  `yaml:"route_b_url"` // public routing provider (e.g. OSRM)
	WalkingKmh      float64 `yaml:"walking_kmh"`
	CyclingKmh      float64 `yaml:"cycling_kmh"`
	DrivingKmh      float64 `yaml:"driving_kmh"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/tourweave.db",
		},
		ACO: ACOConfig{
			Alpha:       1.0,
			Beta:        2.0,
			Evaporation: 0.1,
			Deposit:     100,
			NumAnts:     40,
			Iterations:  80,
			InitialTau:  0.1,
			MaxWait:     Duration(30 * time.Minute),
		},
		GA: GAConfig{
			Population:           60,
			Generations:          120,
			MutationRate:         0.15,
			CrossoverRate:        0.8,
			EliteRatio:           0.1,
			TournamentSize:       5,
			EarlyStopGenerations: 50,
		},
		Weights: WeightsConfig{
			Path: "./data/weights.yaml",
		},
		Distance: DistanceConfig{
			RouteAKeyedURL:  "https://api.openrouteservice.org/v2",
			RouteBPublicURL: "http://router.project-osrm.org",
			WalkingKmh:      4.5,
			CyclingKmh:      15,
			DrivingKmh:      25,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk, to preserve user formatting and comments.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Secrets (distance-provider API keys) never live in the YAML file.
	_ = godotenv.Load(".env.local", ".env")
	loadSecretsFromEnv()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# tourweave configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)

`)
	data = append(header, data...)

	reURL := regexp.MustCompile(`(?m)^(\s+)route_a_url:`)
	data = reURL.ReplaceAll(data, []byte("${1}# Keyed provider; API key read from ROUTE_A_API_KEY, never stored here\n${1}route_a_url:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}

// routeAAPIKey is populated from the environment, never from the YAML file.
var routeAAPIKey string

func loadSecretsFromEnv() {
	if key := os.Getenv("ROUTE_A_API_KEY"); key != "" {
		routeAAPIKey = key
	}
}

// RouteAAPIKey returns the keyed routing provider's API key loaded from the
// environment by the most recent call to Load.
func RouteAAPIKey() string {
	return routeAAPIKey
}
