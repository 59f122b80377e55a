// Command tourweave is the CLI driver for the route-optimization engine: it
// wires HoursLib/DistanceOracle/ACO/GA/the Evaluator together via
// pkg/orchestrator and exposes optimize/wizard/bench subcommands.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tourweave/pkg/catalog"
	"tourweave/pkg/config"
	"tourweave/pkg/db"
	"tourweave/pkg/distance"
	"tourweave/pkg/distcache"
	"tourweave/pkg/logging"
	"tourweave/pkg/orchestrator"
	"tourweave/pkg/request"
	"tourweave/pkg/tracker"
	"tourweave/pkg/weather"
	"tourweave/pkg/weights"
)

// App bundles the constructed services every subcommand needs, mirroring
// the teacher CLI's App-struct-plus-factory-function pattern.
type App struct {
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
	Catalog      *catalog.MemoryCatalog
	Weights      *weights.Store
	Tracker      *tracker.Tracker
	cleanup      func()
}

// Close releases resources acquired while building the App (log files, the
// cache database).
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

// NewApp constructs the full service graph from an on-disk config path.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	closeLog, err := logging.Init(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	database, err := db.Init(cfg.DB.Path)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init db: %w", err)
	}

	t := tracker.New()
	cache := distcache.New(database)
	client := request.New(cache, t, request.ClientConfig{
		Retries:   cfg.Request.Retries,
		BaseDelay: time.Duration(cfg.Request.Backoff.BaseDelay),
		MaxDelay:  time.Duration(cfg.Request.Backoff.MaxDelay),
	})
	oracle := distance.New(client, cache, cfg.Distance, config.RouteAAPIKey, t)

	cat := catalog.NewMemoryCatalog(nil)
	w := weights.NewStore()

	orch := orchestrator.New(cat, oracle, weather.NoneProvider{}, w, cfg.ACO, cfg.GA)

	app := &App{
		Config:       cfg,
		Orchestrator: orch,
		Catalog:      cat,
		Weights:      w,
		Tracker:      t,
		cleanup: func() {
			database.Close()
			closeLog()
		},
	}
	return app, nil
}

// NewRootCmd builds the root cobra command and attaches every subcommand.
func NewRootCmd() *cobra.Command {
	var configPath string
	var app *App

	root := &cobra.Command{
		Use:   "tourweave",
		Short: "Team orienteering route optimizer",
		Long:  "tourweave builds time-windowed multi-POI routes using ant colony and genetic-algorithm search.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := NewApp(configPath)
			if err != nil {
				return err
			}
			app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "./tourweave.yaml", "path to the config file")

	appRef := func() *App { return app }
	root.AddCommand(newOptimizeCmd(appRef))
	root.AddCommand(newWizardCmd(appRef))
	root.AddCommand(newBenchCmd(appRef))

	return root
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
