package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tourweave/pkg/model"
)

func newOptimizeCmd(app func() *App) *cobra.Command {
	var inputPath string
	var day string
	var startTime string
	var maxDuration int
	var maxBudget float64
	var pace string
	var seed int64

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run one optimization request and print the resulting route as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			pois, err := loadCandidates(inputPath)
			if err != nil {
				return err
			}

			startMin, err := parseHHMM(startTime)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}

			req := model.Request{
				Candidates: pois,
				Constraints: model.Constraints{
					MaxDuration:      maxDuration,
					MaxBudget:        maxBudget,
					StartTime:        startMin,
					Pace:             model.Pace(pace),
					DayOfWeek:        model.Weekday(day),
					TransportProfile: model.ProfileWalking,
				},
			}

			rng := rand.New(rand.NewSource(seed))
			resp, err := app().Orchestrator.Run(cmd.Context(), req, rng)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&inputPath, "candidates", "", "path to a JSON file containing the candidate POI list")
	cmd.Flags().StringVar(&day, "day", string(model.Monday), "day of week")
	cmd.Flags().StringVar(&startTime, "start", "09:00", "start time, HH:MM 24h")
	cmd.Flags().IntVar(&maxDuration, "max-duration", 480, "max trip duration in minutes")
	cmd.Flags().Float64Var(&maxBudget, "max-budget", 1000, "max trip budget")
	cmd.Flags().StringVar(&pace, "pace", string(model.PaceMedium), "slow, medium, or fast")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "PRNG seed for reproducible runs")
	_ = cmd.MarkFlagRequired("candidates")

	return cmd
}

func loadCandidates(path string) ([]model.POI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	var pois []model.POI
	if err := json.Unmarshal(data, &pois); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	return pois, nil
}

// parseHHMM converts the external request's "HH:MM" 24h time string (spec.md
// §6) into a minute-of-day int, the internal representation model.Constraints
// uses throughout the optimizer.
func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return h*60 + m, nil
}
