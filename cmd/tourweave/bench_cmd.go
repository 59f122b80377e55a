package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tourweave/pkg/model"
)

var (
	benchLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	benchBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	benchDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
)

// benchTickMsg drives the bench model forward one run.
type benchTickMsg struct{}

// benchDoneMsg carries one completed run's outcome.
type benchDoneMsg struct {
	index    int
	duration time.Duration
	fitness  float64
	err      error
}

// benchModel renders a live progress bar across a repeated sequence of
// optimize runs against one candidate set loaded from a file, for rough
// throughput/latency measurement.
type benchModel struct {
	app      *App
	total    int
	done     int
	failures int
	fitSum   float64
	elapsed  time.Duration
	req      model.Request
	seed     int64
}

func newBenchModel(app *App, total int, req model.Request, seed int64) benchModel {
	return benchModel{app: app, total: total, req: req, seed: seed}
}

func (m benchModel) Init() tea.Cmd {
	return m.runOne(0)
}

func (m benchModel) runOne(index int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rng := rand.New(rand.NewSource(m.seed + int64(index)))
		resp, err := m.app.Orchestrator.Run(context.Background(), m.req, rng)
		return benchDoneMsg{index: index, duration: time.Since(start), fitness: resp.FitnessScore, err: err}
	}
}

func (m benchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case benchDoneMsg:
		m.done++
		m.elapsed += msg.duration
		if msg.err != nil {
			m.failures++
		} else {
			m.fitSum += msg.fitness
		}
		if m.done >= m.total {
			return m, tea.Quit
		}
		return m, m.runOne(m.done)
	}
	return m, nil
}

func (m benchModel) View() string {
	width := 30
	filled := 0
	if m.total > 0 {
		filled = width * m.done / m.total
	}
	bar := benchBarStyle.Render(repeat("#", filled)) + repeat(".", width-filled)

	avgFitness := 0.0
	if m.done-m.failures > 0 {
		avgFitness = m.fitSum / float64(m.done-m.failures)
	}

	header := benchLabelStyle.Render(fmt.Sprintf("tourweave bench  %d/%d", m.done, m.total))
	body := fmt.Sprintf("[%s] elapsed=%s failures=%d avg_fitness=%.2f", bar, m.elapsed.Round(time.Millisecond), m.failures, avgFitness)

	if m.done >= m.total {
		return header + "\n" + body + "\n" + benchDoneStyle.Render("done") + "\n"
	}
	return header + "\n" + body + "\n"
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func newBenchCmd(app func() *App) *cobra.Command {
	var runs int
	var candidatesPath string
	var seed int64

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Repeatedly run the optimizer against one candidate set and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			pois, err := loadCandidates(candidatesPath)
			if err != nil {
				return err
			}
			req := model.Request{
				Candidates: pois,
				Constraints: model.Constraints{
					MaxDuration:      480,
					MaxBudget:        1000,
					StartTime:        540,
					Pace:             model.PaceMedium,
					DayOfWeek:        model.Monday,
					TransportProfile: model.ProfileWalking,
				},
			}

			m := newBenchModel(app(), runs, req, seed)
			p := tea.NewProgram(m)
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 20, "number of optimization runs")
	cmd.Flags().StringVar(&candidatesPath, "candidates", "", "path to a JSON file containing the candidate POI list")
	cmd.Flags().Int64Var(&seed, "seed", 1, "base PRNG seed")
	_ = cmd.MarkFlagRequired("candidates")

	return cmd
}
