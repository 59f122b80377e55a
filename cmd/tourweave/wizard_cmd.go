package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tourweave/pkg/model"
)

var (
	wizardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	wizardPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	wizardErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// wizardField is one question in the interactive prompt sequence.
type wizardField struct {
	prompt  string
	apply   func(m *wizardModel, value string) error
	defaultValue string
}

// wizardModel steps through wizardFields one at a time, collecting a
// model.Request interactively, then runs the optimizer and renders the
// result — the TUI analogue of abramin-kairos's huh.Form-driven wizardView,
// built directly on bubbles/textinput since this module does not depend on
// huh.
type wizardModel struct {
	app    *App
	fields []wizardField
	step   int
	input  textinput.Model
	req    model.Request
	result *model.Response
	err    error
	done   bool
}

func newWizardModel(app *App) wizardModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()

	req := model.Request{
		Constraints: model.Constraints{
			MaxDuration:      480,
			MaxBudget:        1000,
			StartTime:        540,
			Pace:             model.PaceMedium,
			DayOfWeek:        model.Monday,
			TransportProfile: model.ProfileWalking,
		},
	}

	fields := []wizardField{
		{
			prompt:   "Path to candidate POIs JSON file",
			defaultValue: "",
			apply: func(m *wizardModel, v string) error {
				pois, err := loadCandidates(v)
				if err != nil {
					return err
				}
				m.req.Candidates = pois
				return nil
			},
		},
		{
			prompt:   "Day of week",
			defaultValue: string(model.Monday),
			apply: func(m *wizardModel, v string) error {
				m.req.Constraints.DayOfWeek = model.Weekday(v)
				return nil
			},
		},
		{
			prompt:   "Start time (HH:MM)",
			defaultValue: "09:00",
			apply: func(m *wizardModel, v string) error {
				minutes, err := parseHHMM(v)
				if err != nil {
					return err
				}
				m.req.Constraints.StartTime = minutes
				return nil
			},
		},
	}

	return wizardModel{app: app, fields: fields, input: ti, req: req}
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c", "esc"))):
			return m, tea.Quit
		case msg.Type == tea.KeyEnter:
			if m.done {
				return m, tea.Quit
			}
			value := m.input.Value()
			if value == "" {
				value = m.fields[m.step].defaultValue
			}
			if err := m.fields[m.step].apply(&m, value); err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.step++
			m.input.Reset()

			if m.step >= len(m.fields) {
				rng := rand.New(rand.NewSource(time.Now().UnixNano()))
				resp, err := m.app.Orchestrator.Run(context.Background(), m.req, rng)
				if err != nil {
					m.err = err
				} else {
					m.result = &resp
				}
				m.done = true
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m wizardModel) View() string {
	if m.done {
		if m.err != nil {
			return wizardErrStyle.Render(fmt.Sprintf("optimization failed: %v", m.err)) + "\n"
		}
		data, _ := json.MarshalIndent(m.result, "", "  ")
		return string(data) + "\n" + lipgloss.NewStyle().Faint(true).Render("press enter to exit") + "\n"
	}

	field := m.fields[m.step]
	out := wizardTitleStyle.Render("tourweave wizard") + "\n"
	out += wizardPromptStyle.Render(field.prompt)
	if field.defaultValue != "" {
		out += fmt.Sprintf(" (default %s)", field.defaultValue)
	}
	out += "\n" + m.input.View() + "\n"
	if m.err != nil {
		out += wizardErrStyle.Render(m.err.Error()) + "\n"
	}
	return out
}

func newWizardCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Interactively build and run an optimization request",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(newWizardModel(app()))
			_, err := p.Run()
			return err
		},
	}
	return cmd
}
