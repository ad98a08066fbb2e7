package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// progressMsg carries one engine.ProgressFunc callback into the Bubble Tea
// event loop (grounded on internal/display/tui.go's message-per-event
// shape, generalized from game-log lines to trial/rule counters).
type progressMsg struct {
	trial      int
	totalTrial int
	rulesFound int
}

type doneMsg struct{}

type progressModel struct {
	trial      int
	totalTrial int
	rulesFound int
	start      time.Time
	done       bool

	bar    lipgloss.Style
	header lipgloss.Style
}

func newProgressModel(totalTrial int) progressModel {
	return progressModel{
		totalTrial: totalTrial,
		start:      time.Now(),
		header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")),
		bar:        lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
	}
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.trial = msg.trial
		m.rulesFound = msg.rulesFound
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	pct := 0.0
	if m.totalTrial > 0 {
		pct = float64(m.trial) / float64(m.totalTrial) * 100
	}
	elapsed := time.Since(m.start).Round(time.Second)
	return fmt.Sprintf("%s trial %d/%d (%.0f%%)  %s rules found  %s elapsed\n",
		m.header.Render("gnpminer"), m.trial, m.totalTrial, pct,
		m.bar.Render(fmt.Sprintf("%d", m.rulesFound)), elapsed)
}
