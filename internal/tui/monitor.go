package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"visualizer/internal/export"
)

const monitorTickInterval = 66 * time.Millisecond // ~15Hz, plenty for a text dashboard

var (
	beatOnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#F25D94")).
			Bold(true).
			Padding(0, 1)

	beatOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)

	barFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	barEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A"))
)

// MonitorModel is a bubbletea model that polls an export.Exporter on a
// fixed tick and renders a live text dashboard of bass energy, beat
// detection, and BPM tracking state. It owns no analysis state itself;
// every number it shows comes from the most recently published Frame.
type MonitorModel struct {
	exporter *export.Exporter
	frame    export.Frame
	beatFlashUntil time.Time
}

type monitorTickMsg time.Time

// NewMonitorModel builds a dashboard reading from the given exporter.
func NewMonitorModel(exporter *export.Exporter) MonitorModel {
	return MonitorModel{exporter: exporter}
}

func (m MonitorModel) Init() tea.Cmd {
	return monitorTick()
}

func monitorTick() tea.Cmd {
	return tea.Tick(monitorTickInterval, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case monitorTickMsg:
		m.exporter.Read(&m.frame)
		if m.frame.Constants.IsBeat != 0 {
			m.beatFlashUntil = time.Time(msg).Add(250 * time.Millisecond)
		}
		return m, monitorTick()
	}

	return m, nil
}

func (m MonitorModel) View() string {
	c := m.frame.Constants

	beatLabel := "     "
	beatStyle := beatOffStyle
	if time.Now().Before(m.beatFlashUntil) {
		beatLabel = " BEAT "
		beatStyle = beatOnStyle
	}

	bpm := 0.0
	if c.BPMPeriod > 0 {
		bpm = 60.0 / float64(c.BPMPeriod)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Live Monitor"))
	fmt.Fprintf(&b, "frame   %d\n", c.FrameIndex)
	fmt.Fprintf(&b, "time    %.2fs\n\n", c.Time)
	fmt.Fprintf(&b, "bass energy      %s %s\n", bar(float64(c.BassEnergy), 32), formatUnit(c.BassEnergy))
	fmt.Fprintf(&b, "cumulative       %.3f\n\n", c.CumulativeBassEnergy)
	fmt.Fprintf(&b, "%s  real beats: %d\n\n", beatStyle.Render(beatLabel), c.RealBeats)
	fmt.Fprintf(&b, "bpm              %.1f (period %.3fs)\n", bpm, c.BPMPeriod)
	fmt.Fprintf(&b, "bpm confidence   %s %s\n", bar(float64(c.BPMConfidence), 32), formatUnit(c.BPMConfidence))
	fmt.Fprintf(&b, "beat phase       %s %s\n", bar(float64(c.BeatFract), 32), formatUnit(c.BeatFract))
	fmt.Fprintf(&b, "beat probability %s %s\n", bar(float64(c.BeatProbability), 32), formatUnit(c.BeatProbability))
	fmt.Fprintf(&b, "\n%s\n", infoStyle.Render("q: quit"))

	return b.String()
}

// bar renders a fixed-width [0,1]-clamped progress bar.
func bar(value float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * float64(width))
	return barFilledStyle.Render(strings.Repeat("#", filled)) +
		barEmptyStyle.Render(strings.Repeat("-", width-filled))
}

func formatUnit(v float32) string {
	return fmt.Sprintf("%.3f", v)
}

// StartMonitorUI launches the live bass/BPM/beat dashboard.
func StartMonitorUI(exporter *export.Exporter) error {
	p := tea.NewProgram(
		NewMonitorModel(exporter),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
