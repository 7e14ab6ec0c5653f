// Package tui is a terminal monitor that redraws the latest decoded records
// and receiver counters on a fixed interval.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tsipmon/internal/pps"
	"tsipmon/internal/receiver"
	"tsipmon/internal/render"
	"tsipmon/internal/tsip"
)

type Providers struct {
	Receiver func() receiver.Snapshot
	PPS      func() pps.Snapshot
}

type tickMsg time.Time

type Model struct {
	providers Providers
	interval  time.Duration

	snap   receiver.Snapshot
	pps    pps.Snapshot
	paused bool
	width  int
	at     time.Time
}

func New(p Providers, interval time.Duration) Model {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return Model{providers: p, interval: interval}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if !m.paused {
			m.refresh(time.Time(msg))
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) refresh(now time.Time) {
	if m.providers.Receiver != nil {
		m.snap = m.providers.Receiver()
	}
	if m.providers.PPS != nil {
		m.pps = m.providers.PPS()
	}
	m.at = now
}

func (m Model) View() string {
	var b strings.Builder
	s := m.snap

	state := s.State
	if m.paused {
		state += " (paused)"
	}
	fmt.Fprintf(&b, "tsipmon  %s  [%s]\n", s.Source, state)
	c := s.Counters
	fmt.Fprintf(&b, "bytes=%d packets=%d records=%d unrecognized=%d bad_length=%d pending=%d\n",
		c.Bytes, c.Packets, c.Records, c.Unrecognized, c.BadLength, s.PendingBytes)
	if len(c.ByKind) > 0 {
		var parts []string
		for _, k := range tsip.Kinds() {
			parts = append(parts, fmt.Sprintf("%s=%d", k, c.ByKind[k]))
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("\n")
	}
	if s.SurveyOffsetM != nil {
		fmt.Fprintf(&b, "survey offset: %.2f m\n", *s.SurveyOffsetM)
	}
	if m.pps.Enabled {
		fmt.Fprintf(&b, "pps: edges=%d interval=%dns max_dev=%dns missed=%d\n",
			m.pps.Edges, m.pps.LastIntervalNs, m.pps.MaxDeviationNs, m.pps.Missed)
	}
	if s.LastError != "" {
		fmt.Fprintf(&b, "error: %s\n", clip(s.LastError, m.width))
	}
	b.WriteString("\n")

	blocks := 0
	if s.PrimaryFix != nil {
		b.WriteString(render.PrimaryFix(*s.PrimaryFix))
		b.WriteString("\n\n")
		blocks++
	}
	if s.UTCTime != nil {
		b.WriteString(render.UTCTime(*s.UTCTime))
		b.WriteString("\n\n")
		blocks++
	}
	if s.DisciplineStatus != nil {
		b.WriteString(render.DisciplineStatus(*s.DisciplineStatus))
		b.WriteString("\n\n")
		blocks++
	}
	if blocks == 0 {
		b.WriteString("waiting for records...\n\n")
	}
	b.WriteString("q quit  p pause\n")
	return b.String()
}

func clip(s string, width int) string {
	if width <= 8 || len(s) <= width-8 {
		return s
	}
	return s[:width-11] + "..."
}

// Run blocks until the user quits or ctx is done.
func Run(ctx context.Context, p Providers, interval time.Duration) error {
	prog := tea.NewProgram(New(p, interval), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
