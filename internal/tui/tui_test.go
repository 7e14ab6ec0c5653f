package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tsipmon/internal/pps"
	"tsipmon/internal/receiver"
	"tsipmon/internal/tsip"
)

func testProviders(calls *int) Providers {
	return Providers{
		Receiver: func() receiver.Snapshot {
			*calls++
			return receiver.Snapshot{
				Source: "serial /dev/ttyS0",
				State:  "streaming",
				Counters: receiver.Counters{
					Packets: 3, Records: 2,
					ByKind: map[tsip.Kind]uint64{tsip.KindUTCTime: 2},
				},
				UTCTime: &tsip.UTCTime{TimeOfWeek: 4321, Week: 2311, Year: 2024, Month: 4, Day: 30},
			}
		},
		PPS: func() pps.Snapshot { return pps.Snapshot{Enabled: true, Edges: 9} },
	}
}

func TestModel_TickRefreshesSnapshot(t *testing.T) {
	calls := 0
	m := New(testProviders(&calls), time.Second)
	if m.Init() == nil {
		t.Fatalf("Init should schedule a tick")
	}
	if !strings.Contains(m.View(), "waiting for records") {
		t.Fatalf("expected empty view before first tick:\n%s", m.View())
	}

	next, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatalf("tick should reschedule")
	}
	view := next.View()
	for _, want := range []string{
		"tsipmon  serial /dev/ttyS0  [streaming]",
		"packets=3 records=2",
		"primary_fix=0 utc_time=2 discipline_status=0",
		"pps: edges=9",
		"8FAB: TOW: 004321  WN: 2311",
	} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestModel_PauseSkipsRefresh(t *testing.T) {
	calls := 0
	var m tea.Model = New(testProviders(&calls), time.Second)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m, _ = m.Update(tickMsg(time.Now()))
	if calls != 0 {
		t.Fatalf("paused model refreshed")
	}
	if !strings.Contains(m.View(), "(paused)") {
		t.Fatalf("view:\n%s", m.View())
	}
}

func TestModel_QuitKeys(t *testing.T) {
	m := New(Providers{}, 0)
	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("key %q: expected quit command", k.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("key %q: expected QuitMsg", k.String())
		}
	}
}

func TestModel_ClipsLongErrors(t *testing.T) {
	m := New(Providers{Receiver: func() receiver.Snapshot {
		return receiver.Snapshot{LastError: strings.Repeat("x", 200)}
	}}, time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	next, _ = next.Update(tickMsg(time.Now()))
	for _, line := range strings.Split(next.View(), "\n") {
		if strings.HasPrefix(line, "error: ") && len(line) > 40 {
			t.Fatalf("error line not clipped: %d chars", len(line))
		}
	}
}
