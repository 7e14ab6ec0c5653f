package web

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"tsipmon/internal/pps"
	"tsipmon/internal/receiver"
)

// Status aggregates the live views served by /api/status. Providers may be
// swapped at any time and are called on every request.
type Status struct {
	startUnixNano int64
	receiver      atomic.Value // func() receiver.Snapshot
	pps           atomic.Value // func() pps.Snapshot
	sinks         atomic.Value // []string
	build         BuildInfo
}

type BuildInfo struct {
	GoVersion  string `json:"go_version"`
	ModulePath string `json:"module_path,omitempty"`
	Version    string `json:"version,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
	BuildTime  string `json:"build_time,omitempty"`
}

func NewStatus() *Status {
	s := &Status{build: readBuildInfo()}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.receiver.Store(func() receiver.Snapshot { return receiver.Snapshot{State: "idle"} })
	s.pps.Store(func() pps.Snapshot { return pps.Snapshot{} })
	s.sinks.Store([]string{})
	return s
}

func (s *Status) SetReceiver(fn func() receiver.Snapshot) {
	if fn != nil {
		s.receiver.Store(fn)
	}
}

func (s *Status) SetPPS(fn func() pps.Snapshot) {
	if fn != nil {
		s.pps.Store(fn)
	}
}

func (s *Status) SetSinks(names []string) {
	s.sinks.Store(append([]string(nil), names...))
}

type StatusSnapshot struct {
	Service   string            `json:"service"`
	NowUTC    string            `json:"now_utc"`
	UptimeSec int64             `json:"uptime_sec"`
	Build     BuildInfo         `json:"build"`
	Sinks     []string          `json:"sinks"`
	Receiver  receiver.Snapshot `json:"receiver"`
	PPS       pps.Snapshot      `json:"pps"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	return StatusSnapshot{
		Service:   "tsipmon",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Build:     s.build,
		Sinks:     s.sinks.Load().([]string),
		Receiver:  s.receiver.Load().(func() receiver.Snapshot)(),
		PPS:       s.pps.Load().(func() pps.Snapshot)(),
	}
}

func readBuildInfo() BuildInfo {
	out := BuildInfo{GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return out
	}
	out.ModulePath = bi.Main.Path
	out.Version = bi.Main.Version
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.modified":
			out.Dirty = s.Value == "true"
		case "vcs.time":
			out.BuildTime = s.Value
		}
	}
	return out
}
