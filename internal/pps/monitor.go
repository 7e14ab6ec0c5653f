// Package pps watches the receiver's one-pulse-per-second output on a GPIO
// line and tracks how regular the pulses are.
package pps

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

type Config struct {
	Enable bool
	// Chip is a GPIO character device name such as "gpiochip0".
	Chip string
	// Line is the line offset on Chip.
	Line int
}

type Snapshot struct {
	Enabled bool   `json:"enabled"`
	Chip    string `json:"chip,omitempty"`
	Line    int    `json:"line"`

	Edges          uint64 `json:"edges"`
	LastEdgeUTC    string `json:"last_edge_utc,omitempty"`
	LastIntervalNs int64  `json:"last_interval_ns,omitempty"`
	MaxDeviationNs int64  `json:"max_deviation_ns"`
	// Missed counts gaps of roughly two seconds or more between edges.
	Missed uint64 `json:"missed"`

	LastError string `json:"last_error,omitempty"`
}

// edgeSource delivers rising-edge kernel timestamps to fn until closed.
type edgeSource interface {
	Close() error
}

type openEdgesFunc func(chip string, line int, fn func(ts time.Duration)) (edgeSource, error)

var openEdgesFn openEdgesFunc = openEdges

type Monitor struct {
	cfg Config

	mu     sync.Mutex
	snap   Snapshot
	lastTS time.Duration
	have   bool
	src    edgeSource
}

func New(cfg Config) *Monitor {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	return &Monitor{
		cfg:  cfg,
		snap: Snapshot{Enabled: cfg.Enable, Chip: cfg.Chip, Line: cfg.Line},
	}
}

// Start requests the line and begins counting edges. It returns when ctx is
// done or immediately when the monitor is disabled.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("pps monitor is nil")
	}
	if !m.cfg.Enable {
		return nil
	}

	src, err := openEdgesFn(m.cfg.Chip, m.cfg.Line, func(ts time.Duration) {
		m.observe(time.Now().UTC(), ts)
	})
	if err != nil {
		m.setError(fmt.Sprintf("pps open failed chip=%s line=%d: %v", m.cfg.Chip, m.cfg.Line, err))
		return err
	}
	m.mu.Lock()
	m.src = src
	m.mu.Unlock()
	log.Printf("pps enabled chip=%s line=%d", m.cfg.Chip, m.cfg.Line)

	go func() {
		<-ctx.Done()
		m.Close()
	}()
	return nil
}

func (m *Monitor) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	src := m.src
	m.src = nil
	m.mu.Unlock()
	if src != nil {
		_ = src.Close()
	}
}

func (m *Monitor) observe(now time.Time, ts time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap.Edges++
	m.snap.LastEdgeUTC = now.Format(time.RFC3339Nano)
	if m.have {
		iv := ts - m.lastTS
		m.snap.LastIntervalNs = iv.Nanoseconds()
		if iv >= 1500*time.Millisecond {
			m.snap.Missed += uint64((iv + 500*time.Millisecond) / time.Second) - 1
		} else {
			dev := iv - time.Second
			if dev < 0 {
				dev = -dev
			}
			if dev.Nanoseconds() > m.snap.MaxDeviationNs {
				m.snap.MaxDeviationNs = dev.Nanoseconds()
			}
		}
	}
	m.lastTS = ts
	m.have = true
}

func (m *Monitor) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *Monitor) setError(msg string) {
	log.Printf("%s", msg)
	m.mu.Lock()
	m.snap.LastError = msg
	m.mu.Unlock()
}
