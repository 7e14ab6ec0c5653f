package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"tsipmon/internal/tsip"
)

// Config controls the receiver service.
//
// Source is "serial", "tcp" or "replay". ReadSize is the chunk size handed
// to the framer per read. With CarryPartial false each chunk is framed from
// scratch and a packet split across two reads is lost.
type Config struct {
	Source string

	Device string
	Baud   int
	Parity string

	Addr        string
	DialTimeout time.Duration

	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool

	ReadSize       int
	CarryPartial   bool
	ReconnectDelay time.Duration
}

type Counters struct {
	Bytes        uint64               `json:"bytes"`
	Chunks       uint64               `json:"chunks"`
	Packets      uint64               `json:"packets"`
	Records      uint64               `json:"records"`
	Unrecognized uint64               `json:"unrecognized"`
	BadLength    uint64               `json:"bad_length"`
	ByKind       map[tsip.Kind]uint64 `json:"by_kind,omitempty"`
}

type Snapshot struct {
	Source string `json:"source"`
	State  string `json:"state"`

	Counters     Counters `json:"counters"`
	PendingBytes int      `json:"pending_bytes"`

	PrimaryFix       *tsip.PrimaryFix       `json:"primary_fix,omitempty"`
	UTCTime          *tsip.UTCTime          `json:"utc_time,omitempty"`
	DisciplineStatus *tsip.DisciplineStatus `json:"discipline_status,omitempty"`

	SurveyOffsetM *float64 `json:"survey_offset_m,omitempty"`

	LastRecordUTC string `json:"last_record_utc,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}

type Service struct {
	cfg  Config
	src  Source
	link *link

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	closer   io.Closer
	framer   tsip.Framer
	counters Counters
	fix      *tsip.PrimaryFix
	utc      *tsip.UTCTime
	disc     *tsip.DisciplineStatus
	lastRec  time.Time
	lastErr  string

	subMu sync.RWMutex
	subs  []func(tsip.Record)
	taps  []func(time.Time, []byte)
}

func New(cfg Config) (*Service, error) {
	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithSource(cfg, src), nil
}

// NewWithSource builds a service around an already constructed Source.
func NewWithSource(cfg Config, src Source) *Service {
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = tsip.MaxPacketLen
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReplaySpeed <= 0 {
		cfg.ReplaySpeed = 1
	}
	name := "none"
	if src != nil {
		name = src.String()
	}
	return &Service{
		cfg:      cfg,
		src:      src,
		link:     newLink(name),
		counters: Counters{ByKind: map[tsip.Kind]uint64{}},
	}
}

// Subscribe registers fn to receive every decoded record. fn runs on the
// read goroutine and should not block.
func (s *Service) Subscribe(fn func(tsip.Record)) {
	if s == nil || fn == nil {
		return
	}
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

// Tap registers fn to receive every raw chunk before framing.
func (s *Service) Tap(fn func(now time.Time, chunk []byte)) {
	if s == nil || fn == nil {
		return
	}
	s.subMu.Lock()
	s.taps = append(s.taps, fn)
	s.subMu.Unlock()
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("receiver service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.src == nil {
		return fmt.Errorf("receiver source is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	log.Printf("receiver enabled %s read_size=%d carry_partial=%t", s.src, s.cfg.ReadSize, s.cfg.CarryPartial)

	go func() {
		defer close(s.done)
		s.run(runCtx)
	}()
	return nil
}

// Done is closed when the read loop exits. It is nil before Start.
func (s *Service) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	// Cancel before taking the closer so a stream opened concurrently is
	// either seen here or closed by run.
	if cancel != nil {
		cancel()
	}
	s.mu.Lock()
	closer := s.closer
	s.closer = nil
	s.mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	if done != nil {
		<-done
	}
}

func (s *Service) run(ctx context.Context) {
	defer s.link.fire(evStop)

	for {
		if ctx.Err() != nil {
			return
		}

		s.link.fire(evConnect)
		rc, err := s.src.Open(ctx)
		if err != nil {
			s.setError(fmt.Sprintf("receiver open failed %s: %v", s.src, err))
			if !s.src.Reconnect() {
				return
			}
			s.link.fire(evFail)
			if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			_ = rc.Close()
			return
		}
		s.closer = rc
		s.framer.Reset()
		s.mu.Unlock()
		s.link.fire(evUp)

		err = s.readLoop(ctx, rc)
		_ = rc.Close()

		s.mu.Lock()
		s.closer = nil
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, io.EOF) {
			s.setError(fmt.Sprintf("receiver read stopped: %v", err))
		}
		if !s.src.Reconnect() {
			log.Printf("receiver source finished %s", s.src)
			return
		}
		s.link.fire(evFail)
		if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
			return
		}
	}
}

func (s *Service) readLoop(ctx context.Context, r io.Reader) error {
	buf := make([]byte, s.cfg.ReadSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.Ingest(time.Now().UTC(), buf[:n])
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Ingest frames and decodes one chunk of raw bytes and notifies subscribers.
func (s *Service) Ingest(now time.Time, chunk []byte) {
	if s == nil || len(chunk) == 0 {
		return
	}

	s.subMu.RLock()
	taps := s.taps
	subs := s.subs
	s.subMu.RUnlock()

	for _, fn := range taps {
		fn(now, chunk)
	}

	var recs []tsip.Record
	s.mu.Lock()
	s.counters.Bytes += uint64(len(chunk))
	s.counters.Chunks++
	handle := func(p tsip.Packet) {
		if rec, ok := s.applyLocked(now, p); ok {
			recs = append(recs, rec)
		}
	}
	if s.cfg.CarryPartial {
		s.framer.Write(chunk, handle)
	} else {
		for p := range tsip.Packets(chunk) {
			handle(p)
		}
	}
	s.mu.Unlock()

	for _, rec := range recs {
		for _, fn := range subs {
			fn(rec)
		}
	}
}

func (s *Service) applyLocked(now time.Time, p tsip.Packet) (tsip.Record, bool) {
	s.counters.Packets++
	rec, out := tsip.Dispatch(p)
	switch out {
	case tsip.Unrecognized:
		s.counters.Unrecognized++
		return nil, false
	case tsip.BadLength:
		s.counters.BadLength++
		return nil, false
	}

	s.counters.Records++
	s.counters.ByKind[rec.Kind()]++
	s.lastRec = now

	switch r := rec.(type) {
	case tsip.PrimaryFix:
		s.fix = &r
	case tsip.UTCTime:
		s.utc = &r
	case tsip.DisciplineStatus:
		s.disc = &r
	}
	return rec, true
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{
		State:            s.link.current(),
		Counters:         s.counters,
		PendingBytes:     s.framer.Pending(),
		PrimaryFix:       s.fix,
		UTCTime:          s.utc,
		DisciplineStatus: s.disc,
		LastError:        s.lastErr,
	}
	if s.src != nil {
		out.Source = s.src.String()
	}
	out.Counters.ByKind = make(map[tsip.Kind]uint64, len(s.counters.ByKind))
	for k, v := range s.counters.ByKind {
		out.Counters.ByKind[k] = v
	}
	if !s.lastRec.IsZero() {
		out.LastRecordUTC = s.lastRec.UTC().Format(time.RFC3339Nano)
	}
	if s.fix != nil && s.disc != nil {
		if m, ok := SurveyOffset(*s.fix, *s.disc); ok {
			out.SurveyOffsetM = &m
		}
	}
	return out
}

func (s *Service) setError(msg string) {
	log.Printf("%s", msg)
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
