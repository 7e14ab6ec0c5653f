package receiver

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"tsipmon/internal/tsip"
)

func wire(id byte, data []byte) []byte {
	out := []byte{tsip.DLE}
	for _, b := range append([]byte{id}, data...) {
		if b == tsip.DLE {
			out = append(out, tsip.DLE)
		}
		out = append(out, b)
	}
	return append(out, tsip.DLE, tsip.ETX)
}

func fixWire(latRad, lonRad float64) []byte {
	d := make([]byte, tsip.PrimaryFixLen8)
	d[0] = tsip.SubPrimaryFix
	binary.BigEndian.PutUint32(d[12:], uint32(int32(latRad/math.Pi*(1<<31))))
	binary.BigEndian.PutUint32(d[16:], uint32(int32(lonRad/math.Pi*(1<<31))))
	d[28] = 2
	return wire(tsip.IDSuperpacket, d)
}

func utcWire() []byte {
	d := make([]byte, tsip.UTCTimeLen)
	d[0] = tsip.SubUTCTime
	return wire(tsip.IDSuperpacket, d)
}

func disciplineWire(latRad, lonRad float64) []byte {
	d := make([]byte, tsip.DisciplineStatusLen)
	d[0] = tsip.SubDisciplineStatus
	binary.BigEndian.PutUint64(d[36:], math.Float64bits(latRad))
	binary.BigEndian.PutUint64(d[44:], math.Float64bits(lonRad))
	return wire(tsip.IDSuperpacket, d)
}

// fakeSource hands out one stream per Open. Once streams run out it returns
// openErr, or a reader that blocks until closed when openErr is nil.
type fakeSource struct {
	mu        sync.Mutex
	streams   []io.Reader
	errs      []error
	opens     int
	reconnect bool
}

func (f *fakeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.opens
	f.opens++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.streams) {
		return io.NopCloser(f.streams[i]), nil
	}
	pr, _ := io.Pipe()
	return pr, nil
}

func (f *fakeSource) Reconnect() bool { return f.reconnect }
func (f *fakeSource) String() string  { return "fake" }

func (f *fakeSource) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

type recorder struct {
	mu   sync.Mutex
	recs []tsip.Record
}

func (r *recorder) add(rec tsip.Record) {
	r.mu.Lock()
	r.recs = append(r.recs, rec)
	r.mu.Unlock()
}

func (r *recorder) kinds() []tsip.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tsip.Kind, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, rec.Kind())
	}
	return out
}

func waitDone(t *testing.T, s *Service) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("receiver did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}
