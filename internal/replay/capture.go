package replay

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Capture format: line-oriented text.
//
// - Blank lines ignored.
// - "# session <uuid>" names the capture session; other '#' lines are ignored.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Data lines are: <t_ns>,<hex>
//   where t_ns is nanoseconds since START and hex is one raw chunk as it was
//   read from the receiver, before framing.

const sessionPrefix = "# session "

type Record struct {
	At    time.Duration
	Chunk []byte
}

type Capture struct {
	Session uuid.UUID
	Records []Record
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadFile reads a whole capture file.
func ReadFile(path string) (Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Capture{}, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

func (rr *Reader) ReadAll() (Capture, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	out := Capture{Records: make([]Record, 0, 1024)}
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, sessionPrefix) {
			id, err := uuid.Parse(strings.TrimSpace(line[len(sessionPrefix):]))
			if err != nil {
				return Capture{}, fmt.Errorf("invalid capture session: %w", err)
			}
			out.Session = id
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			out.Records = append(out.Records, Record{At: 0, Chunk: nil})
			continue
		}

		rec, err := parseChunkLine(line)
		if err != nil {
			return Capture{}, err
		}
		out.Records = append(out.Records, rec)
	}
	if err := s.Err(); err != nil {
		return Capture{}, err
	}

	return out, nil
}

// parseChunkLine parses "<t_ns>,<hex>". Spaces inside the hex are allowed.
func parseChunkLine(line string) (Record, error) {
	ts, payload, ok := strings.Cut(line, ",")
	if !ok {
		return Record{}, fmt.Errorf("invalid capture line (missing comma): %q", line)
	}
	ts, payload = strings.TrimSpace(ts), strings.ReplaceAll(strings.TrimSpace(payload), " ", "")
	if ts == "" || payload == "" {
		return Record{}, fmt.Errorf("invalid capture line (empty field): %q", line)
	}
	ns, err := strconv.ParseInt(ts, 10, 64)
	switch {
	case err != nil:
		return Record{}, fmt.Errorf("invalid capture timestamp %q: %w", ts, err)
	case ns < 0:
		return Record{}, fmt.Errorf("invalid capture timestamp (negative): %d", ns)
	}
	chunk, err := hex.DecodeString(payload)
	if err != nil {
		return Record{}, fmt.Errorf("invalid capture hex payload: %w", err)
	}
	return Record{At: time.Duration(ns), Chunk: chunk}, nil
}

// Chunks returns the data records, skipping START markers.
func (c Capture) Chunks() [][]byte {
	out := make([][]byte, 0, len(c.Records))
	for _, r := range c.Records {
		if r.Chunk != nil {
			out = append(out, r.Chunk)
		}
	}
	return out
}

type Writer struct {
	f       *os.File
	w       *bufio.Writer
	start   time.Time
	session uuid.UUID
	closed  bool
}

// CreateWriter starts a new capture file with a fresh session id.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := fmt.Fprintf(bw, "START\n%s%s\n", sessionPrefix, id); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now(), session: id}, nil
}

func (ww *Writer) Session() uuid.UUID { return ww.session }

func (ww *Writer) WriteChunk(now time.Time, chunk []byte) error {
	if ww.closed {
		return errors.New("capture writer is closed")
	}
	if len(chunk) == 0 {
		return errors.New("chunk is empty")
	}

	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	if _, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), hex.EncodeToString(chunk)); err != nil {
		return err
	}
	return nil
}

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type ctxSleeper struct {
	ctx context.Context
}

func (s ctxSleeper) Sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
	case <-t.C:
	}
}

// Play replays records with their relative timing.
//
// cb is invoked for each record that carries a chunk. START markers reset
// the origin. speed: 1.0 = real time, 2.0 = half waits. Play returns
// ctx.Err() once ctx is done.
func Play(ctx context.Context, records []Record, speed float64, loop bool, sleeper Sleeper, cb func(chunk []byte) error) error {
	if speed <= 0 {
		return fmt.Errorf("speed must be > 0")
	}
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	if sleeper == nil {
		sleeper = ctxSleeper{ctx: ctx}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for {
		var origin time.Duration
		var lastAt time.Duration
		var haveLast bool

		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.Chunk == nil {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := r.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				wait := at - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speed)
				if wait > 0 {
					sleeper.Sleep(wait)
					if err := ctx.Err(); err != nil {
						return err
					}
				}
			}

			if err := cb(r.Chunk); err != nil {
				return err
			}

			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}
