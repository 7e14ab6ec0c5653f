// Package sink delivers decoded records to outputs: console text, JSON
// lines, UDP datagrams, MQTT topics and InfluxDB points.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"tsipmon/internal/render"
	"tsipmon/internal/tsip"
)

type Sink interface {
	Publish(now time.Time, rec tsip.Record) error
	Close() error
}

// Envelope is the JSON form of a record on every structured output.
type Envelope struct {
	Kind   tsip.Kind   `json:"kind"`
	Time   string      `json:"time"`
	Record tsip.Record `json:"record"`
}

func Encode(now time.Time, rec tsip.Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}
	return json.Marshal(Envelope{
		Kind:   rec.Kind(),
		Time:   now.UTC().Format(time.RFC3339Nano),
		Record: rec,
	})
}

// Text renders records as console text.
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

func NewText(w io.Writer) *Text { return &Text{w: w} }

func (t *Text) Publish(_ time.Time, rec tsip.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return render.Write(t.w, rec)
}

func (t *Text) Close() error { return nil }

// JSONLines writes one envelope per line.
type JSONLines struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSONLines(w io.Writer) *JSONLines { return &JSONLines{w: w} }

func (j *JSONLines) Publish(now time.Time, rec tsip.Record) error {
	b, err := Encode(now, rec)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.w.Write(append(b, '\n'))
	return err
}

func (j *JSONLines) Close() error { return nil }

// Sender transmits one opaque payload, e.g. a UDP datagram.
type Sender interface {
	Send(payload []byte) error
	Close() error
}

// Datagram sends each envelope as a single payload.
type Datagram struct {
	s Sender
}

func NewDatagram(s Sender) *Datagram { return &Datagram{s: s} }

func (d *Datagram) Publish(now time.Time, rec tsip.Record) error {
	b, err := Encode(now, rec)
	if err != nil {
		return err
	}
	return d.s.Send(b)
}

func (d *Datagram) Close() error { return d.s.Close() }

// Fanout publishes to every registered sink. A failing sink does not stop
// the others; its error is logged once until it changes.
type Fanout struct {
	mu      sync.Mutex
	names   []string
	sinks   []Sink
	lastErr []string
}

func (f *Fanout) Add(name string, s Sink) {
	if s == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	f.sinks = append(f.sinks, s)
	f.lastErr = append(f.lastErr, "")
}

func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sinks)
}

func (f *Fanout) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

func (f *Fanout) Publish(now time.Time, rec tsip.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var failed int
	for i, s := range f.sinks {
		err := s.Publish(now, rec)
		if err == nil {
			f.lastErr[i] = ""
			continue
		}
		failed++
		if msg := err.Error(); msg != f.lastErr[i] {
			log.Printf("sink publish failed name=%s kind=%s: %v", f.names[i], rec.Kind(), err)
			f.lastErr[i] = msg
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sinks failed", failed, len(f.sinks))
	}
	return nil
}

func (f *Fanout) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for i, s := range f.sinks {
		if err := s.Close(); err != nil {
			log.Printf("sink close failed name=%s: %v", f.names[i], err)
			if first == nil {
				first = err
			}
		}
	}
	f.sinks, f.names, f.lastErr = nil, nil, nil
	return first
}
