package main

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"tsipmon/internal/replay"
	"tsipmon/internal/sink"
	"tsipmon/internal/tsip"
)

// packetKey is id<<8 | sub-id; sub-id is 0 for packets without data.
type packetKey uint16

func keyOf(p tsip.Packet) packetKey {
	k := packetKey(p.ID()) << 8
	if d := p.Data(); len(d) > 0 {
		k |= packetKey(d[0])
	}
	return k
}

func (k packetKey) String() string {
	return fmt.Sprintf("0x%02X-%02X", byte(k>>8), byte(k))
}

type captureSummary struct {
	Segments     int
	Chunks       int
	Bytes        int
	Packets      int
	Unrecognized int
	BadLength    int
	MaxDuration  time.Duration
	PacketCounts map[packetKey]int
	KindCounts   map[tsip.Kind]int
}

// walkCapture frames every segment of c with a framer that carries partial
// packets across chunks and is reset at each START.
func walkCapture(c replay.Capture, fn func(tsip.Packet)) {
	var f tsip.Framer
	for _, r := range c.Records {
		if r.Chunk == nil {
			f.Reset()
			continue
		}
		f.Write(r.Chunk, fn)
	}
}

func summarizeCapture(c replay.Capture) captureSummary {
	s := captureSummary{PacketCounts: map[packetKey]int{}, KindCounts: map[tsip.Kind]int{}}

	hasChunks := false
	for _, r := range c.Records {
		if r.Chunk == nil {
			s.Segments++
			continue
		}
		hasChunks = true
		s.Chunks++
		s.Bytes += len(r.Chunk)
		if r.At > s.MaxDuration {
			s.MaxDuration = r.At
		}
	}
	if s.Segments == 0 && hasChunks {
		s.Segments = 1
	}

	walkCapture(c, func(p tsip.Packet) {
		s.Packets++
		s.PacketCounts[keyOf(p)]++
		rec, out := tsip.Dispatch(p)
		switch out {
		case tsip.Decoded:
			s.KindCounts[rec.Kind()]++
		case tsip.BadLength:
			s.BadLength++
		default:
			s.Unrecognized++
		}
	})
	return s
}

func printCaptureSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	c, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	s := summarizeCapture(c)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "session: %s\n", c.Session)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "chunks: %d\n", s.Chunks)
	fmt.Fprintf(w, "bytes: %d\n", s.Bytes)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "packets: %d\n", s.Packets)
	fmt.Fprintf(w, "unrecognized: %d\n", s.Unrecognized)
	fmt.Fprintf(w, "bad_length: %d\n", s.BadLength)

	keys := make([]int, 0, len(s.PacketCounts))
	for k := range s.PacketCounts {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	fmt.Fprintf(w, "packet_counts:\n")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", packetKey(k), s.PacketCounts[packetKey(k)])
	}
	fmt.Fprintf(w, "record_counts:\n")
	for _, k := range tsip.Kinds() {
		fmt.Fprintf(w, "  %s: %d\n", k, s.KindCounts[k])
	}
	return nil
}

// decodeCapture prints every decodable record in c as console text or, with
// asJSON, as JSON lines, and returns how many were printed. JSON times are
// capture-relative, counted from the Unix epoch. A record that fails to
// print is logged and skipped.
func decodeCapture(w io.Writer, c replay.Capture, asJSON bool) int {
	var out sink.Sink = sink.NewText(w)
	if asJSON {
		out = sink.NewJSONLines(w)
	}
	origin := time.Unix(0, 0).UTC()

	n := 0
	var f tsip.Framer
	for _, r := range c.Records {
		if r.Chunk == nil {
			f.Reset()
			continue
		}
		at := origin.Add(r.At)
		f.Write(r.Chunk, func(p tsip.Packet) {
			rec, ok := tsip.Decode(p)
			if !ok {
				return
			}
			if err := out.Publish(at, rec); err != nil {
				log.Printf("capture decode skipped kind=%s at=%s: %v", rec.Kind(), r.At, err)
				return
			}
			n++
		})
	}
	return n
}

func printCaptureRecords(w io.Writer, path string, asJSON bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	c, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	decodeCapture(w, c, asJSON)
	return nil
}
