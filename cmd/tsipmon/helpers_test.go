package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tsipmon/internal/tsip"
)

func stuff(id byte, data []byte) []byte {
	out := []byte{tsip.DLE}
	for _, b := range append([]byte{id}, data...) {
		if b == tsip.DLE {
			out = append(out, tsip.DLE)
		}
		out = append(out, b)
	}
	return append(out, tsip.DLE, tsip.ETX)
}

// utcWire is a framed 0x8F-AB packet for 2024-04-30 01:02:03, week 2311.
func utcWire(tow uint32) []byte {
	d := make([]byte, tsip.UTCTimeLen)
	d[0] = tsip.SubUTCTime
	binary.BigEndian.PutUint32(d[1:], tow)
	binary.BigEndian.PutUint16(d[5:], 2311)
	binary.BigEndian.PutUint16(d[7:], 18)
	d[10], d[11], d[12], d[13], d[14] = 3, 2, 1, 30, 4
	binary.BigEndian.PutUint16(d[15:], 2024)
	return stuff(tsip.IDSuperpacket, d)
}

// writeCapture writes segments of (t_ns, chunk) lines; each segment starts
// with START.
func writeCapture(t *testing.T, segments ...[][]byte) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("# session 6f1c2b9e-3d4a-4f5b-8c7d-1e2f3a4b5c6d\n")
	for _, seg := range segments {
		b.WriteString("START\n")
		for i, chunk := range seg {
			fmt.Fprintf(&b, "%d,%s\n", int64(i)*1_000_000, hex.EncodeToString(chunk))
		}
	}
	path := filepath.Join(t.TempDir(), "capture.log")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}
