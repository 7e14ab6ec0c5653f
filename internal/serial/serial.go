// Package serial opens the receiver's serial port in raw mode.
//
// Trimble timing receivers ship configured for 9600 baud, 8 data bits, odd
// parity and one stop bit.
package serial

import (
	"fmt"
	"io"
	"strings"
)

type Parity byte

const (
	ParityNone Parity = 'N'
	ParityOdd  Parity = 'O'
	ParityEven Parity = 'E'
)

// ParseParity accepts "none", "odd" and "even" (case-insensitive).
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	default:
		return 0, fmt.Errorf("unsupported parity %q", s)
	}
}

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return "none"
	}
}

// Open opens path at the given baud rate with 8 data bits and one stop bit.
func Open(path string, baud int, parity Parity) (io.ReadWriteCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("serial device is required")
	}
	if baud <= 0 {
		return nil, fmt.Errorf("unsupported baud %d", baud)
	}
	p, err := openPort(path, baud, parity)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", path, err)
	}
	return p, nil
}
