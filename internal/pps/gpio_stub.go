//go:build !linux || (!arm && !arm64)

package pps

import (
	"fmt"
	"time"
)

func openEdges(chip string, line int, fn func(ts time.Duration)) (edgeSource, error) {
	return nil, fmt.Errorf("pps: gpio unsupported on this platform")
}
