//go:build linux && (arm || arm64)

package pps

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

type gpiocdevEdges struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func openEdges(chipName string, offset int, fn func(ts time.Duration)) (edgeSource, error) {
	if offset < 0 {
		return nil, fmt.Errorf("pps: invalid gpio line %d", offset)
	}
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("tsipmon-pps"))
	if err != nil {
		return nil, err
	}
	line, err := chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventRisingEdge {
				fn(evt.Timestamp)
			}
		}),
	)
	if err != nil {
		_ = chip.Close()
		return nil, err
	}
	return &gpiocdevEdges{chip: chip, line: line}, nil
}

func (g *gpiocdevEdges) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
