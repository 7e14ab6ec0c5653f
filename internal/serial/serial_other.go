//go:build !linux

package serial

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

func openPort(path string, baud int, parity Parity) (io.ReadWriteCloser, error) {
	c := &serial.Config{
		Name:        path,
		Baud:        baud,
		Size:        8,
		Parity:      serial.Parity(parity),
		StopBits:    serial.Stop1,
		ReadTimeout: 1 * time.Second,
	}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, err
	}
	return p, nil
}
