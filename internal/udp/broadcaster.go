// Package udp sends record envelopes as UDP datagrams.
package udp

import (
	"fmt"
	"net"
	"sync/atomic"
)

// MaxPayload is the largest datagram a UDP/IPv4 socket accepts.
const MaxPayload = 65507

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type (
	resolveFunc func(network, address string) (*net.UDPAddr, error)
	dialFunc    func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)
)

type Stats struct {
	Datagrams uint64 `json:"datagrams"`
	Bytes     uint64 `json:"bytes"`
	Errors    uint64 `json:"errors"`
}

// Broadcaster sends one datagram per Send to a fixed destination, which may
// be a unicast, broadcast or multicast address.
type Broadcaster struct {
	dest string
	conn udpConn

	datagrams atomic.Uint64
	bytes     atomic.Uint64
	errors    atomic.Uint64
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr, dialUDP)
}

func dialUDP(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
	c, err := net.DialUDP(network, laddr, raddr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("udp resolve %s: %w", dest, err)
	}
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("udp dial %s: %w", dest, err)
	}
	return &Broadcaster{dest: dest, conn: conn}, nil
}

func (b *Broadcaster) Dest() string { return b.dest }

// Send writes payload as a single datagram. Empty payloads are skipped.
func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if len(payload) > MaxPayload {
		b.errors.Add(1)
		return fmt.Errorf("udp payload too large: %d bytes", len(payload))
	}
	n, err := b.conn.Write(payload)
	if err != nil {
		b.errors.Add(1)
		return err
	}
	b.datagrams.Add(1)
	b.bytes.Add(uint64(n))
	return nil
}

func (b *Broadcaster) Stats() Stats {
	return Stats{
		Datagrams: b.datagrams.Load(),
		Bytes:     b.bytes.Load(),
		Errors:    b.errors.Load(),
	}
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
