package udp

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

type fakeConn struct {
	writes   [][]byte
	writeErr error
	closed   bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestNewBroadcaster_DialsResolvedAddr(t *testing.T) {
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		if network != "udp" || laddr != nil {
			t.Fatalf("network=%q laddr=%v", network, laddr)
		}
		gotRaddr = raddr
		return fc, nil
	}

	b, err := newBroadcaster("192.168.10.255:5017", net.ResolveUDPAddr, dial)
	if err != nil {
		t.Fatalf("newBroadcaster() error: %v", err)
	}
	if gotRaddr == nil || gotRaddr.Port != 5017 || !gotRaddr.IP.Equal(net.IPv4(192, 168, 10, 255)) {
		t.Fatalf("raddr=%v", gotRaddr)
	}
	if b.Dest() != "192.168.10.255:5017" {
		t.Fatalf("dest=%q", b.Dest())
	}
	if err := b.Close(); err != nil || !fc.closed {
		t.Fatalf("Close() err=%v closed=%t", err, fc.closed)
	}
}

func TestNewBroadcaster_Failures(t *testing.T) {
	resolveErr := errors.New("no such host")
	dialErr := errors.New("network unreachable")
	okDial := func(string, *net.UDPAddr, *net.UDPAddr) (udpConn, error) { return &fakeConn{}, nil }

	cases := []struct {
		name    string
		resolve resolveFunc
		dial    dialFunc
		want    error
	}{
		{
			name:    "Resolve",
			resolve: func(string, string) (*net.UDPAddr, error) { return nil, resolveErr },
			dial:    okDial,
			want:    resolveErr,
		},
		{
			name:    "Dial",
			resolve: net.ResolveUDPAddr,
			dial:    func(string, *net.UDPAddr, *net.UDPAddr) (udpConn, error) { return nil, dialErr },
			want:    dialErr,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newBroadcaster("127.0.0.1:4000", tc.resolve, tc.dial)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestBroadcaster_SendCountsDatagrams(t *testing.T) {
	fc := &fakeConn{}
	b := &Broadcaster{dest: "x", conn: fc}

	if err := b.Send(nil); err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	env := []byte(`{"kind":"primary_fix"}`)
	if err := b.Send(env); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(fc.writes) != 1 || !bytes.Equal(fc.writes[0], env) {
		t.Fatalf("writes=%q", fc.writes)
	}
	if err := b.Send(make([]byte, MaxPayload+1)); err == nil {
		t.Fatalf("expected oversize error")
	}

	fc.writeErr = errors.New("boom")
	if err := b.Send([]byte{0x01}); !errors.Is(err, fc.writeErr) {
		t.Fatalf("err=%v", err)
	}

	want := Stats{Datagrams: 1, Bytes: uint64(len(env)), Errors: 2}
	if got := b.Stats(); got != want {
		t.Fatalf("stats=%+v want %+v", got, want)
	}
}

func TestBroadcaster_Close_NilConnNoPanic(t *testing.T) {
	b := &Broadcaster{}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestBroadcaster_LoopbackDatagram(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp loopback unavailable: %v", err)
	}
	defer pc.Close()

	b, err := NewBroadcaster(pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewBroadcaster() error: %v", err)
	}
	defer b.Close()

	if err := b.Send([]byte(`{"kind":"utc_time"}`)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	buf := make([]byte, 64)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error: %v", err)
	}
	if string(buf[:n]) != `{"kind":"utc_time"}` {
		t.Fatalf("datagram=%q", buf[:n])
	}
}
