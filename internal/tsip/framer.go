package tsip

import "iter"

const (
	DLE = 0x10
	ETX = 0x03

	// MaxPacketLen bounds an in-progress packet. A packet that grows this large
	// without a DLE ETX trailer is abandoned and the framer resynchronizes on
	// the next DLE.
	MaxPacketLen = 300
)

// Packet is one complete frame as it appears after de-stuffing:
// DLE, id, data..., DLE, ETX.
type Packet []byte

// ID returns the packet id (the byte after the leading DLE).
func (p Packet) ID() byte {
	if len(p) < 2 {
		return 0
	}
	return p[1]
}

// Data returns the bytes between the id and the DLE ETX trailer.
func (p Packet) Data() []byte {
	if len(p) < 4 {
		return nil
	}
	return p[2 : len(p)-2]
}

type framerState uint8

const (
	stateSeeking framerState = iota
	stateSawDLE
	stateInPayload
)

// Framer is the de-stuffing state machine. The zero value is ready to use.
//
// A Framer carries partial packets from one Push to the next, so a single
// Framer fed with consecutive reads reassembles packets that straddle read
// boundaries. Use Packets for the one-shot form that starts every call from
// scratch.
type Framer struct {
	state framerState
	buf   []byte
}

// Reset drops any partial packet and returns to the seeking state.
func (f *Framer) Reset() {
	f.state = stateSeeking
	f.buf = f.buf[:0]
}

// Pending reports how many bytes of an unfinished packet are buffered.
func (f *Framer) Pending() int {
	if f.state == stateSeeking {
		return 0
	}
	return len(f.buf)
}

// Push feeds one byte. It returns a freshly allocated packet when b completes
// one.
func (f *Framer) Push(b byte) (Packet, bool) {
	switch f.state {
	case stateSeeking:
		if b == DLE {
			f.buf = append(f.buf[:0], DLE)
			f.state = stateSawDLE
		}
		return nil, false

	case stateSawDLE:
		// DLE ETX ends the packet, DLE DLE is a stuffed literal and DLE <id>
		// opens a packet. The last two both store b.
		if b == ETX {
			if len(f.buf) > 1 {
				pkt := make(Packet, 0, len(f.buf)+2)
				pkt = append(pkt, f.buf...)
				pkt = append(pkt, DLE, ETX)
				f.Reset()
				return pkt, true
			}
			// DLE ETX with nothing in between.
			f.Reset()
			return nil, false
		}
		f.buf = append(f.buf, b)
		f.state = stateInPayload

	case stateInPayload:
		if b == DLE {
			f.state = stateSawDLE
		} else {
			f.buf = append(f.buf, b)
		}
	}

	if len(f.buf) >= MaxPacketLen {
		f.Reset()
	}
	return nil, false
}

// Write feeds a chunk and calls emit for every packet completed by it.
func (f *Framer) Write(data []byte, emit func(Packet)) {
	for _, b := range data {
		if pkt, ok := f.Push(b); ok {
			emit(pkt)
		}
	}
}

// Packets frames data with a fresh Framer. Bytes before the first DLE and
// any unterminated tail are discarded; nothing is carried between calls.
func Packets(data []byte) iter.Seq[Packet] {
	return func(yield func(Packet) bool) {
		var f Framer
		for _, b := range data {
			pkt, ok := f.Push(b)
			if !ok {
				continue
			}
			if !yield(pkt) {
				return
			}
		}
	}
}
