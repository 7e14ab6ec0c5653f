package tsip

// Packet ids handled by Decode.
const (
	IDSuperpacket = 0x8F

	SubPrimaryFix       = 0x20
	SubUTCTime          = 0xAB
	SubDisciplineStatus = 0xAC
)

// superpackets maps 0x8F sub-ids to record kinds. It is the second level of
// the id -> sub-id lookup; no other first-level id is decoded.
var superpackets = map[byte]Kind{
	SubPrimaryFix:       KindPrimaryFix,
	SubUTCTime:          KindUTCTime,
	SubDisciplineStatus: KindDisciplineStatus,
}

// Classify returns the record kind for an id/sub-id pair, or KindNone.
// sub is ignored unless id is the superpacket id.
func Classify(id, sub byte) Kind {
	if id != IDSuperpacket {
		return KindNone
	}
	return superpackets[sub]
}

// Outcome says what happened to a packet handed to Dispatch.
type Outcome uint8

const (
	Decoded Outcome = iota
	// Unrecognized covers ids and sub-ids outside the supported set, and
	// superpackets with no sub-id byte.
	Unrecognized
	// BadLength is a recognized format whose data has the wrong size.
	BadLength
)

func (o Outcome) String() string {
	switch o {
	case Decoded:
		return "decoded"
	case Unrecognized:
		return "unrecognized"
	case BadLength:
		return "bad_length"
	default:
		return "unknown"
	}
}

// Dispatch routes a packet to its decoder and reports the outcome.
func Dispatch(p Packet) (Record, Outcome) {
	data := p.Data()
	if len(data) == 0 {
		return nil, Unrecognized
	}

	var (
		rec Record
		ok  bool
	)
	switch Classify(p.ID(), data[0]) {
	case KindPrimaryFix:
		rec, ok = asRecord(DecodePrimaryFix(data))
	case KindUTCTime:
		rec, ok = asRecord(DecodeUTCTime(data))
	case KindDisciplineStatus:
		rec, ok = asRecord(DecodeDisciplineStatus(data))
	default:
		return nil, Unrecognized
	}
	if !ok {
		return nil, BadLength
	}
	return rec, Decoded
}

// Decode returns the record carried by p, if any.
func Decode(p Packet) (Record, bool) {
	rec, out := Dispatch(p)
	return rec, out == Decoded
}

// DecodeAll frames data from scratch and decodes every packet found in it.
func DecodeAll(data []byte) []Record {
	var out []Record
	for pkt := range Packets(data) {
		if rec, ok := Decode(pkt); ok {
			out = append(out, rec)
		}
	}
	return out
}

func asRecord[T Record](r T, ok bool) (Record, bool) {
	if !ok {
		return nil, false
	}
	return r, true
}
