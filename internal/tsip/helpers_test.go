package tsip

import (
	"encoding/binary"
	"math"
)

// stuff builds the wire form of a packet: DLE, id, data with every DLE
// doubled, DLE, ETX.
func stuff(id byte, data []byte) []byte {
	out := []byte{DLE}
	for _, b := range append([]byte{id}, data...) {
		if b == DLE {
			out = append(out, DLE)
		}
		out = append(out, b)
	}
	return append(out, DLE, ETX)
}

func primaryFixData(slots int) []byte {
	n := PrimaryFixLen8
	if slots == 12 {
		n = PrimaryFixLen12
	}
	d := make([]byte, n)
	d[0] = SubPrimaryFix
	return d
}

func utcTimeData() []byte {
	d := make([]byte, UTCTimeLen)
	d[0] = SubUTCTime
	return d
}

func disciplineData() []byte {
	d := make([]byte, DisciplineStatusLen)
	d[0] = SubDisciplineStatus
	return d
}

func putFloat32(b []byte, off int, v float32) {
	binary.BigEndian.PutUint32(b[off:], math.Float32bits(v))
}

func putFloat64(b []byte, off int, v float64) {
	binary.BigEndian.PutUint64(b[off:], math.Float64bits(v))
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
