package tsip

import (
	"bytes"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		id, sub byte
		want    Kind
	}{
		{IDSuperpacket, SubPrimaryFix, KindPrimaryFix},
		{IDSuperpacket, SubUTCTime, KindUTCTime},
		{IDSuperpacket, SubDisciplineStatus, KindDisciplineStatus},
		{IDSuperpacket, 0x21, KindNone},
		{0x8E, SubUTCTime, KindNone},
		{0x99, SubPrimaryFix, KindNone},
	}
	for _, tc := range cases {
		if got := Classify(tc.id, tc.sub); got != tc.want {
			t.Fatalf("Classify(%#x,%#x)=%v want %v", tc.id, tc.sub, got, tc.want)
		}
	}
}

func TestDispatch_Outcomes(t *testing.T) {
	cases := []struct {
		name string
		wire []byte
		want Outcome
		kind Kind
	}{
		{name: "PrimaryFix8", wire: stuff(IDSuperpacket, primaryFixData(8)), want: Decoded, kind: KindPrimaryFix},
		{name: "PrimaryFix12", wire: stuff(IDSuperpacket, primaryFixData(12)), want: Decoded, kind: KindPrimaryFix},
		{name: "UTCTime", wire: stuff(IDSuperpacket, utcTimeData()), want: Decoded, kind: KindUTCTime},
		{name: "Discipline", wire: stuff(IDSuperpacket, disciplineData()), want: Decoded, kind: KindDisciplineStatus},
		{name: "UnknownID", wire: stuff(0x99, primaryFixData(8)), want: Unrecognized},
		{name: "UnknownSub", wire: stuff(IDSuperpacket, []byte{0x41, 1, 2, 3}), want: Unrecognized},
		{name: "NoSubID", wire: stuff(IDSuperpacket, nil), want: Unrecognized},
		{name: "ShortUTCTime", wire: stuff(IDSuperpacket, utcTimeData()[:16]), want: BadLength},
		{name: "LongDiscipline", wire: stuff(IDSuperpacket, append(disciplineData(), 0)), want: BadLength},
		{name: "OddPrimaryFix", wire: stuff(IDSuperpacket, primaryFixData(12)[:60]), want: BadLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pkts := collect(tc.wire)
			if len(pkts) != 1 {
				t.Fatalf("packets=%d want 1", len(pkts))
			}
			rec, out := Dispatch(pkts[0])
			if out != tc.want {
				t.Fatalf("outcome=%v want %v", out, tc.want)
			}
			if tc.want != Decoded {
				if rec != nil {
					t.Fatalf("expected nil record, got %T", rec)
				}
				return
			}
			if rec.Kind() != tc.kind {
				t.Fatalf("kind=%v want %v", rec.Kind(), tc.kind)
			}
		})
	}
}

func TestDecodeAll_UnknownIDYieldsNothing(t *testing.T) {
	wire := stuff(0x99, []byte{SubPrimaryFix, 0x01, 0x02})
	if got := collect(wire); len(got) != 1 {
		t.Fatalf("framer packets=%d want 1", len(got))
	}
	if recs := DecodeAll(wire); len(recs) != 0 {
		t.Fatalf("records=%d want 0", len(recs))
	}
}

func TestDecodeAll_MixedStream(t *testing.T) {
	fix := primaryFixData(8)
	fix[28] = 4
	fix[32] = DLE // PRN 16 forces stuffing inside the payload

	var wire []byte
	wire = append(wire, 0x00, 0xFF)
	wire = append(wire, stuff(IDSuperpacket, fix)...)
	wire = append(wire, stuff(0x8E, []byte{0xA5})...)
	wire = append(wire, stuff(IDSuperpacket, utcTimeData())...)
	wire = append(wire, stuff(IDSuperpacket, utcTimeData()[:10])...)
	wire = append(wire, stuff(IDSuperpacket, disciplineData())...)

	recs := DecodeAll(wire)
	want := []Kind{KindPrimaryFix, KindUTCTime, KindDisciplineStatus}
	if len(recs) != len(want) {
		t.Fatalf("records=%d want %d", len(recs), len(want))
	}
	for i, k := range want {
		if recs[i].Kind() != k {
			t.Fatalf("record %d kind=%v want %v", i, recs[i].Kind(), k)
		}
	}
	f := recs[0].(PrimaryFix)
	if f.Satellites[0].PRN != DLE || f.SatCount != 4 {
		t.Fatalf("fix sats=%+v count=%d", f.Satellites[0], f.SatCount)
	}
}

func TestDecode_TypeSwitch(t *testing.T) {
	pkts := collect(stuff(IDSuperpacket, utcTimeData()))
	rec, ok := Decode(pkts[0])
	if !ok {
		t.Fatalf("expected ok")
	}
	switch r := rec.(type) {
	case UTCTime:
		if r.Kind() != KindUTCTime {
			t.Fatalf("kind=%v", r.Kind())
		}
	default:
		t.Fatalf("unexpected record type %T", rec)
	}
}

func TestKindAndOutcomeNames(t *testing.T) {
	if KindDisciplineStatus.String() != "discipline_status" || Kind(9).String() != "kind(9)" {
		t.Fatalf("kind names wrong")
	}
	b, _ := KindPrimaryFix.MarshalText()
	if !bytes.Equal(b, []byte("primary_fix")) {
		t.Fatalf("MarshalText=%q", b)
	}
	var k Kind
	if err := k.UnmarshalText([]byte("utc_time")); err != nil || k != KindUTCTime {
		t.Fatalf("UnmarshalText=%v err=%v", k, err)
	}
	if err := k.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if BadLength.String() != "bad_length" || Unrecognized.String() != "unrecognized" {
		t.Fatalf("outcome names wrong")
	}
	if len(Kinds()) != 3 {
		t.Fatalf("kinds=%v", Kinds())
	}
}
