package tsip

// Data sizes of the two 0x8F-20 layouts, sub-id byte included.
const (
	PrimaryFixLen8  = 56
	PrimaryFixLen12 = 64
)

const (
	// gpsPi is the value of pi fixed by IS-GPS-200.
	gpsPi = 3.1415926535898
	// semicircle converts a 2^31-scaled angle to radians.
	semicircle = gpsPi / 2147483648.0
)

// FixInfo holds the fix-information bits of 0x8F-20.
type FixInfo uint8

const (
	FixDifferential FixInfo = 0x02
	Fix2D           FixInfo = 0x04
	FixFiltered     FixInfo = 0x10
)

// DatumKind is the interpretation of the decremented datum index.
type DatumKind uint8

const (
	DatumWGS84 DatumKind = iota
	DatumUnknown
	DatumNumbered
)

func (d DatumKind) String() string {
	switch d {
	case DatumWGS84:
		return "WGS-84"
	case DatumUnknown:
		return "unknown"
	default:
		return "numbered"
	}
}

// Satellite is one slot of the 0x8F-20 satellite table.
type Satellite struct {
	PRN  uint8  `json:"prn"`
	IODE uint16 `json:"iode"`
}

// PrimaryFix is the last-fix-with-extra-precision superpacket (0x8F-20).
type PrimaryFix struct {
	Week       int16   `json:"week"`
	TimeOfWeek float64 `json:"time_of_week_s"`

	// VelocityScale is the m/s-per-unit factor applied to the ENU velocities.
	VelocityScale float64 `json:"velocity_scale"`
	VelEast       float64 `json:"vel_east_mps"`
	VelNorth      float64 `json:"vel_north_mps"`
	VelUp         float64 `json:"vel_up_mps"`

	Latitude  float64 `json:"lat_rad"`
	Longitude float64 `json:"lon_rad"`
	Altitude  float64 `json:"alt_hae_m"`

	// DatumIndex is the raw datum byte minus one.
	DatumIndex int8    `json:"datum_index"`
	Info       FixInfo `json:"info"`
	SatCount   uint8   `json:"sat_count"`
	// UTCOffset is the GPS-UTC offset in whole seconds.
	UTCOffset int8 `json:"utc_offset_s"`

	// Satellites always has 8 or 12 slots, matching the data size.
	Satellites []Satellite `json:"satellites"`
}

func (PrimaryFix) Kind() Kind { return KindPrimaryFix }
func (PrimaryFix) record()    {}

func (f PrimaryFix) Differential() bool { return f.Info&FixDifferential != 0 }
func (f PrimaryFix) TwoD() bool         { return f.Info&Fix2D != 0 }
func (f PrimaryFix) Filtered() bool     { return f.Info&FixFiltered != 0 }

// Datum classifies DatumIndex: positive is a datum table entry, zero is
// unknown and negative is the WGS-84 default.
func (f PrimaryFix) Datum() DatumKind {
	switch {
	case f.DatumIndex > 0:
		return DatumNumbered
	case f.DatumIndex == 0:
		return DatumUnknown
	default:
		return DatumWGS84
	}
}

// Visible returns the satellite slots covered by SatCount.
func (f PrimaryFix) Visible() []Satellite {
	n := int(f.SatCount)
	if n > len(f.Satellites) {
		n = len(f.Satellites)
	}
	return f.Satellites[:n]
}

// DecodePrimaryFix decodes 0x8F-20 data (starting at the sub-id byte). Only
// the 56-byte and 64-byte layouts are accepted.
func DecodePrimaryFix(data []byte) (PrimaryFix, bool) {
	var slots int
	switch len(data) {
	case PrimaryFixLen8:
		slots = 8
	case PrimaryFixLen12:
		slots = 12
	default:
		return PrimaryFix{}, false
	}

	f := PrimaryFix{VelocityScale: 0.005}
	if data[24]&1 != 0 {
		f.VelocityScale = 0.020
	}
	f.VelEast = float64(Int16At(data, 2)) * f.VelocityScale
	f.VelNorth = float64(Int16At(data, 4)) * f.VelocityScale
	f.VelUp = float64(Int16At(data, 6)) * f.VelocityScale
	f.TimeOfWeek = float64(Uint32At(data, 8)) * 0.001

	f.Latitude = float64(Int32At(data, 12)) * semicircle
	f.Longitude = float64(Uint32At(data, 16)) * semicircle
	if f.Longitude > gpsPi {
		f.Longitude -= 2 * gpsPi
	}
	f.Altitude = float64(Int32At(data, 20)) * 0.001

	f.DatumIndex = int8(data[26]) - 1
	f.Info = FixInfo(data[27])
	f.SatCount = data[28]
	f.UTCOffset = int8(data[29])
	f.Week = Int16At(data, 30)

	f.Satellites = make([]Satellite, slots)
	for i := range f.Satellites {
		raw := data[32+2*i]
		prn := raw & 0x3F
		// The two high bits of the PRN byte extend the IODE.
		f.Satellites[i] = Satellite{
			PRN:  prn,
			IODE: uint16(data[33+2*i]) + 4*uint16(raw-prn),
		}
	}
	return f, true
}
