package tsip

import "time"

// UTCTimeLen is the data size of 0x8F-AB, sub-id byte included.
const UTCTimeLen = 17

// TimingFlags are the five meaningful bits of the 0x8F-AB timing flag byte.
type TimingFlags uint8

const (
	TimingUTC         TimingFlags = 1 << 0 // time base is UTC, not GPS
	TimingPPSUTC      TimingFlags = 1 << 1 // PPS aligned to UTC, not GPS
	TimingNotSet      TimingFlags = 1 << 2 // time has not been set from GPS
	TimingNoUTCInfo   TimingFlags = 1 << 3 // no UTC parameters received yet
	TimingFromUser    TimingFlags = 1 << 4 // time came from the user, not GPS
	timingMeaningless TimingFlags = 0xE0
)

func (t TimingFlags) Has(f TimingFlags) bool { return t&f != 0 }

// UTCTime is the primary timing packet (0x8F-AB).
type UTCTime struct {
	TimeOfWeek uint32      `json:"time_of_week_s"`
	Week       uint16      `json:"week"`
	UTCOffset  int16       `json:"utc_offset_s"`
	Flags      TimingFlags `json:"flags"`

	Second uint8  `json:"second"`
	Minute uint8  `json:"minute"`
	Hour   uint8  `json:"hour"`
	Day    uint8  `json:"day"`
	Month  uint8  `json:"month"`
	Year   uint16 `json:"year"`
}

func (UTCTime) Kind() Kind { return KindUTCTime }
func (UTCTime) record()    {}

// Time returns the calendar fields as a UTC instant. Out-of-range fields are
// normalized the way time.Date does.
func (u UTCTime) Time() time.Time {
	return time.Date(int(u.Year), time.Month(u.Month), int(u.Day),
		int(u.Hour), int(u.Minute), int(u.Second), 0, time.UTC)
}

// DecodeUTCTime decodes 0x8F-AB data (starting at the sub-id byte).
func DecodeUTCTime(data []byte) (UTCTime, bool) {
	if len(data) != UTCTimeLen {
		return UTCTime{}, false
	}
	return UTCTime{
		TimeOfWeek: Uint32At(data, 1),
		Week:       Uint16At(data, 5),
		UTCOffset:  Int16At(data, 7),
		Flags:      TimingFlags(data[9]) &^ timingMeaningless,
		Second:     data[10],
		Minute:     data[11],
		Hour:       data[12],
		Day:        data[13],
		Month:      data[14],
		Year:       Uint16At(data, 15),
	}, true
}
