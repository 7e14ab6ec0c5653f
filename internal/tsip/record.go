package tsip

import (
	"fmt"
	"time"
)

// Record is a decoded packet. The set of implementations is closed:
// PrimaryFix, UTCTime and DisciplineStatus.
type Record interface {
	Kind() Kind
	record()
}

// Kind tags a Record variant.
type Kind uint8

const (
	KindNone Kind = iota
	KindPrimaryFix
	KindUTCTime
	KindDisciplineStatus
)

var kindNames = map[Kind]string{
	KindNone:             "none",
	KindPrimaryFix:       "primary_fix",
	KindUTCTime:          "utc_time",
	KindDisciplineStatus: "discipline_status",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("tsip: unknown kind %q", b)
}

// Kinds lists the decodable kinds in dispatch order.
func Kinds() []Kind {
	return []Kind{KindPrimaryFix, KindUTCTime, KindDisciplineStatus}
}

// gpsEpoch is the start of GPS week 0.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// GPSTime converts a GPS week and time-of-week in seconds to an instant on the
// GPS time scale. No leap-second correction is applied.
func GPSTime(week int, tow float64) time.Time {
	d := time.Duration(week)*7*24*time.Hour + time.Duration(tow*float64(time.Second))
	return gpsEpoch.Add(d)
}

const secondsPerWeek = 604800

// SplitTimeOfWeek breaks a time-of-week into day, hour, minute and second.
// ok is false for values outside [0, 604800).
func SplitTimeOfWeek(tow float64) (day time.Weekday, hour, minute int, second float64, ok bool) {
	if tow < 0 || tow >= secondsPerWeek {
		return 0, 0, 0, 0, false
	}
	// Nudge values like 59.9999999 that come from float scaling.
	if tow < secondsPerWeek-0.1 {
		tow += 1e-8
	}
	whole := int(tow)
	day = time.Weekday(whole / 86400)
	hour = (whole / 3600) % 24
	minute = (whole / 60) % 60
	second = tow - float64(whole-whole%60)
	return day, hour, minute, second, true
}
