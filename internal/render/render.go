// Package render formats decoded TSIP records as console text.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"tsipmon/internal/tsip"
)

var dayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Record renders any decodable record.
func Record(rec tsip.Record) string {
	switch r := rec.(type) {
	case tsip.PrimaryFix:
		return PrimaryFix(r)
	case tsip.UTCTime:
		return UTCTime(r)
	case tsip.DisciplineStatus:
		return DisciplineStatus(r)
	default:
		return ""
	}
}

// Write renders rec followed by a blank line.
func Write(w io.Writer, rec tsip.Record) error {
	s := Record(rec)
	if s == "" {
		return nil
	}
	_, err := io.WriteString(w, s+"\n\n")
	return err
}

func PrimaryFix(f tsip.PrimaryFix) string {
	var b strings.Builder

	fixType := "3D"
	if f.TwoD() {
		fixType = "2D"
	}
	if f.Differential() {
		fixType = "Diff" + fixType
	}
	if f.Filtered() {
		fixType += "-Filtrd"
	}

	if day, h, m, s, ok := tsip.SplitTimeOfWeek(f.TimeOfWeek); ok {
		fmt.Fprintf(&b, "Fix at: %04d:%3s:%02d:%02d:%06.3f GPS (=UTC+%2ds)  FixType: %s",
			f.Week, dayNames[day], h, m, s, f.UTCOffset, fixType)
	} else {
		fmt.Fprintf(&b, "Fix at: %04d:<Bad time> GPS (=UTC+%2ds)  FixType: %s", f.Week, f.UTCOffset, fixType)
	}

	var datum string
	switch f.Datum() {
	case tsip.DatumNumbered:
		datum = fmt.Sprintf("Datum%3d", f.DatumIndex)
	case tsip.DatumUnknown:
		datum = "Unknown "
	default:
		datum = "WGS-84"
	}

	latD, latM, ns := degMin(f.Latitude, 'N', 'S')
	lonD, lonM, ew := degMin(f.Longitude, 'E', 'W')
	fmt.Fprintf(&b, "\n   Pos: %4d:%09.6f %c %5d:%09.6f %c %10.2f m HAE (%s)",
		latD, latM, ns, lonD, lonM, ew, f.Altitude, datum)
	fmt.Fprintf(&b, "\n   Vel:    %9.3f E       %9.3f N      %9.3f U   (m/sec)",
		f.VelEast, f.VelNorth, f.VelUp)

	sats := f.Visible()
	b.WriteString("\n   SVs: ")
	for _, sv := range sats {
		fmt.Fprintf(&b, " %02d", sv.PRN)
	}
	b.WriteString("     (IODEs:")
	for _, sv := range sats {
		fmt.Fprintf(&b, " %02X", sv.IODE&0xFF)
	}
	b.WriteString(")")
	return b.String()
}

func UTCTime(u tsip.UTCTime) string {
	var b strings.Builder
	fmt.Fprintf(&b, "8FAB: TOW: %06d  WN: %04d", u.TimeOfWeek, u.Week)
	fmt.Fprintf(&b, "\n      %04d/%02d/%02d  %02d:%02d:%02d",
		u.Year, u.Month, u.Day, u.Hour, u.Minute, u.Second)
	fmt.Fprintf(&b, "\n      UTC Offset: %d s   Timing flag: 000%05b", u.UTCOffset, uint8(u.Flags))
	return b.String()
}

func DisciplineStatus(s tsip.DisciplineStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "8FAC: RecvMode: %s   DiscMode: %d   SelfSurv: %d   Holdover: %d s",
		s.ReceiverMode, s.DiscipliningMode, s.SelfSurveyProgress, s.HoldoverDuration)
	fmt.Fprintf(&b, "\n      Crit: %s   Minr: %s", s.CriticalAlarms.Nibbles(), s.MinorAlarms.Nibbles())
	fmt.Fprintf(&b, "\n      GPS Status: %d   Discpln Act: %d   Spare Status: %d %d",
		s.GPSDecodingStatus, s.DiscipliningActivity, s.SpareStatus1, s.SpareStatus2)
	fmt.Fprintf(&b, "\n      Qual:  PPS: %.1f ns   Freq: %.3f PPB", s.PPSQuality, s.TenMHzQuality)
	fmt.Fprintf(&b, "\n      DAC:  Value: %d   Voltage: %f   Temp: %f deg C",
		s.DACValue, s.DACVoltage, s.Temperature)

	latD, latM, ns := degMin(s.Latitude, 'N', 'S')
	lonD, lonM, ew := degMin(s.Longitude, 'E', 'W')
	fmt.Fprintf(&b, "\n      Pos:  %d:%09.6f %c   %d:%09.6f %c   %.2f m ",
		latD, latM, ns, lonD, lonM, ew, s.Altitude)
	return b.String()
}

// TimeOfWeek renders a time-of-week as "Day hh:mm:ss.ss".
func TimeOfWeek(tow float64) string {
	day, h, m, s, ok := tsip.SplitTimeOfWeek(tow)
	if !ok {
		return "<Bad time>"
	}
	return fmt.Sprintf("%s %02d:%02d:%05.2f", dayNames[day], h, m, s)
}

// degMin splits an angle in radians into whole degrees, minutes and a
// hemisphere letter.
func degMin(rad float64, pos, neg byte) (int, float64, byte) {
	hemi := pos
	if rad < 0 {
		hemi = neg
	}
	deg := math.Abs(rad) * 180 / math.Pi
	whole, frac := math.Modf(deg)
	return int(whole), frac * 60, hemi
}
