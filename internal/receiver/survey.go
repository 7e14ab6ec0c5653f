package receiver

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"tsipmon/internal/tsip"
)

// earthRadiusM is the IUGG mean earth radius.
const earthRadiusM = 6371008.8

// SurveyOffset returns the great-circle distance in meters between the
// latest navigation fix and the position the receiver holds for timing.
// ok is false when the timing position has not been surveyed yet.
func SurveyOffset(fix tsip.PrimaryFix, st tsip.DisciplineStatus) (float64, bool) {
	if st.Latitude == 0 && st.Longitude == 0 {
		return 0, false
	}
	a := s2.LatLng{Lat: s1.Angle(fix.Latitude), Lng: s1.Angle(fix.Longitude)}
	b := s2.LatLng{Lat: s1.Angle(st.Latitude), Lng: s1.Angle(st.Longitude)}
	if !a.IsValid() || !b.IsValid() {
		return 0, false
	}
	return a.Distance(b).Radians() * earthRadiusM, true
}
