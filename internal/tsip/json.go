package tsip

import (
	"encoding/json"
	"math"
)

// jsonFloat32 and jsonFloat64 encode NaN and ±Inf as null. The float fields
// of 0x8F-AC are taken from the wire as-is and may hold any bit pattern.
type (
	jsonFloat32 float32
	jsonFloat64 float64
)

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (f jsonFloat32) MarshalJSON() ([]byte, error) {
	if !finite(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float32(f))
}

func (f jsonFloat64) MarshalJSON() ([]byte, error) {
	if !finite(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (s DisciplineStatus) MarshalJSON() ([]byte, error) {
	type plain DisciplineStatus
	return json.Marshal(struct {
		plain
		PPSQuality           jsonFloat32 `json:"pps_quality_ns"`
		TenMHzQuality        jsonFloat32 `json:"ten_mhz_quality_ppb"`
		DACVoltage           jsonFloat32 `json:"dac_voltage_v"`
		Temperature          jsonFloat32 `json:"temperature_c"`
		Latitude             jsonFloat64 `json:"lat_rad"`
		Longitude            jsonFloat64 `json:"lon_rad"`
		Altitude             jsonFloat64 `json:"alt_m"`
		PPSQuantizationError jsonFloat32 `json:"pps_quantization_error_s"`
	}{
		plain:                plain(s),
		PPSQuality:           jsonFloat32(s.PPSQuality),
		TenMHzQuality:        jsonFloat32(s.TenMHzQuality),
		DACVoltage:           jsonFloat32(s.DACVoltage),
		Temperature:          jsonFloat32(s.Temperature),
		Latitude:             jsonFloat64(s.Latitude),
		Longitude:            jsonFloat64(s.Longitude),
		Altitude:             jsonFloat64(s.Altitude),
		PPSQuantizationError: jsonFloat32(s.PPSQuantizationError),
	})
}
