package tsip

import (
	"fmt"
	"strconv"
)

// DisciplineStatusLen is the data size of 0x8F-AC, sub-id byte included.
const DisciplineStatusLen = 68

// ReceiverMode is the operating dimension reported in 0x8F-AC.
type ReceiverMode uint8

const (
	ModeAutomatic ReceiverMode = iota
	ModeSingleSatelliteTime
	ModeUnknown
	ModeHorizontal2D
	ModeFullPosition3D
	ModeDGPSReference
	ModeClockHold2D
	ModeOverdeterminedClock
)

var receiverModeLabels = [...]string{
	ModeAutomatic:           "Automatic (2D/3D)",
	ModeSingleSatelliteTime: "Single Satellite (Time)",
	ModeUnknown:             "unknown",
	ModeHorizontal2D:        "Horizontal (2D)",
	ModeFullPosition3D:      "Full Position (3D)",
	ModeDGPSReference:       "DGPS Reference",
	ModeClockHold2D:         "Clock Hold (2D)",
	ModeOverdeterminedClock: "Overdetermined Clock",
}

// ReceiverModeOf maps a raw mode byte onto the label table. The table has
// eight entries but the lookup is raw mod 7, so 7 reads as Automatic and
// OverdeterminedClock is never produced.
func ReceiverModeOf(raw uint8) ReceiverMode {
	return ReceiverMode(raw % 7)
}

func (m ReceiverMode) String() string {
	if int(m) < len(receiverModeLabels) {
		return receiverModeLabels[m]
	}
	return fmt.Sprintf("ReceiverMode(%d)", uint8(m))
}

func (m ReceiverMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// AlarmBits is a 16-bit alarm word.
type AlarmBits uint16

// Bit reports whether bit n (0 = least significant) is set.
func (a AlarmBits) Bit(n uint) bool {
	return n < 16 && a&(1<<n) != 0
}

// Nibbles renders the low byte as "dddd.dddd", most significant bit first.
func (a AlarmBits) Nibbles() string {
	s := fmt.Sprintf("%08b", uint8(a))
	return s[:4] + "." + s[4:]
}

func (a AlarmBits) String() string {
	return "0x" + strconv.FormatUint(uint64(a), 16)
}

// DisciplineStatus is the supplemental timing packet (0x8F-AC).
type DisciplineStatus struct {
	ReceiverMode       ReceiverMode `json:"receiver_mode"`
	RawReceiverMode    uint8        `json:"raw_receiver_mode"`
	DiscipliningMode   uint8        `json:"disciplining_mode"`
	SelfSurveyProgress uint8        `json:"self_survey_progress_pct"`
	HoldoverDuration   uint32       `json:"holdover_s"`

	CriticalAlarms AlarmBits `json:"critical_alarms"`
	MinorAlarms    AlarmBits `json:"minor_alarms"`

	GPSDecodingStatus    uint8 `json:"gps_decoding_status"`
	DiscipliningActivity uint8 `json:"disciplining_activity"`
	SpareStatus1         uint8 `json:"spare_status1"`
	SpareStatus2         uint8 `json:"spare_status2"`

	PPSQuality    float32 `json:"pps_quality_ns"`
	TenMHzQuality float32 `json:"ten_mhz_quality_ppb"`
	DACValue      uint32  `json:"dac_value"`
	DACVoltage    float32 `json:"dac_voltage_v"`
	Temperature   float32 `json:"temperature_c"`

	Latitude  float64 `json:"lat_rad"`
	Longitude float64 `json:"lon_rad"`
	Altitude  float64 `json:"alt_m"`

	// PPSQuantizationError is the sawtooth correction for the next PPS, in
	// seconds. Receivers that leave the field spare report zero.
	PPSQuantizationError float32 `json:"pps_quantization_error_s"`
}

func (DisciplineStatus) Kind() Kind { return KindDisciplineStatus }
func (DisciplineStatus) record()    {}

// DecodeDisciplineStatus decodes 0x8F-AC data (starting at the sub-id byte).
func DecodeDisciplineStatus(data []byte) (DisciplineStatus, bool) {
	if len(data) != DisciplineStatusLen {
		return DisciplineStatus{}, false
	}
	return DisciplineStatus{
		ReceiverMode:         ReceiverModeOf(data[1]),
		RawReceiverMode:      data[1],
		DiscipliningMode:     data[2],
		SelfSurveyProgress:   data[3],
		HoldoverDuration:     Uint32At(data, 4),
		CriticalAlarms:       AlarmBits(Uint16At(data, 8)),
		MinorAlarms:          AlarmBits(Uint16At(data, 10)),
		GPSDecodingStatus:    data[12],
		DiscipliningActivity: data[13],
		SpareStatus1:         data[14],
		SpareStatus2:         data[15],
		PPSQuality:           Float32At(data, 16),
		TenMHzQuality:        Float32At(data, 20),
		DACValue:             Uint32At(data, 24),
		DACVoltage:           Float32At(data, 28),
		Temperature:          Float32At(data, 32),
		Latitude:             Float64At(data, 36),
		Longitude:            Float64At(data, 44),
		Altitude:             Float64At(data, 52),
		PPSQuantizationError: Float32At(data, 60),
	}, true
}
