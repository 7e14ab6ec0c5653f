package sink

import (
	"fmt"
	"log"
	"math"
	"time"

	influxdb "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"tsipmon/internal/tsip"
)

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type pointWriter interface {
	WritePoint(p *write.Point)
	Flush()
}

// Influx writes one point per record; the measurement is the record kind.
type Influx struct {
	w     pointWriter
	close func()
}

func NewInflux(cfg InfluxConfig) (*Influx, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx url and bucket are required")
	}
	client := influxdb.NewClient(cfg.URL, cfg.Token)
	w := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range w.Errors() {
			log.Printf("influx write failed url=%s bucket=%s: %v", cfg.URL, cfg.Bucket, err)
		}
	}()
	log.Printf("influx enabled url=%s org=%s bucket=%s", cfg.URL, cfg.Org, cfg.Bucket)
	return &Influx{w: w, close: client.Close}, nil
}

func (x *Influx) Publish(now time.Time, rec tsip.Record) error {
	p := Point(now, rec)
	if p == nil {
		return fmt.Errorf("influx: unsupported record %T", rec)
	}
	x.w.WritePoint(p)
	return nil
}

func (x *Influx) Close() error {
	x.w.Flush()
	if x.close != nil {
		x.close()
	}
	return nil
}

const radToDeg = 180 / math.Pi

// Point maps a record onto an Influx point stamped with the arrival time.
func Point(now time.Time, rec tsip.Record) *write.Point {
	switch r := rec.(type) {
	case tsip.PrimaryFix:
		fix := "3D"
		if r.TwoD() {
			fix = "2D"
		}
		return influxdb.NewPointWithMeasurement(r.Kind().String()).
			AddTag("fix", fix).
			AddTag("datum", r.Datum().String()).
			AddField("week", int64(r.Week)).
			AddField("time_of_week_s", r.TimeOfWeek).
			AddField("lat_deg", r.Latitude*radToDeg).
			AddField("lon_deg", r.Longitude*radToDeg).
			AddField("alt_hae_m", r.Altitude).
			AddField("vel_east_mps", r.VelEast).
			AddField("vel_north_mps", r.VelNorth).
			AddField("vel_up_mps", r.VelUp).
			AddField("sat_count", int64(len(r.Visible()))).
			AddField("differential", r.Differential()).
			SetTime(now)
	case tsip.UTCTime:
		return influxdb.NewPointWithMeasurement(r.Kind().String()).
			AddField("week", int64(r.Week)).
			AddField("time_of_week_s", int64(r.TimeOfWeek)).
			AddField("utc_offset_s", int64(r.UTCOffset)).
			AddField("flags", int64(r.Flags)).
			AddField("utc", r.Flags.Has(tsip.TimingUTC)).
			AddField("time_set", !r.Flags.Has(tsip.TimingNotSet)).
			SetTime(now)
	case tsip.DisciplineStatus:
		return influxdb.NewPointWithMeasurement(r.Kind().String()).
			AddTag("receiver_mode", r.ReceiverMode.String()).
			AddField("disciplining_mode", int64(r.DiscipliningMode)).
			AddField("self_survey_pct", int64(r.SelfSurveyProgress)).
			AddField("holdover_s", int64(r.HoldoverDuration)).
			AddField("critical_alarms", int64(r.CriticalAlarms)).
			AddField("minor_alarms", int64(r.MinorAlarms)).
			AddField("pps_quality_ns", float64(r.PPSQuality)).
			AddField("ten_mhz_quality_ppb", float64(r.TenMHzQuality)).
			AddField("dac_value", int64(r.DACValue)).
			AddField("dac_voltage_v", float64(r.DACVoltage)).
			AddField("temperature_c", float64(r.Temperature)).
			AddField("pps_quantization_error_s", float64(r.PPSQuantizationError)).
			AddField("lat_deg", r.Latitude*radToDeg).
			AddField("lon_deg", r.Longitude*radToDeg).
			AddField("alt_m", r.Altitude).
			SetTime(now)
	default:
		return nil
	}
}
