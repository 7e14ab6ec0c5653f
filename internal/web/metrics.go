package web

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tsipmon/internal/receiver"
	"tsipmon/internal/tsip"
)

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc("tsipmon_"+name, help, labels, nil)
}

var (
	descBytes    = desc("receiver_bytes_total", "Raw bytes read from the receiver.")
	descPackets  = desc("receiver_packets_total", "Framed TSIP packets.")
	descRecords  = desc("receiver_records_total", "Decoded records by kind.", "kind")
	descDropped  = desc("receiver_dropped_packets_total", "Framed packets that did not decode, by reason.", "reason")
	descUp       = desc("receiver_up", "1 while the link is streaming.")
	descPending  = desc("receiver_pending_bytes", "Bytes of an unfinished packet held by the framer.")
	descSurvey   = desc("survey_offset_meters", "Distance between the fix position and the surveyed timing position.")
	descPPSQual  = desc("discipline_pps_quality_seconds", "PPS quality reported by the receiver.")
	descTenMHz   = desc("discipline_ten_mhz_quality_ppb", "10 MHz quality reported by the receiver.")
	descDAC      = desc("discipline_dac_voltage_volts", "Oscillator DAC voltage.")
	descTemp     = desc("discipline_temperature_celsius", "Receiver temperature.")
	descHoldover = desc("discipline_holdover_seconds", "Time spent in holdover.")
	descAlarms   = desc("discipline_alarm_bits", "Alarm bit field.", "severity")
	descEdges    = desc("pps_edges_total", "PPS rising edges seen on the GPIO line.")
	descMissed   = desc("pps_missed_total", "PPS pulses inferred missing from edge gaps.")
	descMaxDev   = desc("pps_max_deviation_seconds", "Largest deviation of a PPS interval from one second.")
)

// statusCollector turns a Status snapshot into metrics at scrape time.
type statusCollector struct {
	status *Status
}

func (c statusCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		descBytes, descPackets, descRecords, descDropped, descUp, descPending, descSurvey,
		descPPSQual, descTenMHz, descDAC, descTemp, descHoldover, descAlarms,
		descEdges, descMissed, descMaxDev,
	} {
		ch <- d
	}
}

func (c statusCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.status.Snapshot(time.Now().UTC())
	rx := snap.Receiver
	counter := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(descBytes, float64(rx.Counters.Bytes))
	counter(descPackets, float64(rx.Counters.Packets))
	for _, k := range tsip.Kinds() {
		counter(descRecords, float64(rx.Counters.ByKind[k]), k.String())
	}
	counter(descDropped, float64(rx.Counters.Unrecognized), tsip.Unrecognized.String())
	counter(descDropped, float64(rx.Counters.BadLength), tsip.BadLength.String())
	up := 0.0
	if rx.State == receiver.StateStreaming {
		up = 1
	}
	gauge(descUp, up)
	gauge(descPending, float64(rx.PendingBytes))
	if rx.SurveyOffsetM != nil {
		gauge(descSurvey, *rx.SurveyOffsetM)
	}

	if d := rx.DisciplineStatus; d != nil {
		gauge(descPPSQual, float64(d.PPSQuality)*1e-9)
		gauge(descTenMHz, float64(d.TenMHzQuality))
		gauge(descDAC, float64(d.DACVoltage))
		gauge(descTemp, float64(d.Temperature))
		gauge(descHoldover, float64(d.HoldoverDuration))
		gauge(descAlarms, float64(d.CriticalAlarms), "critical")
		gauge(descAlarms, float64(d.MinorAlarms), "minor")
	}

	if p := snap.PPS; p.Enabled {
		counter(descEdges, float64(p.Edges))
		counter(descMissed, float64(p.Missed))
		gauge(descMaxDev, float64(p.MaxDeviationNs)*1e-9)
	}
}

// MetricsHandler serves the Prometheus text exposition of status.
func MetricsHandler(status *Status) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(statusCollector{status: status})
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
