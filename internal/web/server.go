package web

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"tsipmon/internal/render"
	"tsipmon/internal/tsip"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="2"><title>tsipmon</title></head>
<body>
<h1>tsipmon</h1>
<p>source={{.Receiver.Source}} state={{.Receiver.State}} packets={{.Receiver.Counters.Packets}} records={{.Receiver.Counters.Records}} unrecognized={{.Receiver.Counters.Unrecognized}} bad_length={{.Receiver.Counters.BadLength}}</p>
{{if .Receiver.LastError}}<p>last_error={{.Receiver.LastError}}</p>{{end}}
{{range .Blocks}}<pre>{{.}}</pre>
{{else}}<p>No records decoded yet.</p>
{{end}}
{{if .PPS.Enabled}}<p>pps edges={{.PPS.Edges}} last_interval_ns={{.PPS.LastIntervalNs}} max_deviation_ns={{.PPS.MaxDeviationNs}} missed={{.PPS.Missed}}</p>{{end}}
<p><a href="/api/status">/api/status</a> <a href="/api/records">/api/records</a> <a href="/api/logs?format=text">/api/logs</a> <a href="/metrics">/metrics</a></p>
</body></html>
`))

// Blocks renders the latest record of each kind in console form.
func (s StatusSnapshot) Blocks() []string {
	var out []string
	if f := s.Receiver.PrimaryFix; f != nil {
		out = append(out, render.PrimaryFix(*f))
	}
	if u := s.Receiver.UTCTime; u != nil {
		out = append(out, render.UTCTime(*u))
	}
	if d := s.Receiver.DisciplineStatus; d != nil {
		out = append(out, render.DisciplineStatus(*d))
	}
	return out
}

type RecordsResponse struct {
	NowUTC  string               `json:"now_utc"`
	Records map[tsip.Kind]string `json:"records"`
}

func Handler(status *Status, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	})

	mux.HandleFunc("/api/records", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		now := time.Now().UTC()
		snap := status.Snapshot(now)
		resp := RecordsResponse{NowUTC: snap.NowUTC, Records: map[tsip.Kind]string{}}
		if f := snap.Receiver.PrimaryFix; f != nil {
			resp.Records[tsip.KindPrimaryFix] = render.PrimaryFix(*f)
		}
		if u := snap.Receiver.UTCTime; u != nil {
			resp.Records[tsip.KindUTCTime] = render.UTCTime(*u)
		}
		if d := snap.Receiver.DisciplineStatus; d != nil {
			resp.Records[tsip.KindDisciplineStatus] = render.DisciplineStatus(*d)
		}
		writeJSON(w, resp)
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.Handle("/metrics", MetricsHandler(status))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := indexTmpl.Execute(w, status.Snapshot(time.Now().UTC())); err != nil {
			http.Error(w, "render failed", http.StatusInternalServerError)
		}
	})

	return mux
}

func Serve(ctx context.Context, listenAddr string, status *Status, logs *LogBuffer) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, logs),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
