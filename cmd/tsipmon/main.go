package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tsipmon/internal/config"
	"tsipmon/internal/tui"
	"tsipmon/internal/web"
)

func main() {
	var (
		configPath  string
		summaryPath string
		decodePath  string
		decodeJSON  bool
		useTUI      bool
	)
	flag.StringVar(&configPath, "config", "./tsipmon.yaml", "Path to YAML config")
	flag.StringVar(&summaryPath, "summary", "", "Print a summary of a capture file and exit")
	flag.StringVar(&decodePath, "decode", "", "Decode a capture file to stdout and exit")
	flag.BoolVar(&decodeJSON, "json", false, "With -decode, print JSON lines instead of text")
	flag.BoolVar(&useTUI, "tui", false, "Show a terminal monitor instead of printing records")
	flag.Parse()

	if summaryPath != "" {
		if err := printCaptureSummary(os.Stdout, summaryPath); err != nil {
			log.Fatalf("capture summary failed: %v", err)
		}
		return
	}
	if decodePath != "" {
		if err := printCaptureRecords(os.Stdout, decodePath, decodeJSON); err != nil {
			log.Fatalf("capture decode failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(2000)
	if useTUI {
		// The terminal belongs to the monitor; keep logs for /api/logs only.
		log.SetOutput(logs)
	} else {
		log.SetOutput(io.MultiWriter(os.Stderr, logs))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var console io.Writer = os.Stdout
	if useTUI {
		console = nil
	}
	if err := runLive(ctx, cfg, logs, console, useTUI); err != nil {
		log.Fatalf("tsipmon failed: %v", err)
	}
}

// runLive runs until ctx is done, the monitor quits or a replay ends.
func runLive(ctx context.Context, cfg config.Config, logs *web.LogBuffer, console io.Writer, useTUI bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	status := web.NewStatus()
	rt, err := newLiveRuntime(cfg, status, console)
	if err != nil {
		return err
	}
	defer rt.Close()

	log.Printf("tsipmon starting source=%s", rt.cfg.Receiver.Source)
	if err := rt.Start(ctx); err != nil {
		return err
	}

	if rt.cfg.Web.Enable {
		log.Printf("web enabled listen=%s", rt.cfg.Web.Listen)
		go func() {
			if err := web.Serve(ctx, rt.cfg.Web.Listen, status, logs); err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	if useTUI {
		providers := tui.Providers{Receiver: rt.rx.Snapshot}
		if rt.pps != nil {
			providers.PPS = rt.pps.Snapshot
		}
		if err := tui.Run(ctx, providers, 500*time.Millisecond); err != nil {
			return err
		}
	} else {
		select {
		case <-ctx.Done():
		case <-rt.Done():
			log.Printf("receiver stopped")
		}
	}

	log.Printf("tsipmon stopping")
	return nil
}
