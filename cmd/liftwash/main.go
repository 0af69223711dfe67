// cmd/liftwash/main.go
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tamzrod/lift-washer/internal/config"
	"github.com/tamzrod/lift-washer/internal/controller"
	"github.com/tamzrod/lift-washer/internal/devicesim"
	"github.com/tamzrod/lift-washer/internal/plc"
	"github.com/tamzrod/lift-washer/internal/record"
	"github.com/tamzrod/lift-washer/internal/source"
	"github.com/tamzrod/lift-washer/internal/status"
)

const (
	exitOK      = 0
	exitGeneric = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		log.Print("usage: liftwash <config.yaml>")
		return exitGeneric
	}

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Printf("config load failed: %v", err)
		return exitGeneric
	}

	runID := uuid.NewString()
	log.Printf("run start (run=%s device=%s kind=%s base=%d)", runID, cfg.Device.Endpoint, cfg.Device.Kind, cfg.Device.RegBase)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Embedded simulator (optional)
	// --------------------

	if cfg.Simulator.Enabled {
		_, srv, wait, err := devicesim.Start(ctx, cfg.Simulator, cfg.Device.RegBase, cfg.Device.UnitID, nil)
		if err != nil {
			log.Printf("simulator start failed: %v", err)
			return exitGeneric
		}
		defer wait()
		defer srv.Close()
	}

	// --------------------
	// Device connections
	// --------------------

	dev, closeDev, err := plc.Build(cfg.Device, nil)
	if err != nil {
		log.Printf("device connect failed (run=%s): %v", runID, err)
		return exitCode(err)
	}
	defer closeDev()

	if v, err := dev.ReadVersion(); err == nil {
		log.Printf("device version=%g (run=%s)", v, runID)
	}

	if cfg.Heartbeat.Enabled {
		hbDev := dev
		// rtu owns the serial port; share the (serialized) transport
		if cfg.Device.Kind != config.KindRTU {
			d, closeHb, err := plc.Build(cfg.Device, nil)
			if err != nil {
				log.Printf("heartbeat connect failed (run=%s): %v", runID, err)
				return exitCode(err)
			}
			defer closeHb()
			hbDev = d
		}

		hbCtx, hbStop := context.WithCancel(ctx)
		defer hbStop()
		go plc.NewHeartbeat(hbDev, time.Duration(cfg.Heartbeat.PeriodMs)*time.Millisecond, nil).Run(hbCtx)
	}

	// --------------------
	// Live status feed (optional)
	// --------------------

	rc := controller.BuildConfig(cfg, runID, nil)

	if cfg.Monitor.Enabled {
		ln, err := net.Listen("tcp", cfg.Monitor.Listen)
		if err != nil {
			log.Printf("monitor listen failed (addr=%s): %v", cfg.Monitor.Listen, err)
			return exitGeneric
		}
		hub := status.NewHub(nil)
		go func() {
			if err := hub.Serve(ctx, ln); err != nil {
				log.Printf("monitor stopped: %v", err)
			}
		}()
		rc.Observer = hub
	}

	// --------------------
	// Vision + distance stand-ins
	// --------------------

	flags, err := source.BuildFlags(cfg.Vision, record.ReadSamplesFile)
	if err != nil {
		log.Printf("vision source failed: %v", err)
		return exitGeneric
	}
	dist := source.BuildDistance(ctx, cfg.Distance, flags)

	// --------------------
	// Run
	// --------------------

	ctrl, err := controller.New(rc, dev, flags, dist)
	if err != nil {
		log.Printf("controller build failed: %v", err)
		return exitGeneric
	}

	res, runErr := ctrl.Run(ctx)

	// artifacts are written even for a failed run
	writeArtifacts(cfg.Artifacts, res)

	if runErr != nil {
		log.Printf("run failed (run=%s state=%s stop=%s samples=%d segments=%d dispatched=%d): %v",
			runID, res.State, res.StopReason, len(res.Samples), len(res.Segments), res.Dispatched, runErr)
		return exitCode(runErr)
	}

	log.Printf("run done (run=%s stop=%s samples=%d segments=%d dispatched=%d soft_timeouts=%d finished=%t)",
		runID, res.StopReason, len(res.Samples), len(res.Segments), res.Dispatched, len(res.Timeouts), res.Finished)
	return exitOK
}

func writeArtifacts(a config.ArtifactsConfig, res controller.Result) {
	paths := record.Artifacts{
		SamplesCSV:  a.SamplesCSV,
		SegmentsCSV: a.SegmentsCSV,
		CommandsCSV: a.CommandsCSV,
	}
	written, err := paths.Write(record.Run{
		ID:       res.RunID,
		Samples:  res.Samples,
		Segments: res.Segments,
		Commands: res.Commands,
	})
	for _, p := range written {
		log.Printf("artifact written (run=%s path=%s)", res.RunID, p)
	}
	for _, e := range multierr.Errors(err) {
		log.Printf("artifact write failed (run=%s): %v", res.RunID, e)
	}
}

// exitCode maps the run error onto the process exit code.
func exitCode(err error) int {
	return int(controller.ErrorCode(err))
}
