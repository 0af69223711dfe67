// cmd/devicesim/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/tamzrod/lift-washer/internal/config"
	"github.com/tamzrod/lift-washer/internal/devicesim"
)

func main() {
	cfgPath := flag.String("config", "", "config with simulator and device sections (other sections optional); defaults when empty")
	listen := flag.String("listen", "", "listen address, overrides simulator.listen")
	execSeg := flag.Int("exec-seg-ms", 0, "segment execution time, overrides simulator.exec_seg_ms")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	c := config.Defaults()
	if *cfgPath != "" {
		loaded, err := config.LoadSimulator(*cfgPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		c = *loaded
	}
	if *listen != "" {
		c.Simulator.Listen = *listen
	}
	if *execSeg > 0 {
		c.Simulator.ExecSegMs = *execSeg
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim, _, wait, err := devicesim.Start(ctx, c.Simulator, c.Device.RegBase, c.Device.UnitID, nil)
	if err != nil {
		log.Fatalf("simulator start failed: %v", err)
	}

	<-ctx.Done()
	wait()

	log.Printf("devicesim stopped (last=%s commands=%d)", sim.Snapshot(), len(sim.Commands()))
}
