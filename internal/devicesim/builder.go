// internal/devicesim/builder.go
package devicesim

import (
	"context"
	"log"
	"time"

	cfg "github.com/tamzrod/lift-washer/internal/config"
)

// BuildConfig converts the simulator section. The register window sits at base.
func BuildConfig(s cfg.SimulatorConfig, base uint16, logger *log.Logger) Config {
	return Config{
		Base:         base,
		Version:      s.Version,
		ZMaxMM:       s.ZMaxMM,
		AscendMMPerS: s.AscendMMPerS,
		ZPerSampleMM: s.ZPerSampleMM,
		ExecSeg:      time.Duration(s.ExecSegMs) * time.Millisecond,
		Tick:         time.Duration(s.TickMs) * time.Millisecond,
		Logger:       logger,
	}
}

// Start builds a simulator, listens on s.Listen and runs both the request
// server and the physics updater until ctx is done. The returned func waits
// for the server to stop.
func Start(ctx context.Context, s cfg.SimulatorConfig, base uint16, unitID uint8, logger *log.Logger) (*Sim, *Server, func(), error) {
	sim, err := New(BuildConfig(s, base, logger))
	if err != nil {
		return nil, nil, nil, err
	}
	srv, err := Listen(s.Listen, sim, unitID)
	if err != nil {
		return nil, nil, nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			sim.logger.Printf("devicesim: server stopped: %v", err)
		}
	}()
	go sim.Run(ctx)

	return sim, srv, func() { <-done }, nil
}
