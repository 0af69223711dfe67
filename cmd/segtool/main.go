// cmd/segtool/main.go
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"

	"github.com/tamzrod/lift-washer/internal/config"
	"github.com/tamzrod/lift-washer/internal/plan"
	"github.com/tamzrod/lift-washer/internal/record"
	"github.com/tamzrod/lift-washer/internal/segment"
	"github.com/tamzrod/lift-washer/internal/status"
)

func main() {
	os.Exit(run())
}

func run() int {
	samplesPath := flag.String("samples", "", "recorded samples CSV (flag,z,dis)")
	cfgPath := flag.String("config", "", "controller config for postproc + cleaning knobs; defaults when empty")
	mode := flag.String("mode", "", "points|segments, overrides postproc.mode")
	segOut := flag.String("segments", "-", "segment (or point) table output, - for stdout")
	cmdOut := flag.String("commands", "", "command table output, empty to skip")
	flag.Parse()

	if *samplesPath == "" {
		log.Print("usage: segtool -samples <samples.csv> [-config cfg.yaml] [-mode points|segments] [-segments out.csv] [-commands out.csv]")
		return 1
	}

	c := config.Defaults()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Printf("config load failed: %v", err)
			return 1
		}
		c = *loaded
	}

	sp := segment.BuildParams(c.PostProc)
	if *mode != "" {
		sp.Mode = segment.Mode(*mode)
	}

	samples, err := record.ReadSamplesFile(*samplesPath)
	if err != nil {
		log.Printf("samples read failed (path=%s): %v", *samplesPath, err)
		return exitCode(err)
	}

	res, err := segment.Process(segment.Columns(samples), sp)
	if err != nil {
		log.Printf("segmentation failed (path=%s): %v", *samplesPath, err)
		return exitCode(err)
	}

	cmds, err := plan.Generate(res.Segments, plan.BuildParams(c.Cleaning))
	if err != nil {
		log.Printf("planning failed: %v", err)
		return 1
	}

	err = output(*segOut, func(w io.Writer) error {
		if sp.Mode == segment.ModePoints {
			return record.WritePoints(w, res.Points)
		}
		return record.WriteSegments(w, res.Segments)
	})
	if err != nil {
		log.Printf("segment output failed: %v", err)
		return 1
	}

	if *cmdOut != "" {
		if err := output(*cmdOut, func(w io.Writer) error { return record.WriteCommands(w, cmds) }); err != nil {
			log.Printf("command output failed: %v", err)
			return 1
		}
	}

	log.Printf("segtool done (samples=%d segments=%d points=%d commands=%d)",
		len(samples), len(res.Segments), len(res.Points), len(cmds))
	return 0
}

func output(path string, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(os.Stdout)
	}
	return record.WriteFile(path, fn)
}

func exitCode(err error) int {
	var de *segment.DataError
	if errors.As(err, &de) {
		return int(status.CodeData)
	}
	return int(status.CodeGeneric)
}
