// internal/record/record.go
package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tamzrod/lift-washer/internal/plan"
	"github.com/tamzrod/lift-washer/internal/segment"
)

// Column headers. The sample and segment layouts are read back by tooling.
var (
	SampleHeader  = []string{"flag", "z", "dis"}
	SegmentHeader = []string{"flag", "z_start_mm", "z_end_mm", "dis_mm"}
	PointHeader   = []string{"flag", "z", "dis"}
	CommandHeader = []string{"idx", "h0_mm", "z0_mm", "step_mm", "count", "dis_mm", "is_last", "length_mm"}
)

func round3(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// unknown distances are written as an empty cell
func distCell(d segment.Distance) string {
	if !d.Known {
		return ""
	}
	return round3(d.MM)
}

// WriteSamples writes the raw ascent log.
func WriteSamples(w io.Writer, samples []segment.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SampleHeader); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{strconv.Itoa(int(s.Flag)), round3(s.Z), distCell(s.Dist)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSegments writes the final segment table.
func WriteSegments(w io.Writer, segs []segment.Segment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SegmentHeader); err != nil {
		return err
	}
	for _, s := range segs {
		row := []string{strconv.Itoa(int(s.Flag)), round3(s.ZStart), round3(s.ZEnd), distCell(s.Dist)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePoints writes the per-sample cleaned log.
func WritePoints(w io.Writer, pts []segment.Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PointHeader); err != nil {
		return err
	}
	for _, p := range pts {
		row := []string{strconv.Itoa(int(p.Flag)), round3(p.Z), distCell(p.Dist)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCommands writes the dispatched descent commands.
func WriteCommands(w io.Writer, cmds []plan.Command) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CommandHeader); err != nil {
		return err
	}
	for i, c := range cmds {
		last := "0"
		if c.IsLast {
			last = "1"
		}
		row := []string{
			strconv.Itoa(i),
			round3(c.Top),
			strconv.Itoa(c.Z0),
			strconv.Itoa(c.Step),
			strconv.Itoa(c.Count),
			strconv.Itoa(c.Distance),
			last,
			round3(c.Length),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSamples parses a samples CSV. The header row is required.
// An empty, "nan" or "none" distance cell is unknown.
func ReadSamples(r io.Reader) ([]segment.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("record: read samples: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("record: samples csv is empty")
	}
	if !strings.EqualFold(strings.TrimSpace(rows[0][0]), "flag") {
		return nil, fmt.Errorf("record: samples csv missing header")
	}

	out := make([]segment.Sample, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if len(row) < 2 {
			return nil, fmt.Errorf("record: line %d: want at least 2 columns, got %d", line, len(row))
		}

		flag, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil || (flag != 0 && flag != 1) {
			return nil, fmt.Errorf("record: line %d: bad flag %q", line, row[0])
		}
		z, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("record: line %d: bad z %q", line, row[1])
		}

		s := segment.Sample{Tick: i, Flag: uint8(flag), Z: z}
		if len(row) > 2 {
			cell := strings.ToLower(strings.TrimSpace(row[2]))
			if cell != "" && cell != "nan" && cell != "none" {
				d, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("record: line %d: bad dis %q", line, row[2])
				}
				s.Dist = segment.Known(d)
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadSamplesFile opens path and parses it.
func ReadSamplesFile(path string) ([]segment.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	defer f.Close()
	return ReadSamples(f)
}

// WriteFile creates path (and its directory) and hands it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("record: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("record: write %s: %w", path, err)
	}
	return f.Close()
}

// Expand substitutes {run} in an artifact path template.
func Expand(tmpl, runID string) string {
	return strings.ReplaceAll(tmpl, "{run}", runID)
}
