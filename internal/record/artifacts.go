// internal/record/artifacts.go
package record

import (
	"io"

	"go.uber.org/multierr"

	"github.com/tamzrod/lift-washer/internal/plan"
	"github.com/tamzrod/lift-washer/internal/segment"
)

// Artifacts names the per-run CSV outputs. Paths are templates (see Expand);
// an empty path skips that table.
type Artifacts struct {
	SamplesCSV  string
	SegmentsCSV string
	CommandsCSV string
}

// Run is what one controller run leaves behind.
type Run struct {
	ID       string
	Samples  []segment.Sample
	Segments []segment.Segment
	Commands []plan.Command
}

// Write stores every table the run has data for. A failed table does not stop
// the others; all failures are combined. written lists the files created.
func (a Artifacts) Write(r Run) (written []string, err error) {
	put := func(tmpl string, fn func(io.Writer) error) {
		if tmpl == "" {
			return
		}
		path := Expand(tmpl, r.ID)
		if werr := WriteFile(path, fn); werr != nil {
			err = multierr.Append(err, werr)
			return
		}
		written = append(written, path)
	}

	if len(r.Samples) > 0 {
		put(a.SamplesCSV, func(w io.Writer) error { return WriteSamples(w, r.Samples) })
	}
	if r.Segments != nil {
		put(a.SegmentsCSV, func(w io.Writer) error { return WriteSegments(w, r.Segments) })
	}
	if r.Commands != nil {
		put(a.CommandsCSV, func(w io.Writer) error { return WriteCommands(w, r.Commands) })
	}
	return written, err
}
