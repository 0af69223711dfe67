// internal/record/record_test.go
package record

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tamzrod/lift-washer/internal/plan"
	"github.com/tamzrod/lift-washer/internal/segment"
)

func TestSamplesCSV(t *testing.T) {
	in := []segment.Sample{
		{Tick: 0, Flag: 0, Z: 0, Dist: segment.Known(812.3456)},
		{Tick: 1, Flag: 1, Z: 50.5},
	}

	var buf bytes.Buffer
	if err := WriteSamples(&buf, in); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	want := "flag,z,dis\n0,0,812.346\n1,50.5,\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}

	out, err := ReadSamples(&buf)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(out) != 2 || out[1].Flag != 1 || out[1].Z != 50.5 || out[1].Dist.Known {
		t.Fatalf("got %+v", out)
	}
	if !out[0].Dist.Known || out[0].Dist.MM != 812.346 {
		t.Fatalf("distance: %+v", out[0].Dist)
	}
}

func TestReadSamples_Legacy(t *testing.T) {
	// float flags and nan distances as the older tooling wrote them
	in := "flag,z,dis\n1.0,0.0,nan\n0.0,50.0,700\n"
	out, err := ReadSamples(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if out[0].Flag != 1 || out[0].Dist.Known || out[1].Dist.MM != 700 {
		t.Fatalf("got %+v", out)
	}
}

func TestReadSamples_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"0,0,1\n",
		"flag,z,dis\n2,0,\n",
		"flag,z,dis\n1,abc,\n",
		"flag,z,dis\n1\n",
	} {
		if _, err := ReadSamples(strings.NewReader(in)); err == nil {
			t.Fatalf("input %q accepted", in)
		}
	}
}

func TestSegmentsAndCommandsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSegments(&buf, []segment.Segment{
		{Flag: 1, ZStart: 100, ZEnd: 400.12345, Dist: segment.Known(300)},
		{Flag: 1, ZStart: 500, ZEnd: 600},
	})
	if err != nil {
		t.Fatalf("WriteSegments: %v", err)
	}
	want := "flag,z_start_mm,z_end_mm,dis_mm\n1,100,400.123,300\n1,500,600,\n"
	if buf.String() != want {
		t.Fatalf("got %q", buf.String())
	}

	buf.Reset()
	err = WriteCommands(&buf, []plan.Command{{Z0: 100, Step: 150, Count: 3, Distance: 300, IsLast: true, Top: 600, Length: 500}})
	if err != nil {
		t.Fatalf("WriteCommands: %v", err)
	}
	if !strings.Contains(buf.String(), "0,600,100,150,3,300,1,500") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", Expand("samples_{run}.csv", "abc"))

	err := WriteFile(path, func(w io.Writer) error {
		return WritePoints(w, []segment.Point{{Flag: 1, Z: 2}})
	})
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out", "samples_abc.csv"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "flag,z,dis\n1,2,\n" {
		t.Fatalf("got %q", b)
	}
}
