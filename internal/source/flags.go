// internal/source/flags.go
package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Observation is what the vision side reports for one sampling tick.
type Observation struct {
	Cleanable bool
	Top       bool // the camera sees the physical top of the shaft
}

// Flag returns the observation as a 0/1 sample flag.
func (o Observation) Flag() uint8 {
	if o.Cleanable {
		return 1
	}
	return 0
}

// ParsePattern expands "200x0,400x1,10x0" into a flag sequence.
// A bare "1" or "0" counts once.
func ParsePattern(s string) ([]uint8, error) {
	var out []uint8
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		count, val := "1", tok
		if i := strings.IndexByte(tok, 'x'); i >= 0 {
			count, val = tok[:i], tok[i+1:]
		}

		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("source: bad repeat count in %q", tok)
		}

		var f uint8
		switch strings.TrimSpace(val) {
		case "0":
			f = 0
		case "1":
			f = 1
		default:
			return nil, fmt.Errorf("source: flag must be 0 or 1 in %q", tok)
		}

		for i := 0; i < n; i++ {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("source: empty pattern %q", s)
	}
	return out, nil
}

// Pattern replays a fixed flag sequence, then reports io.EOF.
type Pattern struct {
	flags []uint8
	next  int

	// TopAtEnd marks the last flag as a vision top observation.
	TopAtEnd bool
}

// NewPattern parses a pattern string.
func NewPattern(s string, topAtEnd bool) (*Pattern, error) {
	flags, err := ParsePattern(s)
	if err != nil {
		return nil, err
	}
	return &Pattern{flags: flags, TopAtEnd: topAtEnd}, nil
}

// NextFlag implements the controller's flag source.
func (p *Pattern) NextFlag() (Observation, error) {
	if p.next >= len(p.flags) {
		return Observation{}, io.EOF
	}
	f := p.flags[p.next]
	p.next++
	return Observation{
		Cleanable: f == 1,
		Top:       p.TopAtEnd && p.next == len(p.flags),
	}, nil
}

// Len is the total number of flags.
func (p *Pattern) Len() int { return len(p.flags) }
