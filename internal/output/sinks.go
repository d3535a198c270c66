package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"fopsim/internal/simulation"
)

// Format names an output sink.
type Format string

const (
	FormatLegacy    Format = "legacy"
	FormatJSONL     Format = "jsonl"
	FormatShapefile Format = "shapefile"
	FormatMermaid   Format = "mermaid"
)

// ParseFormats splits a comma-separated list, dropping duplicates.
func ParseFormats(list []string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, item := range list {
		for _, part := range strings.Split(item, ",") {
			f := Format(strings.ToLower(strings.TrimSpace(part)))
			if f == "" {
				continue
			}
			switch f {
			case FormatLegacy, FormatJSONL, FormatShapefile, FormatMermaid:
			default:
				return nil, fmt.Errorf("unknown output format %q (want legacy, jsonl, shapefile or mermaid)", part)
			}
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// Set is the group of sinks opened for one run. File sinks always come
// before sinks added with Add, so a day is recorded as done only after every
// file for it was written.
type Set struct {
	sinks     []simulation.Sink
	recorders []simulation.Sink
	closers   []io.Closer
}

// Open creates dir and a sink per format inside it.
func Open(dir string, v simulation.Variant, formats []Format) (*Set, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir %q: %w", dir, err)
	}

	s := &Set{}
	for _, f := range formats {
		switch f {
		case FormatLegacy:
			w, err := NewLegacyWriter(dir, v)
			if err != nil {
				_ = s.Close()
				return nil, err
			}
			s.add(w, w)
		case FormatJSONL:
			w, err := CreateJSONL(dir, v)
			if err != nil {
				_ = s.Close()
				return nil, err
			}
			s.add(w, w)
		case FormatShapefile:
			s.add(NewShapefileWriter(dir, v), nil)
		case FormatMermaid:
			w := NewChartWriter(dir, v)
			s.add(w, w)
		}
	}
	return s, nil
}

// Add appends a caller-owned sink, such as the run store. It receives each
// day after the file sinks.
func (s *Set) Add(sink simulation.Sink) {
	s.recorders = append(s.recorders, sink)
}

func (s *Set) add(sink simulation.Sink, c io.Closer) {
	s.sinks = append(s.sinks, sink)
	if c != nil {
		s.closers = append(s.closers, c)
	}
}

// Sinks returns the file sinks in format order followed by the added sinks.
func (s *Set) Sinks() []simulation.Sink {
	return append(slices.Clip(s.sinks), s.recorders...)
}

// Close closes every file-backed sink.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
