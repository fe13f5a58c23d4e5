// Package parser reads calibration logs into a dataset.Dataset.
//
// Two physical encodings exist. Current logs are delimited text with a header
// row. Older captures are pipe-segmented free text from which only the time,
// the temperature and one constant can be recovered. Detect tells them apart
// by looking for a pipe in the first line.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fyrsmithlabs/a3drift/internal/dataset"
)

// ErrParse is returned for malformed log content.
var ErrParse = errors.New("parse failed")

// ParseError reports the 1-based line where parsing failed.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Format is a physical log encoding.
type Format int

const (
	Delimited Format = iota
	Segmented
)

func (f Format) String() string {
	switch f {
	case Delimited:
		return "delimited-text"
	case Segmented:
		return "pipe-segmented"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// SegmentSeparator marks a pipe-segmented log.
const SegmentSeparator = "|"

// Detect classifies r by its first line only.
func Detect(r io.Reader) (Format, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Delimited, fmt.Errorf("read first line: %w", err)
	}
	if bytes.Contains(line, []byte(SegmentSeparator)) {
		return Segmented, nil
	}
	return Delimited, nil
}

// Parser turns log content into a dataset.
type Parser interface {
	Parse(r io.Reader) (*dataset.Dataset, error)
}

// For returns the parser for format with skip leading records ignored.
func For(format Format, skip int) Parser {
	if format == Segmented {
		return NewSegmented(skip)
	}
	return &DelimitedParser{SkipRows: skip}
}

// ParseFile detects the format of path and parses it. The file is read once.
func ParseFile(path string, skip int) (Format, *dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Delimited, nil, fmt.Errorf("read log: %w", err)
	}

	format, err := Detect(bytes.NewReader(data))
	if err != nil {
		return format, nil, err
	}
	ds, err := For(format, skip).Parse(bytes.NewReader(data))
	if err != nil {
		return format, nil, fmt.Errorf("parse %s log %s: %w", format, path, err)
	}
	return format, ds, nil
}
