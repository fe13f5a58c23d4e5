package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/a3drift/internal/calog"
	"github.com/fyrsmithlabs/a3drift/internal/dataset"
)

// SegmentedParser reads pipe-segmented captures.
//
// Each line is split on "|" and each segment is inspected on its own. A
// segment holding TempTag has the form "<time>;TEMP?=<value>" and yields one
// time and one temperature. A segment holding ConstantTag has the form
// "...=<value>" and yields one constant. Other segments are ignored. The
// result always has exactly three series: TIME, TEMP and ConstantLabel.
type SegmentedParser struct {
	SkipRows      int
	TempTag       string
	ConstantTag   string
	ConstantLabel string
}

// NewSegmented returns a parser for the CAL? 72 captures.
func NewSegmented(skip int) *SegmentedParser {
	return &SegmentedParser{
		SkipRows:      skip,
		TempTag:       "TEMP?",
		ConstantTag:   "CAL? 72",
		ConstantLabel: "CAL_72",
	}
}

// Parse implements Parser.
func (p *SegmentedParser) Parse(r io.Reader) (*dataset.Dataset, error) {
	ds := dataset.New()
	ds.Set(calog.TimeField, nil)
	ds.Set("TEMP", nil)
	ds.Set(p.ConstantLabel, nil)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for line := 1; sc.Scan(); line++ {
		if line <= p.SkipRows {
			continue
		}
		for _, seg := range strings.Split(sc.Text(), SegmentSeparator) {
			if err := p.segment(ds, seg); err != nil {
				return nil, &ParseError{Line: line, Err: err}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read line: %w", err)}
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func (p *SegmentedParser) segment(ds *dataset.Dataset, seg string) error {
	switch {
	case strings.Contains(seg, p.TempTag):
		parts := strings.Split(seg, ";")
		if len(parts) != 2 {
			return fmt.Errorf("temperature segment %q: want <time>;%s=<value>", seg, p.TempTag)
		}
		temp, err := tagValue(parts[1])
		if err != nil {
			return fmt.Errorf("temperature segment %q: %w", seg, err)
		}
		ds.Append(calog.TimeField, dataset.TextValue(strings.TrimSpace(parts[0])))
		ds.Append("TEMP", dataset.NumberValue(temp))

	case strings.Contains(seg, p.ConstantTag):
		v, err := tagValue(seg)
		if err != nil {
			return fmt.Errorf("%s segment %q: %w", p.ConstantTag, seg, err)
		}
		ds.Append(p.ConstantLabel, dataset.NumberValue(v))
	}
	return nil
}

// tagValue returns the number after the first "=" and before any second one.
func tagValue(s string) (float64, error) {
	parts := strings.Split(s, "=")
	if len(parts) < 2 {
		return 0, errors.New("missing '='")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", strings.TrimSpace(parts[1]))
	}
	return v, nil
}
