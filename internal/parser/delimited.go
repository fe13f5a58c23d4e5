package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/fyrsmithlabs/a3drift/internal/calog"
	"github.com/fyrsmithlabs/a3drift/internal/dataset"
)

// DelimitedParser reads header-driven delimited text.
//
// The first record names the series. SkipRows data records after the header
// are dropped, which tolerates broken legacy header blocks. Every cell is
// coerced once with dataset.Coerce. Short rows yield empty text cells and
// surplus cells are ignored. Stray quotes in legacy logs are kept as text.
type DelimitedParser struct {
	SkipRows int
}

// Parse implements Parser.
func (p *DelimitedParser) Parse(r io.Reader) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = rune(calog.Delimiter[0])
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Line: 1, Err: errors.New("missing header")}
	}
	if err != nil {
		return nil, csvError(err)
	}
	// A repeated header name keeps its last column.
	var names []string
	column := make(map[string]int, len(header))
	for i, name := range header {
		if _, ok := column[name]; !ok {
			names = append(names, name)
		}
		column[name] = i
	}

	ds := dataset.New()
	for _, name := range names {
		ds.Set(name, nil)
	}

	for skipped := 0; ; {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		if skipped < p.SkipRows {
			skipped++
			continue
		}
		for _, name := range names {
			cell := ""
			if i := column[name]; i < len(rec) {
				cell = rec[i]
			}
			ds.Append(name, dataset.Coerce(cell))
		}
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func csvError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &ParseError{Line: perr.Line, Err: perr.Err}
	}
	return &ParseError{Err: fmt.Errorf("read record: %w", err)}
}
