// Package calog is the append-only calibration log.
//
// Every successful calibration cycle appends exactly one line: the local
// wall-clock timestamp, the internal temperature and the calibration
// constants, comma separated, in schema order. The first line of a log is a
// header naming the fields. Lines are never rewritten.
package calog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the timestamp format of the TIME column (DD/MM/YYYY-HH:MM:SS).
const TimeLayout = "02/01/2006-15:04:05"

// TimeField is the label of the leading timestamp column.
const TimeField = "TIME"

// Delimiter separates fields within a record.
const Delimiter = ","

// ErrSchemaMismatch indicates an existing log was written with different fields.
var ErrSchemaMismatch = errors.New("log schema mismatch")

// Field is one logged reading: the column label and the query that produces it.
type Field struct {
	Label string
	Query string
}

// Schema is the ordered list of queried fields that follow TIME in a record.
type Schema []Field

// DefaultSchema is the post-ACAL read sequence of an HP 3458A: the internal
// temperature followed by eleven calibration constants, CAL? 72 last.
var DefaultSchema = Schema{
	{Label: "TEMP", Query: "TEMP?"},
	{Label: "CAL_1_1", Query: "CAL? 1,1"},
	{Label: "CAL_2_1", Query: "CAL? 2,1"},
	{Label: "CAL_78", Query: "CAL? 78"},
	{Label: "CAL_79", Query: "CAL? 79"},
	{Label: "CAL_70", Query: "CAL? 70"},
	{Label: "CAL_86", Query: "CAL? 86"},
	{Label: "CAL_87", Query: "CAL? 87"},
	{Label: "CAL_176", Query: "CAL? 176"},
	{Label: "CAL_59", Query: "CAL? 59"},
	{Label: "CAL_97", Query: "CAL? 97"},
	{Label: "CAL_72", Query: "CAL? 72"},
}

// Labels returns the full column list, TIME first.
func (s Schema) Labels() []string {
	labels := make([]string, 0, len(s)+1)
	labels = append(labels, TimeField)
	for _, f := range s {
		labels = append(labels, f.Label)
	}
	return labels
}

// Header returns the header line, newline terminated.
func (s Schema) Header() string {
	return strings.Join(s.Labels(), Delimiter) + "\n"
}

// Index returns the position of label within the schema, or -1.
func (s Schema) Index(label string) int {
	for i, f := range s {
		if f.Label == label {
			return i
		}
	}
	return -1
}

// Validate rejects empty schemas, blank or duplicate labels and labels that
// would break the delimited encoding.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.New("schema has no fields")
	}
	seen := map[string]bool{TimeField: true}
	for _, f := range s {
		if f.Label == "" || f.Query == "" {
			return fmt.Errorf("schema field %+v needs a label and a query", f)
		}
		if strings.ContainsAny(f.Label, ",|\r\n") {
			return fmt.Errorf("schema label %q contains a delimiter", f.Label)
		}
		if seen[f.Label] {
			return fmt.Errorf("duplicate schema label %q", f.Label)
		}
		seen[f.Label] = true
	}
	return nil
}

// Record is one calibration cycle's readings.
type Record struct {
	Time   time.Time
	Values []string // one per schema field, already trimmed
}

// Line encodes the record as a newline-terminated delimited line.
func (r Record) Line() string {
	return r.Time.Format(TimeLayout) + Delimiter + strings.Join(r.Values, Delimiter) + "\n"
}

// check verifies the record fits schema and encodes to exactly one line.
func (r Record) check(s Schema) error {
	if len(r.Values) != len(s) {
		return fmt.Errorf("%w: record has %d values, schema has %d", ErrSchemaMismatch, len(r.Values), len(s))
	}
	for i, v := range r.Values {
		if v == "" {
			return fmt.Errorf("empty value for %s", s[i].Label)
		}
		if strings.ContainsAny(v, ",\r\n") {
			return fmt.Errorf("value %q for %s contains a delimiter", v, s[i].Label)
		}
	}
	return nil
}
