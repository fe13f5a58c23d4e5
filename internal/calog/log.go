package calog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Log appends records to a delimited-text calibration log.
//
// The file is opened and closed around every append so a reader watching the
// file always sees a complete prefix of records.
type Log struct {
	path   string
	schema Schema
}

// Open checks that path is either absent, empty or starts with the header of
// schema, and returns a Log for it. The file is not created until the first
// Append.
func Open(path string, schema Schema) (*Log, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	if header != "" && header != strings.TrimSuffix(schema.Header(), "\n") {
		return nil, fmt.Errorf("%w: %s starts with %q, want %q",
			ErrSchemaMismatch, path, header, strings.TrimSuffix(schema.Header(), "\n"))
	}

	return &Log{path: path, schema: schema}, nil
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Schema returns the schema records must follow.
func (l *Log) Schema() Schema { return l.schema }

// Append writes rec as one line with a single write call. A new or empty
// file gets the header in the same write. If a previous writer died
// mid-line, the unterminated fragment is cut off first; it was never a
// complete record.
func (l *Log) Append(rec Record) error {
	if err := rec.check(l.schema); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log: %w", err)
	}
	size, err := completeSize(f, info.Size())
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("read log tail: %w", err)
	}
	if size < info.Size() {
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return fmt.Errorf("drop torn record: %w", err)
		}
	}

	var b strings.Builder
	if size == 0 {
		b.WriteString(l.schema.Header())
	}
	b.WriteString(rec.Line())

	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync log: %w", err)
	}
	return f.Close()
}

// completeSize returns the length of the prefix of f that ends with its last
// newline, or 0 when f holds no newline at all.
func completeSize(f *os.File, size int64) (int64, error) {
	buf := make([]byte, 4096)
	for end := size; end > 0; {
		start := end - int64(len(buf))
		if start < 0 {
			start = 0
		}
		chunk := buf[:end-start]
		if _, err := f.ReadAt(chunk, start); err != nil {
			return 0, err
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			return start + int64(i) + 1, nil
		}
		end = start
	}
	return 0, nil
}

// readHeader returns the first line of path without its line ending, or ""
// when the file does not exist or is empty.
func readHeader(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read log header: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
