package analysis

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/a3drift/internal/calog"
	"github.com/fyrsmithlabs/a3drift/internal/dataset"
	"github.com/fyrsmithlabs/a3drift/internal/logging"
	"github.com/fyrsmithlabs/a3drift/internal/parser"
	"github.com/fyrsmithlabs/a3drift/internal/report"
)

const e2eLog = `TIME,TEMP,CAL_72
01/03/2024-12:00:00,23.0,100
01/03/2024-13:00:00,23.0,101
01/03/2024-14:00:00,23.0,102
01/03/2024-15:00:00,23.0,103
01/03/2024-16:00:00,23.0,104
`

// recorder is a report.Renderer that keeps what it was asked to draw.
type recorder struct {
	mu     sync.Mutex
	charts []report.Chart
	paths  []string
	err    error
}

func (r *recorder) Render(chart report.Chart, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.charts = append(r.charts, chart)
	r.paths = append(r.paths, path)
	return nil
}

func (r *recorder) last() (report.Chart, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.charts) == 0 {
		return report.Chart{}, 0
	}
	return r.charts[len(r.charts)-1], len(r.charts)
}

func writeLog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_EndToEnd(t *testing.T) {
	path := writeLog(t, "sn18_e2e.csv", e2eLog)
	var out bytes.Buffer
	rec := &recorder{}

	res, err := Run(context.Background(), Options{
		Path:       path,
		Constant:   "CAL_72",
		AutoTempco: true,
		Output:     "out.png",
		Out:        &out,
	}, rec)
	require.NoError(t, err)

	assert.Equal(t, -0.5, res.Tempco)
	require.Len(t, res.PPM, 5)
	for i := 1; i < len(res.PPM); i++ {
		assert.InDelta(t, 1e6/100.5, res.PPM[i]-res.PPM[i-1], 1e-6)
	}
	assert.InDeltaSlice(t, res.PPM, res.Corrected, 1e-9)

	chart, n := rec.last()
	require.Equal(t, 1, n)
	assert.Equal(t, "out.png", rec.paths[0])
	assert.Equal(t, "sn18 e2e", chart.Title)
	assert.Equal(t, -0.5, chart.Tempco)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "no summary requested")
	assert.Equal(t, parser.Delimited.String(), lines[0])
	assert.Equal(t, path, lines[1])
}

func TestRun_ManualTempcoAndSummary(t *testing.T) {
	path := writeLog(t, "sn18.csv", e2eLog)
	var out bytes.Buffer

	res, err := Run(context.Background(), Options{
		Path:     path,
		Constant: "CAL_72",
		Tempco:   0.1,
		Output:   "out.png",
		Summary:  true,
		Out:      &out,
	}, &recorder{})
	require.NoError(t, err)

	assert.Equal(t, 0.1, res.Tempco)
	assert.Contains(t, out.String(), "ppm/day")
	assert.Contains(t, out.String(), "0.1 ppm/K")
}

func TestRun_SegmentedLog(t *testing.T) {
	content := "01/03/2024-12:00:00;TEMP?=23.0|CAL? 72 = 100\n" +
		"01/03/2024-13:00:00;TEMP?=23.5|CAL? 72 = 100.0001\n" +
		"01/03/2024-14:00:00;TEMP?=23.2|CAL? 72 = 100.0003\n"
	path := writeLog(t, "legacy_capture.txt", content)
	var out bytes.Buffer

	res, err := Run(context.Background(), Options{Path: path, Constant: "CAL_72", Output: "x.png", Out: &out}, &recorder{})
	require.NoError(t, err)
	assert.Len(t, res.Times, 3)
	assert.True(t, strings.HasPrefix(out.String(), parser.Segmented.String()+"\n"))
}

func TestRun_RendersPNG(t *testing.T) {
	path := writeLog(t, "sn18.csv", e2eLog)
	output := filepath.Join(t.TempDir(), "sn18_plot.png")

	_, err := Run(context.Background(), Options{
		Path:     path,
		Constant: "CAL_72",
		Output:   output,
		Out:      &bytes.Buffer{},
	}, report.PNG{Width: report.DefaultPNG.Width / 2, Height: report.DefaultPNG.Height / 2, DPI: 72})
	require.NoError(t, err)

	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Run(context.Background(), Options{Path: filepath.Join(t.TempDir(), "x.csv"), Constant: "CAL_72"}, &recorder{})
		assert.Error(t, err)
	})

	t.Run("ragged segmented log", func(t *testing.T) {
		path := writeLog(t, "bad.txt", "t0;TEMP?=23|CAL? 72=1\nt1;TEMP?=23\n")
		_, err := Run(context.Background(), Options{Path: path, Constant: "CAL_72", Out: &bytes.Buffer{}}, &recorder{})
		assert.True(t, errors.Is(err, dataset.ErrValidation))
	})

	t.Run("unknown constant", func(t *testing.T) {
		path := writeLog(t, "sn18.csv", e2eLog)
		_, err := Run(context.Background(), Options{Path: path, Constant: "CAL_1_1", Out: &bytes.Buffer{}}, &recorder{})
		assert.True(t, errors.Is(err, dataset.ErrValidation))
	})

	t.Run("render failure", func(t *testing.T) {
		path := writeLog(t, "sn18.csv", e2eLog)
		_, err := Run(context.Background(), Options{Path: path, Constant: "CAL_72", Out: &bytes.Buffer{}}, &recorder{err: errors.New("disk full")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, Options{}, &recorder{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRun_LogWithTornRecordStaysUsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acal.csv")
	schema := calog.Schema{{Label: "TEMP", Query: "TEMP?"}, {Label: "CAL_72", Query: "CAL? 72"}}
	l, err := calog.Open(path, schema)
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(calog.Record{Time: base, Values: []string{"23.0", "1.0"}}))
	require.NoError(t, l.Append(calog.Record{Time: base.Add(time.Hour), Values: []string{"23.1", "1.000001"}}))

	// A writer killed mid-record.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("01/01/2024-02:00:00,23.0,1.0")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, l.Append(calog.Record{Time: base.Add(3 * time.Hour), Values: []string{"23.2", "1.000002"}}))

	res, err := Run(context.Background(), Options{Path: path, Constant: "CAL_72", Out: &bytes.Buffer{}}, &recorder{})
	require.NoError(t, err)
	assert.Len(t, res.Times, 3)
}

// syncBuffer is a bytes.Buffer safe for the watch goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_ReRunsOnAppend(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := writeLog(t, "sn18.csv", e2eLog)
	rec := &recorder{}
	out := &syncBuffer{}
	tl := logging.NewTestLogger()
	opts := Options{Path: path, Constant: "CAL_72", AutoTempco: true, Output: "out.png", Out: out, Logger: tl.Logger}

	_, err := Run(context.Background(), opts, rec)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, opts, rec) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching for changes")
	}, 2*time.Second, 10*time.Millisecond)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("01/03/2024-17:00:00,23.0,105\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Eventually(t, func() bool {
		chart, _ := rec.last()
		return len(chart.Times) == 6
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "Detected change in file: "+path)

	cancel()
	require.NoError(t, <-done)
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "analysis re-run failed")
}
