package monitor_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/estimator"
	"codeberg.org/mutker/turbinemon/internal/logger"
	"codeberg.org/mutker/turbinemon/internal/metrics"
	"codeberg.org/mutker/turbinemon/internal/monitor"
	"codeberg.org/mutker/turbinemon/internal/telemetry"
	"codeberg.org/mutker/turbinemon/internal/thermo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearOracle rejects temperatures above 1000 K so tests can inject
// property failures through the wire.
type linearOracle struct{}

func (linearOracle) Evaluate(q thermo.Query) (thermo.Result, error) {
	if q.Kind == thermo.PressureQuality {
		return thermo.Result{Enthalpy: 600e3}, nil
	}
	if q.Temperature > 1000 {
		return thermo.Result{}, errors.New().WithData(thermo.ErrOutOfRange, q)
	}
	return thermo.Result{Enthalpy: 1000 * q.Temperature}, nil
}

type recordingCollector struct {
	mu        sync.Mutex
	snapshots []metrics.Snapshot
}

func (c *recordingCollector) Record(_ context.Context, s *metrics.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, *s)
	return nil
}

func (c *recordingCollector) Recent(_ context.Context, _ int) ([]metrics.Snapshot, error) {
	return nil, nil
}

func (*recordingCollector) Enabled() bool { return true }
func (*recordingCollector) Close() error  { return nil }

type trackedCloser struct {
	io.Reader
	mu      sync.Mutex
	closed  bool
	onClose func()
}

func (t *trackedCloser) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed && t.onClose != nil {
		t.onClose()
	}
	t.closed = true
	return nil
}

func (t *trackedCloser) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func testConfig() monitor.Config {
	cfg := monitor.DefaultConfig()
	cfg.Source = "test"
	cfg.Reader.PollTimeout = 20 * time.Millisecond
	return cfg
}

func newMonitor(t *testing.T, cfg monitor.Config, src *trackedCloser, collector metrics.Collector) *monitor.Monitor {
	t.Helper()
	est, err := estimator.New(linearOracle{}, estimator.DefaultConfig())
	require.NoError(t, err)

	return monitor.New(cfg, est, collector, logger.Default(),
		monitor.WithOpener(func(context.Context) (io.ReadCloser, error) {
			return src, nil
		}))
}

func TestRunProcessesStream(t *testing.T) {
	input := strings.Join([]string{
		"Sensor warmup...",
		"50000,1000,450,320",
		"garbage,1,2",
		"50000,1000,2000,320",
		"50000,1000,460,330",
		"",
	}, "\n")
	src := &trackedCloser{Reader: strings.NewReader(input)}
	collector := &recordingCollector{}
	m := newMonitor(t, testConfig(), src, collector)

	err := m.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, src.isClosed())

	status := m.Status().Snapshot()
	assert.Equal(t, uint64(2), status.Counters.Samples)
	assert.Equal(t, uint64(1), status.Counters.Noise)
	assert.Equal(t, uint64(1), status.Counters.ParseErrors)
	assert.Equal(t, uint64(1), status.Counters.PropertyErrors)
	assert.Equal(t, estimator.Tracking.String(), status.State)
	assert.False(t, status.Connected)
	require.NotNil(t, status.LastReport)
	assert.Equal(t, 460.0, status.LastReport.Sample.T1)

	require.Len(t, collector.snapshots, 2)
	assert.True(t, collector.snapshots[0].Seeded)
	assert.False(t, collector.snapshots[1].Seeded)

	first, second := collector.snapshots[0], collector.snapshots[1]
	assert.InDelta(t, first.Efficiency.Current, first.Efficiency.Average, 1e-12)
	assert.InDelta(t, (first.Efficiency.Current+second.Efficiency.Current)/2, second.Efficiency.Average, 1e-12)
}

func TestRunStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := &trackedCloser{Reader: pr, onClose: func() { pr.Close() }}
	m := newMonitor(t, testConfig(), src, &recordingCollector{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	_, err := pw.Write([]byte("50000,1000,450,320\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return m.Status().Snapshot().Counters.Samples == 1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, m.Status().Snapshot().Connected)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, src.isClosed())
}

func TestRunReportsStall(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := &trackedCloser{Reader: pr, onClose: func() { pr.Close() }}

	cfg := testConfig()
	cfg.StallTimeout = 60 * time.Millisecond
	m := newMonitor(t, cfg, src, &recordingCollector{})

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitor.ErrStalled))
	assert.True(t, telemetry.IsTransportError(err))
	assert.True(t, src.isClosed())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestRunReturnsTransportError(t *testing.T) {
	src := &trackedCloser{Reader: failingReader{}}
	m := newMonitor(t, testConfig(), src, &recordingCollector{})

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, telemetry.IsTransportError(err))
	assert.True(t, src.isClosed())
}

func TestRunOpenFailure(t *testing.T) {
	est, err := estimator.New(linearOracle{}, estimator.DefaultConfig())
	require.NoError(t, err)

	openErr := errors.New().New(telemetry.ErrOpen)
	m := monitor.New(testConfig(), est, &recordingCollector{}, logger.Default(),
		monitor.WithOpener(func(context.Context) (io.ReadCloser, error) {
			return nil, openErr
		}))

	err = m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrOpen))
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.StallTimeout = -time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitor.ErrInvalidConfig))

	cfg = testConfig()
	cfg.BaudRate = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitor.ErrInvalidConfig))
}
