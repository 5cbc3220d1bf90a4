// Package monitor runs a telemetry ingestion session: it owns the transport
// for the session's lifetime, feeds samples to the estimator and publishes
// the resulting reports.
package monitor

import (
	"context"
	"io"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/estimator"
	"codeberg.org/mutker/turbinemon/internal/logger"
	"codeberg.org/mutker/turbinemon/internal/metrics"
	"codeberg.org/mutker/turbinemon/internal/telemetry"
)

type Config struct {
	Source       string
	BaudRate     int // serial devices only
	SettleDelay  time.Duration
	StallTimeout time.Duration // 0 disables stall detection
	Reader       telemetry.Config
}

func DefaultConfig() Config {
	return Config{
		BaudRate: telemetry.DefaultBaudRate,
		Reader:   telemetry.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.StallTimeout < 0 || c.SettleDelay < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			StallTimeout time.Duration
			SettleDelay  time.Duration
		}{
			StallTimeout: c.StallTimeout,
			SettleDelay:  c.SettleDelay,
		})
	}
	if c.BaudRate <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "baud rate must be positive")
	}
	return c.Reader.Validate()
}

// OpenFunc acquires the telemetry transport for one session.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

type Option func(*Monitor)

// WithOpener replaces the transport opener derived from Config.Source.
func WithOpener(open OpenFunc) Option {
	return func(m *Monitor) { m.open = open }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

type Monitor struct {
	cfg       Config
	open      OpenFunc
	est       *estimator.Estimator
	collector metrics.Collector
	status    *Status
	log       logger.Logger
	now       func() time.Time

	effHistory    history
	effRefHistory history
}

func New(cfg Config, est *estimator.Estimator, collector metrics.Collector, log logger.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:       cfg,
		est:       est,
		collector: collector,
		status:    NewStatus(),
		log:       log,
		now:       time.Now,
	}
	m.open = func(ctx context.Context) (io.ReadCloser, error) {
		return telemetry.Open(ctx, cfg.Source, cfg.BaudRate, cfg.SettleDelay)
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Status exposes the live session status.
func (m *Monitor) Status() *Status {
	return m.status
}

// Run ingests telemetry until ctx is cancelled, the transport ends, or the
// transport fails. Malformed lines and unresolvable states are absorbed per
// sample; only transport failures are returned. The transport is closed on
// every exit path.
func (m *Monitor) Run(ctx context.Context) error {
	errFactory := errors.New()

	rc, err := m.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			m.log.Debug().Err(err).Msg("Failed to close telemetry transport")
		}
	}()

	reader := telemetry.NewReader(rc, m.cfg.Reader)
	defer reader.Close()

	m.status.setConnected(true)
	defer m.status.setConnected(false)

	m.log.Info().Str("source", m.cfg.Source).Msg("Telemetry session started")

	lastActivity := m.now()
	for {
		frame, err := reader.Poll(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			m.log.Info().Msg("Telemetry session stopped")
			return nil
		case telemetry.IsEndOfStream(err):
			m.log.Info().Msg("Telemetry stream ended")
			return nil
		case telemetry.IsParseError(err):
			lastActivity = m.now()
			m.status.recordParseError(err)
			m.log.Warn().Err(err).Str("line", frame.Line).Msg("Skipping malformed telemetry line")
			continue
		default:
			return err
		}

		switch frame.Kind {
		case telemetry.FrameIdle:
			if m.cfg.StallTimeout > 0 && m.now().Sub(lastActivity) >= m.cfg.StallTimeout {
				return errFactory.Wrap(ErrStalled,
					errFactory.WithData(telemetry.ErrTransport, m.cfg.StallTimeout))
			}
		case telemetry.FrameNoise:
			lastActivity = m.now()
			m.status.recordNoise()
			m.log.Debug().Str("line", frame.Line).Msg("Non-numeric data received")
		case telemetry.FrameSample:
			lastActivity = m.now()
			m.process(ctx, frame.Sample)
		}
	}
}

func (m *Monitor) process(ctx context.Context, sample telemetry.Sample) {
	report, err := m.est.OnSample(sample)
	if err != nil {
		m.status.recordPropertyError(err)
		m.log.Warn().
			Err(err).
			Float64("p1", sample.P1).
			Float64("p2", sample.P2).
			Float64("t1", sample.T1).
			Float64("t2", sample.T2).
			Msg("Skipping sample: property evaluation failed")
		return
	}

	snapshot := m.snapshot(sample, report)
	m.status.recordReport(snapshot, m.est.State())

	if err := m.collector.Record(ctx, &snapshot); err != nil {
		m.log.Warn().Err(err).Msg("Failed to record metrics")
	}

	m.logReport(sample, report, snapshot)
}

func (m *Monitor) snapshot(sample telemetry.Sample, report estimator.Report) metrics.Snapshot {
	return metrics.Snapshot{
		Timestamp: m.now().UTC(),
		Sample: metrics.SampleMetrics{
			P1: sample.P1,
			P2: sample.P2,
			T1: sample.T1,
			T2: sample.T2,
		},
		Enthalpy: metrics.EnthalpyMetrics{
			H1:  report.Actual.H1,
			H2s: report.Actual.H2s,
			H2:  report.Actual.H2,
		},
		Efficiency: metrics.EfficiencyMetrics{
			Current:          report.Eff,
			Reference:        report.EffRef,
			Average:          m.effHistory.add(report.Eff),
			AverageReference: m.effRefHistory.add(report.EffRef),
		},
		Energy: metrics.EnergyMetrics{
			Actual:    report.UnitEnergy,
			Reference: report.UnitEnergyRef,
		},
		Reference: metrics.ReferenceMetrics{
			T1: report.State.T1,
			P1: report.State.P1,
			T2: report.State.T2,
			P2: report.State.P2,
		},
		Seeded: report.Seeded,
	}
}

func (m *Monitor) logReport(sample telemetry.Sample, report estimator.Report, snapshot metrics.Snapshot) {
	if report.Seeded {
		m.log.Info().
			Float64("t1", sample.T1).
			Float64("p1", sample.P1).
			Float64("t2", sample.T2).
			Float64("p2", sample.P2).
			Float64("efficiency", report.Eff).
			Msg("Reference state calibrated")
	}

	m.log.Debug().
		Float64("h1", report.Actual.H1).
		Float64("h2s", report.Actual.H2s).
		Float64("h2", report.Actual.H2).
		Float64("h1_ref", report.Reference.H1).
		Float64("h2s_ref", report.Reference.H2s).
		Float64("h2_ref", report.Reference.H2).
		Float64("ref_t1", report.State.T1).
		Float64("ref_p1", report.State.P1).
		Float64("ref_p2", report.State.P2).
		Msg("")

	m.log.Info().
		Float64("efficiency", report.Eff).
		Float64("avg_efficiency", snapshot.Efficiency.Average).
		Float64("unit_energy", report.UnitEnergy).
		Float64("efficiency_ref", report.EffRef).
		Float64("unit_energy_ref", report.UnitEnergyRef).
		Msg("")
}
