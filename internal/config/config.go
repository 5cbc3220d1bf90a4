package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/estimator"
	"codeberg.org/mutker/turbinemon/internal/logger"
	"codeberg.org/mutker/turbinemon/internal/metrics"
	"codeberg.org/mutker/turbinemon/internal/monitor"
	"codeberg.org/mutker/turbinemon/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "TURBINEMON"
	DefaultConfigPath = "/etc/turbinemon.toml"
	DefaultDotEnvPath = ".env"
	DefaultLogLevel   = "info"
	DefaultSource     = "/dev/ttyACM0"
)

type Config struct {
	Source       string
	BaudRate     int
	PollTimeout  time.Duration
	StallTimeout time.Duration
	SettleDelay  time.Duration

	TargetEfficiency float64
	CorrectionGain   float64

	LogLevel string

	Metrics             bool
	MetricsDriver       string
	MetricsDB           string
	MetricsDSN          string
	MetricsBatchSize    int
	MetricsBatchTimeout int

	Listen string

	// ConfigFile is the file that was read, empty if none.
	ConfigFile string
}

func setDefaults(v *viper.Viper) {
	est := estimator.DefaultConfig()
	mc := metrics.DefaultConfig()

	v.SetDefault("source", DefaultSource)
	v.SetDefault("baud_rate", telemetry.DefaultBaudRate)
	v.SetDefault("poll_timeout", telemetry.DefaultConfig().PollTimeout)
	v.SetDefault("stall_timeout", time.Duration(0))
	v.SetDefault("settle_delay", time.Duration(0))
	v.SetDefault("target_efficiency", est.TargetEfficiency)
	v.SetDefault("correction_gain", est.CorrectionGain)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("metrics", mc.Enabled)
	v.SetDefault("metrics_driver", mc.Driver)
	v.SetDefault("metrics_db", mc.DBPath)
	v.SetDefault("metrics_dsn", "")
	v.SetDefault("metrics_batch_size", mc.BatchSize)
	v.SetDefault("metrics_batch_timeout", mc.BatchTimeout)
	v.SetDefault("listen", "")
}

// RegisterFlags adds the command line flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("source", "s", DefaultSource, "Telemetry source: device path, tcp://host:port, or - for stdin")
	fs.Int("baud-rate", telemetry.DefaultBaudRate, "Serial line speed for device sources")
	fs.Duration("poll-timeout", telemetry.DefaultConfig().PollTimeout, "Maximum wait for a telemetry line")
	fs.Duration("stall-timeout", 0, "Fail the session after this long without data (0 disables)")
	fs.Duration("settle-delay", 0, "Delay after opening the transport before reading")
	fs.Float64("target-efficiency", estimator.DefaultConfig().TargetEfficiency, "Efficiency the reference state drifts toward")
	fs.Float64("correction-gain", estimator.DefaultConfig().CorrectionGain, "Proportional drift gain")
	fs.StringP("log-level", "l", DefaultLogLevel, "Log level: debug, info, warning, error")
	fs.Bool("metrics", false, "Enable metrics collection")
	fs.String("metrics-driver", metrics.DriverSQLite, "Metrics backend: sqlite or postgres")
	fs.String("metrics-db", metrics.DefaultConfig().DBPath, "SQLite metrics database path")
	fs.String("metrics-dsn", "", "PostgreSQL connection string")
	fs.String("listen", "", "Status API listen address (empty disables)")
}

// Load reads configuration from defaults, the config file, the environment
// (including a dotenv file) and flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{
		envPrefix:  DefaultEnvPrefix,
		dotEnvPath: DefaultDotEnvPath,
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	if o.dotEnvPath != "" {
		if err := godotenv.Load(o.dotEnvPath); err != nil && !os.IsNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path, explicit := configPath(o)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
			path = ""
		}
	}

	if o.flags != nil {
		var bindErr error
		o.flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
		}
	}

	cfg := &Config{
		Source:              v.GetString("source"),
		BaudRate:            v.GetInt("baud_rate"),
		PollTimeout:         v.GetDuration("poll_timeout"),
		StallTimeout:        v.GetDuration("stall_timeout"),
		SettleDelay:         v.GetDuration("settle_delay"),
		TargetEfficiency:    v.GetFloat64("target_efficiency"),
		CorrectionGain:      v.GetFloat64("correction_gain"),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		Metrics:             v.GetBool("metrics"),
		MetricsDriver:       v.GetString("metrics_driver"),
		MetricsDB:           v.GetString("metrics_db"),
		MetricsDSN:          v.GetString("metrics_dsn"),
		MetricsBatchSize:    v.GetInt("metrics_batch_size"),
		MetricsBatchTimeout: v.GetInt("metrics_batch_timeout"),
		Listen:              v.GetString("listen"),
		ConfigFile:          path,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configPath picks the config file: an explicit option, then <PREFIX>_CONFIG,
// then the system default, which may be absent.
func configPath(o options) (path string, explicit bool) {
	if o.configPath != "" {
		return o.configPath, true
	}
	if p := os.Getenv(o.envPrefix + "_CONFIG"); p != "" {
		return p, true
	}
	return DefaultConfigPath, false
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Source == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "telemetry source is required")
	}
	if c.StallTimeout < 0 || c.SettleDelay < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, struct {
			StallTimeout time.Duration
			SettleDelay  time.Duration
		}{
			StallTimeout: c.StallTimeout,
			SettleDelay:  c.SettleDelay,
		})
	}
	if c.BaudRate <= 0 {
		return errFactory.WithData(errors.ErrInvalidBaudRate, c.BaudRate)
	}
	if c.PollTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PollTimeout)
	}
	if err := c.EstimatorConfig().Validate(); err != nil {
		return err
	}
	if err := c.MonitorConfig().Validate(); err != nil {
		return err
	}
	return c.MetricsConfig().Validate()
}

func (c *Config) EstimatorConfig() estimator.Config {
	return estimator.Config{
		TargetEfficiency: c.TargetEfficiency,
		CorrectionGain:   c.CorrectionGain,
	}
}

func (c *Config) MonitorConfig() monitor.Config {
	cfg := monitor.DefaultConfig()
	cfg.Source = c.Source
	cfg.BaudRate = c.BaudRate
	cfg.SettleDelay = c.SettleDelay
	cfg.StallTimeout = c.StallTimeout
	cfg.Reader.PollTimeout = c.PollTimeout
	return cfg
}

func (c *Config) MetricsConfig() metrics.Config {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = c.Metrics
	cfg.Driver = c.MetricsDriver
	cfg.DBPath = c.MetricsDB
	cfg.DSN = c.MetricsDSN
	cfg.BatchSize = c.MetricsBatchSize
	cfg.BatchTimeout = c.MetricsBatchTimeout
	return cfg
}
