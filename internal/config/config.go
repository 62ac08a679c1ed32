// Package config loads vitalsctl settings from a TOML file, the
// environment and command line flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/vitalsctl/internal/alert"
	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/storage"
	"codeberg.org/mutker/vitalsctl/internal/telemetry"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

const (
	DefaultLogLevel  = "info"
	DefaultEnvPrefix = "VITALSCTL"
	DefaultAddress   = ":8080"

	configName = "vitalsctl"
	configType = "toml"
)

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	Server     ServerConfig     `mapstructure:"server"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Regression RegressionConfig `mapstructure:"regression"`
	Build      BuildConfig      `mapstructure:"build"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Path     string        `mapstructure:"path"`
	Locale   string        `mapstructure:"locale"`
}

type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	Path            string `mapstructure:"path"`
	DSN             string `mapstructure:"dsn"`
	MaxValueBytes   int    `mapstructure:"max_value_bytes"`
	BackupOnMigrate bool   `mapstructure:"backup_on_migrate"`
}

type TelemetryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DBPath       string        `mapstructure:"db_path"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type ThresholdConfig struct {
	Warning  float64 `mapstructure:"warning"`
	Critical float64 `mapstructure:"critical"`
}

type AlertsConfig struct {
	Enabled        bool                       `mapstructure:"enabled"`
	Console        bool                       `mapstructure:"console"`
	Storage        bool                       `mapstructure:"storage"`
	Webhook        string                     `mapstructure:"webhook"`
	WebhookTimeout time.Duration              `mapstructure:"webhook_timeout"`
	Thresholds     map[string]ThresholdConfig `mapstructure:"thresholds"`
}

type RegressionConfig struct {
	MinPercent      float64                    `mapstructure:"min_percent"`
	PercentWarning  float64                    `mapstructure:"percent_warning"`
	PercentCritical float64                    `mapstructure:"percent_critical"`
	Absolute        map[string]ThresholdConfig `mapstructure:"absolute"`
}

type BuildConfig struct {
	Version string `mapstructure:"version"`
	Commit  string `mapstructure:"commit"`
	Branch  string `mapstructure:"branch"`
}

// Load reads configuration from defaults, the config file, the environment
// and flags.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, fs, o); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readConfigFile resolves the file from WithConfigFile, the <PREFIX>_CONFIG
// variable, --config, or the search path. Only a missing file on the search
// path is tolerated.
func readConfigFile(v *viper.Viper, fs *pflag.FlagSet, o *options) error {
	path := o.configPath
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}
	if path == "" {
		path, _ = fs.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath("/etc/vitalsctl")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/vitalsctl")
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	logger.Debug().Str("path", v.ConfigFileUsed()).Msg("Config file loaded")
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetDefault("server.address", DefaultAddress)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	mon := defaultMonitor()
	v.SetDefault("monitor.enabled", mon.Enabled)
	v.SetDefault("monitor.interval", mon.Interval)
	v.SetDefault("monitor.path", mon.Path)
	v.SetDefault("monitor.locale", mon.Locale)

	st := storage.DefaultConfig()
	v.SetDefault("storage.backend", st.Backend)
	v.SetDefault("storage.path", st.Path)
	v.SetDefault("storage.dsn", st.DSN)
	v.SetDefault("storage.max_value_bytes", st.MaxValueBytes)
	v.SetDefault("storage.backup_on_migrate", st.BackupOnMigrate)

	tel := telemetry.DefaultConfig()
	v.SetDefault("telemetry.enabled", tel.Enabled)
	v.SetDefault("telemetry.db_path", tel.DBPath)
	v.SetDefault("telemetry.batch_size", tel.BatchSize)
	v.SetDefault("telemetry.batch_timeout", tel.BatchTimeout)

	al := alert.DefaultConfig()
	v.SetDefault("alerts.enabled", al.Enabled)
	v.SetDefault("alerts.console", al.Channels.Console)
	v.SetDefault("alerts.storage", al.Channels.Storage)
	v.SetDefault("alerts.webhook", al.Channels.Webhook)
	v.SetDefault("alerts.webhook_timeout", al.WebhookTimeout)
	for m, t := range al.Thresholds {
		v.SetDefault("alerts.thresholds."+m.String()+".warning", t.Warning)
		v.SetDefault("alerts.thresholds."+m.String()+".critical", t.Critical)
	}

	rg := regression.DefaultThresholds()
	v.SetDefault("regression.min_percent", rg.MinPercent)
	v.SetDefault("regression.percent_warning", rg.PercentWarning)
	v.SetDefault("regression.percent_critical", rg.PercentCritical)
	for m, b := range rg.Absolute {
		v.SetDefault("regression.absolute."+m.String()+".warning", b.Warning)
		v.SetDefault("regression.absolute."+m.String()+".critical", b.Critical)
	}

	v.SetDefault("build.version", "dev")
	v.SetDefault("build.commit", "")
	v.SetDefault("build.branch", "")
}

// Validate checks every section, returning the first problem found.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return errFactory.WithData(errors.ErrInvalidLogLevel, struct {
			Level string
		}{
			Level: c.LogLevel,
		})
	}

	if c.Server.Address == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "server address is required")
	}

	if c.Monitor.Enabled {
		if err := c.MonitorConfig().Validate(); err != nil {
			return err
		}
	}

	if err := c.StorageConfig().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := c.TelemetryConfig().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	alertCfg, err := c.AlertConfig()
	if err != nil {
		return err
	}
	if err := alertCfg.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	th, err := c.RegressionThresholds()
	if err != nil {
		return err
	}
	if err := th.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}

func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:         c.Storage.Backend,
		Path:            c.Storage.Path,
		DSN:             c.Storage.DSN,
		MaxValueBytes:   c.Storage.MaxValueBytes,
		BackupOnMigrate: c.Storage.BackupOnMigrate,
	}
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:      c.Telemetry.Enabled,
		DBPath:       c.Telemetry.DBPath,
		BatchSize:    c.Telemetry.BatchSize,
		BatchTimeout: c.Telemetry.BatchTimeout,
	}
}

// AlertConfig converts the alerts section; unknown metric names are an error.
func (c *Config) AlertConfig() (alert.Config, error) {
	out := alert.Config{
		Enabled:    c.Alerts.Enabled,
		Thresholds: make(map[vitals.Metric]alert.Threshold, len(c.Alerts.Thresholds)),
		Channels: alert.Channels{
			Console: c.Alerts.Console,
			Storage: c.Alerts.Storage,
			Webhook: c.Alerts.Webhook,
		},
		WebhookTimeout: c.Alerts.WebhookTimeout,
	}
	for name, t := range c.Alerts.Thresholds {
		m, err := parseMetric("alerts.thresholds", name)
		if err != nil {
			return alert.Config{}, err
		}
		out.Thresholds[m] = alert.Threshold{Warning: t.Warning, Critical: t.Critical}
	}
	return out, nil
}

func (c *Config) RegressionThresholds() (regression.Thresholds, error) {
	out := regression.Thresholds{
		MinPercent:      c.Regression.MinPercent,
		PercentWarning:  c.Regression.PercentWarning,
		PercentCritical: c.Regression.PercentCritical,
		Absolute:        make(map[vitals.Metric]regression.Bounds, len(c.Regression.Absolute)),
	}
	for name, b := range c.Regression.Absolute {
		m, err := parseMetric("regression.absolute", name)
		if err != nil {
			return regression.Thresholds{}, err
		}
		out.Absolute[m] = regression.Bounds{Warning: b.Warning, Critical: b.Critical}
	}
	return out, nil
}

func parseMetric(section, name string) (vitals.Metric, error) {
	m, ok := vitals.ParseMetric(name)
	if !ok {
		return vitals.MetricUnknown, errors.New().WithData(errors.ErrInvalidConfig, struct {
			Section string
			Metric  string
		}{
			Section: section,
			Metric:  name,
		})
	}
	return m, nil
}
