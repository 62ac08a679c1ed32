package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level":       "log_level",
	"address":         "server.address",
	"monitor":         "monitor.enabled",
	"interval":        "monitor.interval",
	"path":            "monitor.path",
	"locale":          "monitor.locale",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.path",
	"storage-dsn":     "storage.dsn",
	"telemetry":       "telemetry.enabled",
	"telemetry-db":    "telemetry.db_path",
	"webhook":         "alerts.webhook",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)

	fs.String("config", "", "Path to the configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("address", DefaultAddress, "HTTP listen address")
	fs.Bool("monitor", true, "Run the periodic monitoring cycle")
	fs.Duration("interval", defaultMonitor().Interval, "Interval between monitoring cycles")
	fs.String("path", defaultMonitor().Path, "Page path whose baseline is compared against")
	fs.String("locale", defaultMonitor().Locale, "Locale segment of the compared baseline")
	fs.String("storage-backend", "", "Blob store backend (memory, sqlite, postgres)")
	fs.String("storage-path", "", "SQLite blob store path")
	fs.String("storage-dsn", "", "PostgreSQL connection string")
	fs.Bool("telemetry", false, "Record every snapshot to the telemetry database")
	fs.String("telemetry-db", "", "Telemetry database path")
	fs.String("webhook", "", "Webhook URL alerts are posted to")

	return fs
}

// bindFlags binds each flag to its key. Unset flags do not override the
// file or environment.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
