package config

import (
	"time"

	"codeberg.org/mutker/vitalsctl/internal/api"
	"codeberg.org/mutker/vitalsctl/internal/baseline"
	"codeberg.org/mutker/vitalsctl/internal/monitor"
)

func defaultMonitor() MonitorConfig {
	d := monitor.DefaultConfig()
	return MonitorConfig{
		Enabled:  true,
		Interval: d.Interval,
		Path:     d.Path,
		Locale:   d.Locale,
	}
}

func (c *Config) MonitorConfig() monitor.Config {
	return monitor.Config{
		Interval: c.Monitor.Interval,
		Path:     c.Monitor.Path,
		Locale:   c.Monitor.Locale,
	}
}

func (c *Config) ServerConfig() api.Config {
	return api.Config{
		Address:         c.Server.Address,
		AllowedOrigins:  c.Server.AllowedOrigins,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}

// BuildInfo is attached to every saved baseline; the timestamp is when the
// process started.
func (c *Config) BuildInfo(started time.Time) baseline.BuildInfo {
	return baseline.BuildInfo{
		Version:   c.Build.Version,
		Commit:    c.Build.Commit,
		Branch:    c.Build.Branch,
		Timestamp: started,
	}
}
