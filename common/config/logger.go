package config

import (
	"os"

	"github.com/ykhdr/crack-campaign/common/logging"
)

type LogConfig struct {
	LogLevel string `kdl:"log-level"`
	// LogConsole switches to the human console format at every level.
	LogConsole bool `kdl:"log-console"`
}

func (c *LogConfig) logConfig() *LogConfig {
	return c
}

// withLogConfig is satisfied by any config embedding LogConfig.
type withLogConfig interface {
	logConfig() *LogConfig
}

func setupLogger(cfg any) {
	lc := &LogConfig{}
	if c, ok := cfg.(withLogConfig); ok {
		lc = c.logConfig()
	}
	level := logging.InfoLevel
	if lc.LogLevel != "" {
		level = logging.ParseLevel(lc.LogLevel)
	}
	logging.SetupFormat(level, os.Stdout, lc.LogConsole || level <= logging.DebugLevel)
}
