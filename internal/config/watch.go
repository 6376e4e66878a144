package config

import (
	"cvanalyzer/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config file whenever it changes and passes the decoded,
// validated result to onChange. It reports false when no config file was
// loaded and there is nothing to watch. Prompt files are not reloaded.
func (c *Config) Watch(logger *errors.Logger, onChange func(*Config)) bool {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return false
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", "file", e.Name, "op", e.Op.String())

		next, err := decode(c.v)
		if err != nil {
			logger.LogError(err, "Ignoring config change: decode failed")
			return
		}
		next.Loaded = c.Loaded
		if err := next.Validate(); err != nil {
			logger.LogError(err, "Ignoring config change: invalid configuration")
			return
		}
		onChange(next)
	})
	c.v.WatchConfig()

	logger.Info("Watching config file", "file", c.v.ConfigFileUsed())
	return true
}
