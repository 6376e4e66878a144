package observability

import (
	"time"

	"cvanalyzer/internal/config"
)

// settings is the resolved view of config.ObservabilityConfig the manager runs on
type settings struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	Tracing         bool
	Metrics         bool
	ConsoleOutput   bool
	PrettyPrint     bool
	SampleRate      float64
	Interval        time.Duration
	OTLP            config.OTLPConfig
	Prometheus      config.PrometheusConfig
}

// resolveSettings creates observability settings from cfg. A nil cfg yields
// the defaults with console output.
func resolveSettings(cfg *config.Config, version string) settings {
	if cfg == nil {
		return settings{
			ServiceName:    "cvanalyzer",
			ServiceVersion: version,
			Enabled:        true,
			Tracing:        true,
			Metrics:        true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
			Interval:       15 * time.Second,
		}
	}

	obs := cfg.Observability

	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	serviceName := obs.ServiceName
	if serviceName == "" {
		serviceName = "cvanalyzer"
	}
	interval := obs.Metrics.CollectionInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	return settings{
		ServiceName:     serviceName,
		ServiceVersion:  serviceVersion,
		ServiceInstance: obs.ServiceInstance,
		Enabled:         obs.Enabled,
		Tracing:         obs.Tracing.Enabled,
		Metrics:         obs.Metrics.Enabled,
		ConsoleOutput:   obs.Console.Enabled,
		PrettyPrint:     obs.Console.PrettyPrint,
		SampleRate:      obs.Tracing.SampleRate,
		Interval:        interval,
		OTLP:            obs.OTLP,
		Prometheus:      obs.Prometheus,
	}
}
