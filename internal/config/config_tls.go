package config

import (
	"crypto/tls"
	"fmt"
)

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS

	switch t.Mode {
	case "disabled":
		return nil
	case "server":
		if t.CertFile == "" || t.KeyFile == "" {
			return fmt.Errorf("TLS certFile and keyFile are required for server mode")
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", t.Mode)
	}

	if _, err := parseTLSVersion(t.MinVersion); err != nil {
		return err
	}
	return nil
}

// TLSMinVersion returns the configured minimum TLS version as a crypto/tls constant
func (t TLSConfig) TLSMinVersion() uint16 {
	v, err := parseTLSVersion(t.MinVersion)
	if err != nil {
		return tls.VersionTLS12
	}
	return v
}

func parseTLSVersion(s string) (uint16, error) {
	switch s {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", s)
	}
}
