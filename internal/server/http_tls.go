package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		fmt.Printf("Starting server on http://%s\n", httpServer.Addr)
		fmt.Println("TLS mode: Disabled (HTTP only)")
		return nil
	case "server":
		fmt.Printf("Starting server with HTTPS on https://%s\n", httpServer.Addr)
		tlsConfig, err := s.buildTLSConfig()
		if err != nil {
			return fmt.Errorf("failed to set up TLS: %w", err)
		}
		httpServer.TLSConfig = tlsConfig
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", s.TLSConfig.Mode)
	}
}

// buildTLSConfig loads the key pair and starts following rotations of it
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	if s.TLSConfig.CertFile == "" || s.TLSConfig.KeyFile == "" {
		return nil, fmt.Errorf("TLS certFile and keyFile are required for server mode")
	}

	certs, err := newCertReloader(s.TLSConfig.CertFile, s.TLSConfig.KeyFile, s.Logger)
	if err != nil {
		return nil, err
	}
	if err := certs.Watch(); err != nil {
		// Keeps serving the pair loaded at startup.
		s.Logger.Warn("Certificate auto-reload disabled", "error", err.Error())
	}
	s.certs = certs

	return &tls.Config{
		MinVersion:     s.TLSConfig.TLSMinVersion(),
		GetCertificate: certs.GetCertificate,
	}, nil
}
