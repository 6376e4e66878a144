package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health         - Health check")
	fmt.Println("  GET  /stats          - Server statistics")
	fmt.Println("  GET  /models         - Oracle models (requires API key)")
	fmt.Println("  POST /analyze        - Score a CV against a job description (requires API key)")
	fmt.Println("  POST /analyze/batch  - Score several CVs (requires API key)")
	fmt.Println("  POST /extract        - Extract candidate profile (requires API key)")
	fmt.Println("  POST /bullets        - Render experience bullets (requires API key)")
}

func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' or 'Authorization: Bearer <your-key>' in requests")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB), per file %.1f MB\n",
			s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024), float64(s.AppConfig.App.MaxFileSizeBytes())/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

func (s *Server) displayRateLimitInfo() {
	settings, _ := s.rateLimiting()
	if settings.Enabled {
		fmt.Printf("Rate limiting: ENABLED (1 request per %s, burst: %d)\n",
			settings.MinInterval, settings.BurstCapacity)
		if settings.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if settings.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
