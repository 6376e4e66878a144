package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// applyFallbacks applies legacy environment variables and derived defaults
func (c *Config) applyFallbacks() {
	c.applyLegacyEnvFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyLegacyEnvFallbacks honours the unprefixed variables older deployments
// put in their .env files. Prefixed CVANALYZER_* values always win.
func (c *Config) applyLegacyEnvFallbacks() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if model := os.Getenv("MODEL_NAME"); model != "" && os.Getenv("CVANALYZER_AI_MODEL") == "" {
		c.AI.Model = model
	}
	if raw := os.Getenv("MAX_FILE_SIZE_MB"); raw != "" && os.Getenv("CVANALYZER_APP_MAXFILESIZEMB") == "" {
		if mb, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			c.App.MaxFileSizeMB = mb
		} else {
			log.Printf("[CONFIG] Ignoring MAX_FILE_SIZE_MB=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" && os.Getenv("CVANALYZER_SERVER_CORSALLOWORIGINS") == "" {
		c.Server.CORSAllowOrigins = splitList(raw)
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CVANALYZER_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitList(apiKeysEnv)
		}
	}
	// A single env value arrives as one comma-joined element
	if len(c.Server.CORSAllowOrigins) == 1 && strings.Contains(c.Server.CORSAllowOrigins[0], ",") {
		c.Server.CORSAllowOrigins = splitList(c.Server.CORSAllowOrigins[0])
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "" {
		c.Server.TLS.Mode = "disabled"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// splitList splits a comma-separated value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CVANALYZER_AI_APIKEY",
		"CVANALYZER_AI_PROVIDER",
		"CVANALYZER_AI_MODEL",
		"CVANALYZER_SERVER_PORT",
		"CVANALYZER_SERVER_HOST",
		"CVANALYZER_APP_LOGLEVEL",
		"CVANALYZER_VAULT_ENABLED",
		// Legacy
		"GEMINI_API_KEY",
		"MODEL_NAME",
		"MAX_FILE_SIZE_MB",
		"CORS_ALLOW_ORIGINS",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Oracle Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] Oracle Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] Oracle API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Oracle API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Max upload: %d MB, CV chars: %d, JD chars: %d",
		c.App.MaxFileSizeMB, c.App.MaxResumeChars, c.App.MaxJobChars)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
