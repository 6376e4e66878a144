package config

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	if opCfg.MaxOutputTokens == nil {
		opCfg.MaxOutputTokens = &c.AI.MaxOutputTokens
	}
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetAnalyzeConfig returns the oracle configuration for fit analysis with fallback to global config
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	config := c.AI.Analyze
	c.applyOperationDefaults(&config)

	sys, user := &config.CustomPrompts.SystemPrompts, &config.CustomPrompts.UserPrompts
	global := c.AI.CustomPrompts
	if sys.AnalyzeFit == "" {
		sys.AnalyzeFit = global.SystemPrompts.AnalyzeFit
	}
	if user.AnalyzeFit == "" {
		user.AnalyzeFit = global.UserPrompts.AnalyzeFit
	}
	config.Loaded = c.Loaded.Analyze
	return config
}

// GetExtractConfig returns the oracle configuration for profile extraction with fallback to global config
func (c *Config) GetExtractConfig() OperationAIConfig {
	config := c.AI.Extract
	c.applyOperationDefaults(&config)

	sys, user := &config.CustomPrompts.SystemPrompts, &config.CustomPrompts.UserPrompts
	global := c.AI.CustomPrompts
	if sys.ExtractProfile == "" {
		sys.ExtractProfile = global.SystemPrompts.ExtractProfile
	}
	if user.ExtractProfile == "" {
		user.ExtractProfile = global.UserPrompts.ExtractProfile
	}
	config.Loaded = c.Loaded.Extract
	return config
}
