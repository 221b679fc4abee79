package config

// DefaultTimeout is the request timeout in milliseconds used when neither
// the config file, the suite nor the step sets one.
const DefaultTimeout = 30000

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "dev",
		FollowRedirects:    boolPtr(true),
		MaxRedirects:       10,
		ValidateSSL:        boolPtr(true),
		Reporters:          []string{"console"},
		EnvFile:            ".env",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		c.BaseURL == "" &&
		c.Timeout == 0 &&
		c.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() &&
		c.Proxy == "" &&
		c.RateLimit == 0 &&
		len(c.Headers) == 0 &&
		len(c.Variables) == 0 &&
		len(c.Environments) == 0 &&
		c.History == "" &&
		c.MetricsFile == "" &&
		c.Pushgateway == "" &&
		!c.GetVerbose() &&
		!c.GetNoColor()
}
