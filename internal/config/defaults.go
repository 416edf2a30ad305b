package config

// NewDefaultConfig creates a configuration with default values.
// The defaults describe the local Cortex dev instance, so a run with no
// config file captures the documentation images as-is.
func NewDefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			BaseURL:     "http://localhost:5173",
			TopicID:     "1420fda9-dad4-4ea2-876e-9e04891ef3ca",
			CSILinkText: "CSI Backtesting",
			SearchQuery: "decision architecture",
		},
		Auth: AuthConfig{
			Email:    "admin@cortex.local",
			Password: "admin123",
		},
		Browser: BrowserConfig{
			Headless:       true,
			Width:          1440,
			Height:         900,
			Scale:          2,
			ElementTimeout: "30s",
		},
		Timing: TimingConfig{
			NetworkIdleQuiet:     "500ms",
			NetworkIdleTimeout:   "30s",
			LoginRedirectTimeout: "10s",
		},
		Output: OutputConfig{
			Dir: "docs/images",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/cortex-screenshots.log",
			MaxSizeMB:  1,
			MaxBackups: 3,
		},
	}
}
