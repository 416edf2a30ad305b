package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the capture run configuration.
type Config struct {
	Target  TargetConfig  `toml:"target"`
	Auth    AuthConfig    `toml:"auth"`
	Browser BrowserConfig `toml:"browser"`
	Timing  TimingConfig  `toml:"timing"`
	Output  OutputConfig  `toml:"output"`
	Logging LoggingConfig `toml:"logging"`
}

// TargetConfig identifies the Cortex instance and the data the plan visits.
type TargetConfig struct {
	BaseURL     string `toml:"base_url"`
	TopicID     string `toml:"topic_id"`
	CSILinkText string `toml:"csi_link_text"`
	SearchQuery string `toml:"search_query"`
}

// AuthConfig contains the login form credentials.
type AuthConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// BrowserConfig contains Chrome launch and viewport settings.
type BrowserConfig struct {
	Headless       bool    `toml:"headless"`
	Width          int64   `toml:"width"`
	Height         int64   `toml:"height"`
	Scale          float64 `toml:"scale"`
	ExecPath       string  `toml:"exec_path"`
	RemoteURL      string  `toml:"remote_url"` // DevTools endpoint; when set no local Chrome is launched
	ElementTimeout string  `toml:"element_timeout"`
}

// TimingConfig contains the bounded waits used between steps.
type TimingConfig struct {
	NetworkIdleQuiet     string `toml:"network_idle_quiet"`
	NetworkIdleTimeout   string `toml:"network_idle_timeout"`
	LoginRedirectTimeout string `toml:"login_redirect_timeout"`
}

// OutputConfig contains the screenshot destination.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// GetElementTimeout parses the element timeout, falling back to 30s.
func (c *BrowserConfig) GetElementTimeout() time.Duration {
	return parseDuration(c.ElementTimeout, 30*time.Second)
}

// GetNetworkIdleQuiet parses the quiet period, falling back to 500ms.
func (c *TimingConfig) GetNetworkIdleQuiet() time.Duration {
	return parseDuration(c.NetworkIdleQuiet, 500*time.Millisecond)
}

// GetNetworkIdleTimeout parses the idle wait bound, falling back to 30s.
func (c *TimingConfig) GetNetworkIdleTimeout() time.Duration {
	return parseDuration(c.NetworkIdleTimeout, 30*time.Second)
}

// GetLoginRedirectTimeout parses the post-submit wait bound, falling back to 10s.
func (c *TimingConfig) GetLoginRedirectTimeout() time.Duration {
	return parseDuration(c.LoginRedirectTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies CORTEX_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if baseURL := os.Getenv("CORTEX_BASE_URL"); baseURL != "" {
		config.Target.BaseURL = baseURL
	}
	if topicID := os.Getenv("CORTEX_TOPIC_ID"); topicID != "" {
		config.Target.TopicID = topicID
	}
	if email := os.Getenv("CORTEX_EMAIL"); email != "" {
		config.Auth.Email = email
	}
	if password := os.Getenv("CORTEX_PASSWORD"); password != "" {
		config.Auth.Password = password
	}
	if dir := os.Getenv("CORTEX_OUTPUT_DIR"); dir != "" {
		config.Output.Dir = dir
	}
	if headless := os.Getenv("CORTEX_HEADLESS"); headless != "" {
		if b, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = b
		}
	}
	if execPath := os.Getenv("CORTEX_CHROME_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}
	if remote := os.Getenv("CORTEX_CHROME_URL"); remote != "" {
		config.Browser.RemoteURL = remote
	}
	if level := os.Getenv("CORTEX_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// FlagOverrides holds command-line values that take precedence over files
// and environment. Zero values leave the config untouched.
type FlagOverrides struct {
	BaseURL  string
	Output   string
	Headless *bool
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, f FlagOverrides) {
	if f.BaseURL != "" {
		config.Target.BaseURL = f.BaseURL
	}
	if f.Output != "" {
		config.Output.Dir = f.Output
	}
	if f.Headless != nil {
		config.Browser.Headless = *f.Headless
	}
}

// Validate returns a list of problems that would make a run fail before
// the first screenshot. An empty slice means the config is usable.
func (c *Config) Validate() []string {
	var issues []string

	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		issues = append(issues, fmt.Sprintf("target.base_url must be an absolute http(s) URL, got %q", c.Target.BaseURL))
	}
	if _, err := uuid.Parse(c.Target.TopicID); err != nil {
		issues = append(issues, fmt.Sprintf("target.topic_id must be a UUID, got %q", c.Target.TopicID))
	}
	if strings.TrimSpace(c.Auth.Email) == "" {
		issues = append(issues, "auth.email is required")
	}
	if c.Auth.Password == "" {
		issues = append(issues, "auth.password is required")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		issues = append(issues, "output.dir is required")
	}
	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		issues = append(issues, fmt.Sprintf("browser viewport must be positive, got %dx%d", c.Browser.Width, c.Browser.Height))
	}
	if c.Browser.Scale <= 0 {
		issues = append(issues, fmt.Sprintf("browser.scale must be positive, got %v", c.Browser.Scale))
	}

	durations := []struct {
		name  string
		value string
	}{
		{"browser.element_timeout", c.Browser.ElementTimeout},
		{"timing.network_idle_quiet", c.Timing.NetworkIdleQuiet},
		{"timing.network_idle_timeout", c.Timing.NetworkIdleTimeout},
		{"timing.login_redirect_timeout", c.Timing.LoginRedirectTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			issues = append(issues, fmt.Sprintf("%s is not a duration: %q", d.name, d.value))
		}
	}

	return issues
}

// BaseURL returns the target base URL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Target.BaseURL, "/")
}
