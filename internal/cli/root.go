// Package cli implements the cortex-screenshots command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/cortex-screenshots/internal/app"
	"github.com/bobmcallan/cortex-screenshots/internal/common"
	"github.com/bobmcallan/cortex-screenshots/internal/config"
)

const configFileName = config.Name + ".toml"

// Runner performs the capture with a fully resolved configuration.
type Runner func(ctx context.Context, cfg *config.Config, logger *common.Logger, stdout io.Writer) error

// RunCapture is the production Runner.
func RunCapture(ctx context.Context, cfg *config.Config, logger *common.Logger, stdout io.Writer) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	_, err = a.Run(ctx, stdout)
	return err
}

type rootOptions struct {
	configFiles []string
	baseURL     string
	out         string
	headless    bool
}

// NewRootCmd builds the command tree. A nil run uses RunCapture.
func NewRootCmd(run Runner) *cobra.Command {
	if run == nil {
		run = RunCapture
	}
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   config.Name,
		Short: "Capture the Cortex documentation screenshots",
		Long: `cortex-screenshots logs into a running Cortex instance with a headless
browser, walks the documentation pages and writes one PNG per page into the
output directory.

Settings come from TOML files, CORTEX_* environment variables and flags, in
increasing order of precedence.`,
		Version:       config.GetVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, files, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}

			logger := common.NewLoggerFromConfig(cfg.Logging)
			logger.Info().
				Str("base_url", cfg.BaseURL()).
				Str("output", cfg.Output.Dir).
				Bool("headless", cfg.Browser.Headless).
				Strs("config_files", files).
				Msg("configuration loaded")

			return run(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVarP(&opts.configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Cortex base URL (overrides config)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output directory (overrides config)")
	cmd.Flags().BoolVar(&opts.headless, "headless", true, "Run Chrome headless (overrides config)")
	cmd.SetVersionTemplate(fmt.Sprintf("%s version {{.Version}}\n", config.Name))

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetFullVersion())
		},
	}
}

// resolveConfig layers defaults, files, environment and flags, then validates.
func resolveConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, []string, error) {
	files := opts.configFiles
	if len(files) == 0 {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				files = append(files, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, files, fmt.Errorf("load configuration: %w", err)
	}

	overrides := config.FlagOverrides{BaseURL: opts.baseURL, Output: opts.out}
	if cmd.Flags().Changed("headless") {
		overrides.Headless = &opts.headless
	}
	config.ApplyFlagOverrides(cfg, overrides)

	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, files, &ConfigError{Issues: issues}
	}
	return cfg, files, nil
}

// ConfigError lists every invalid setting.
type ConfigError struct {
	Issues []string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration:")
	for _, issue := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(issue)
	}
	b.WriteString("\nValues can be set via TOML file, CORTEX_* environment variables, or CLI flags.")
	return b.String()
}

// configSearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths come before the working directory.
func configSearchPaths() []string {
	candidates := []string{
		configFileName,
		filepath.Join("config", configFileName),
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, configFileName),
		filepath.Join(binDir, "config", configFileName),
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}

// Execute runs the root command. SIGINT and SIGTERM cancel the run; the
// browser is still closed before returning.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd(nil).ExecuteContext(ctx)
}
