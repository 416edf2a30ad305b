package browser

import (
	"testing"
	"time"

	"github.com/bobmcallan/cortex-screenshots/internal/capture"
	"github.com/bobmcallan/cortex-screenshots/internal/config"
)

var _ capture.Page = (*Session)(nil)

func TestConfigFrom_Defaults(t *testing.T) {
	cfg := ConfigFrom(config.NewDefaultConfig())
	want := DefaultConfig()

	if cfg != want {
		t.Errorf("expected %+v, got %+v", want, cfg)
	}
}

func TestConfigFrom_Overrides(t *testing.T) {
	c := config.NewDefaultConfig()
	c.Browser.Headless = false
	c.Browser.Width = 1280
	c.Browser.Height = 720
	c.Browser.Scale = 1
	c.Browser.ExecPath = "  /usr/bin/chromium  "
	c.Browser.RemoteURL = "http://localhost:9222"
	c.Browser.ElementTimeout = "5s"
	c.Timing.NetworkIdleQuiet = "250ms"

	cfg := ConfigFrom(c)
	if cfg.Headless {
		t.Error("expected headful browser")
	}
	if cfg.Width != 1280 || cfg.Height != 720 || cfg.Scale != 1 {
		t.Errorf("unexpected viewport: %dx%d@%v", cfg.Width, cfg.Height, cfg.Scale)
	}
	if cfg.ExecPath != "/usr/bin/chromium" {
		t.Errorf("expected trimmed exec path, got %q", cfg.ExecPath)
	}
	if cfg.RemoteURL != "http://localhost:9222" {
		t.Errorf("expected remote url, got %q", cfg.RemoteURL)
	}
	if cfg.ElementTimeout != 5*time.Second {
		t.Errorf("expected 5s element timeout, got %v", cfg.ElementTimeout)
	}
	if cfg.IdleQuiet != 250*time.Millisecond {
		t.Errorf("expected 250ms quiet period, got %v", cfg.IdleQuiet)
	}
}

func TestAllocatorOptions_ExecPath(t *testing.T) {
	base := len(allocatorOptions(DefaultConfig()))

	cfg := DefaultConfig()
	cfg.ExecPath = "/opt/chrome/chrome"
	if got := len(allocatorOptions(cfg)); got != base+1 {
		t.Errorf("expected exec path option appended, got %d options (base %d)", got, base)
	}
}
