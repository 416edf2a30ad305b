package common

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	headlessShellImage = "chromedp/headless-shell:latest"
	devtoolsPort       = "9222/tcp"
	// containerHostAlias is how a container reaches ports exposed with
	// WithHostPortAccess.
	containerHostAlias = "host.testcontainers.internal"
)

var localChromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// ChromeTarget says how a test reaches Chrome and how Chrome reaches the
// fixture.
type ChromeTarget struct {
	ExecPath  string // local binary, empty when RemoteURL is set
	RemoteURL string // DevTools endpoint of a container or running browser
	BaseURL   string // fixture URL as seen from the browser
}

// StartChrome picks a browser for the e2e suite:
//   - CORTEX_E2E_CONTAINER=1 runs chromedp/headless-shell via testcontainers
//   - CORTEX_CHROME_URL attaches to an already running browser
//   - otherwise a local Chrome binary is launched
//
// The test is skipped when none is available.
func StartChrome(t *testing.T, fixture *CortexFixture) *ChromeTarget {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e capture tests skipped in -short mode")
	}

	if os.Getenv("CORTEX_E2E_CONTAINER") == "1" {
		target, err := startHeadlessShell(t, fixture.Port())
		if err != nil {
			t.Fatalf("start headless-shell container: %v", err)
		}
		return target
	}

	if remote := os.Getenv("CORTEX_CHROME_URL"); remote != "" {
		return &ChromeTarget{RemoteURL: remote, BaseURL: fixture.URL()}
	}

	path, err := findLocalChrome()
	if err != nil {
		t.Skipf("no Chrome available (%v); set CORTEX_E2E_CONTAINER=1 to use docker", err)
	}
	return &ChromeTarget{ExecPath: path, BaseURL: fixture.URL()}
}

func findLocalChrome() (string, error) {
	if p := os.Getenv("CORTEX_CHROME_PATH"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("CORTEX_CHROME_PATH: %w", err)
		}
		return p, nil
	}
	for _, name := range localChromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("none of %v on PATH", localChromeCandidates)
}

func startHeadlessShell(t *testing.T, fixturePort int) (*ChromeTarget, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	ctr, err := testcontainers.Run(ctx, headlessShellImage,
		testcontainers.WithExposedPorts(devtoolsPort),
		testcontainers.WithHostPortAccess(fixturePort),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/json/version").WithPort(devtoolsPort).WithStartupTimeout(60*time.Second),
		),
	)
	if ctr != nil {
		t.Cleanup(func() {
			cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cleanupCancel()
			if err := ctr.Terminate(cleanupCtx); err != nil {
				t.Logf("terminate headless-shell: %v", err)
			}
		})
	}
	if err != nil {
		return nil, err
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("get container host: %w", err)
	}
	mapped, err := ctr.MappedPort(ctx, devtoolsPort)
	if err != nil {
		return nil, fmt.Errorf("get devtools port: %w", err)
	}

	return &ChromeTarget{
		RemoteURL: fmt.Sprintf("http://%s:%s", host, mapped.Port()),
		BaseURL:   fmt.Sprintf("http://%s:%d", containerHostAlias, fixturePort),
	}, nil
}
