package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reload struct {
	cfg *Config
	err error
}

// startWatch runs Watch on path until the test ends and returns the reloads.
func startWatch(t *testing.T, path string) <-chan reload {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan reload, 64)
	done := make(chan error, 1)

	go func() {
		done <- Watch(ctx, path, func(cfg *Config, err error) {
			select {
			case reloads <- reload{cfg: cfg, err: err}:
			default:
			}
		})
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Watch did not return after cancel")
		}
	})
	return reloads
}

// rewriteUntil keeps rewriting path with content until match accepts a
// reload. Rewriting covers the window before the watcher is registered.
func rewriteUntil(t *testing.T, path, content string, match func(reload) bool) reload {
	t.Helper()
	reloads := startWatch(t, path)
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case r := <-reloads:
			if match(r) {
				return r
			}
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		case <-deadline:
			t.Fatal("no matching reload within 5s")
		}
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "identity:\n  uid: 1000\n")

	r := rewriteUntil(t, path, "identity:\n  uid: 2000\n  squash: root\n", func(r reload) bool {
		return r.err == nil && r.cfg.Identity.UID != nil && *r.cfg.Identity.UID == 2000
	})

	assert.Equal(t, "root", r.cfg.Identity.Squash)
	assert.Equal(t, "INFO", r.cfg.Logging.Level)
}

func TestWatch_ReportsInvalidConfig(t *testing.T) {
	path := writeConfig(t, "identity:\n  uid: 1000\n")

	r := rewriteUntil(t, path, "identity:\n  squash: sometimes\n", func(r reload) bool {
		return r.err != nil && strings.Contains(r.err.Error(), "Identity.Squash")
	})

	assert.Nil(t, r.cfg)
}

func TestWatch_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.yaml")

	err := Watch(context.Background(), path, func(*Config, error) {})
	assert.Error(t, err)
}
