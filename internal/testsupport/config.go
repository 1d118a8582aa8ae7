package testsupport

import (
	"path/filepath"
	"testing"

	"mergeq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a default config whose log file lives in a per-test
// temp directory. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Logging.File = filepath.Join(base, "agent.log")
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithQueueLimit caps the queue size.
func WithQueueLimit(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Limit = limit
	}
}

// WithAPIURL points the GitHub client at a test server.
func WithAPIURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.GitHub.APIURL = url
	}
}

// WithNotification enables a notification section by action name
// ("pop", "merge" or "update").
func WithNotification(action string, n config.Notification) ConfigOption {
	return func(b *configBuilder) {
		section := n
		switch action {
		case "pop":
			b.cfg.Notifier.Pop = &section
		case "merge":
			b.cfg.Notifier.Merge = &section
		case "update":
			b.cfg.Notifier.Update = &section
		default:
			b.t.Fatalf("unknown notification action %q", action)
		}
	}
}
