package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateNotifier(); err != nil {
		return err
	}
	if err := c.validateGitHub(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateQueue() error {
	if c.Queue.Limit < 0 {
		return errors.New("queue.limit must be >= 0 (0 disables the limit)")
	}
	return ensurePositiveMap(map[string]int{
		"queue.interval_in_minutes": c.Queue.IntervalInMinutes,
	})
}

func (c *Config) validateNotifier() error {
	for name, n := range map[string]*Notification{
		"notifier.pop":    c.Notifier.Pop,
		"notifier.merge":  c.Notifier.Merge,
		"notifier.update": c.Notifier.Update,
	} {
		if n == nil || !n.Enabled {
			continue
		}
		if strings.ContainsAny(n.Title, "\r\n") {
			return fmt.Errorf("%s.title must be a single line", name)
		}
	}
	return nil
}

func (c *Config) validateGitHub() error {
	parsed, err := url.Parse(c.GitHub.APIURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("github.api_url %q is not a valid URL", c.GitHub.APIURL)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("github.api_url must use http or https, got %q", parsed.Scheme)
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return errors.New("github.requests_per_second must be >= 0 (0 disables pacing)")
	}
	return ensurePositiveMap(map[string]int{
		"github.request_timeout_seconds": c.GitHub.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
