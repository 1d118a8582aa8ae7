package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"mergeq/internal/agent"
	"mergeq/internal/config"
	"mergeq/internal/github"
	"mergeq/internal/logging"
	"mergeq/internal/notifications"
	"mergeq/internal/queue"
	"mergeq/internal/runner"
)

// Options configures agent process runtime behavior.
type Options struct {
	SocketPath string
	// ConfigPath is where the effective configuration is stored when
	// ConfigExists is false.
	ConfigPath   string
	ConfigExists bool
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Stderr also receives log output in addition to logging.file.
	Stderr bool

	notifier notifications.Notifier
}

// Run serves the agent in the foreground until the context is cancelled,
// SIGINT or SIGTERM arrives, or a client sends Quit.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if strings.TrimSpace(opts.SocketPath) == "" {
		opts.SocketPath = agent.DefaultSocketPath()
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if !opts.ConfigExists && strings.TrimSpace(opts.ConfigPath) != "" {
		if err := config.Store(opts.ConfigPath, cfg); err != nil {
			logging.WarnWithContext(logger, "unable to store effective configuration", "config_store_failed",
				logging.Error(err),
				logging.String("path", opts.ConfigPath),
				logging.String(logging.FieldErrorHint, "check permissions on the config directory"),
				logging.String(logging.FieldImpact, "defaults are used again on next start"),
			)
		} else {
			logger.Info("stored effective configuration",
				logging.String(logging.FieldEventType, "config_stored"),
				logging.String("path", opts.ConfigPath),
			)
		}
	}

	notifier := opts.notifier
	if notifier == nil {
		notifier = notifications.NewDesktop()
	}
	newRunner, err := runnerFactory(*cfg, notifier, logger)
	if err != nil {
		return err
	}

	a, err := agent.New(agent.Options{
		SocketPath:    opts.SocketPath,
		Queue:         queue.New(cfg.Queue.Limit),
		Interval:      cfg.Interval(),
		NewRunner:     newRunner,
		Authenticator: agent.NewPeerCredentials(),
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	if err := a.Run(signalCtx); err != nil {
		if !errors.Is(err, agent.ErrAlreadyRunning) {
			logger.Error("agent stopped", logging.Error(err))
		}
		return err
	}
	logger.Info("mergeq agent shutting down", logging.String(logging.FieldEventType, "agent_exit"))
	return nil
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	var outputs []string
	if opts.Stderr {
		outputs = append(outputs, "stderr")
	}
	if file := strings.TrimSpace(cfg.Logging.File); file != "" {
		outputs = append(outputs, file)
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

// runnerFactory builds the GitHub client once. Without a token the agent
// still serves queue requests; only processing fails.
func runnerFactory(cfg config.Config, notifier notifications.Notifier, logger *slog.Logger) (agent.RunnerFactory, error) {
	token, ok := config.GitHubToken()
	if !ok {
		logging.WarnWithContext(logger, "github token not set", "github_token_missing",
			logging.String(logging.FieldErrorHint, "export "+config.EnvGitHubToken+" before starting the agent"),
			logging.String(logging.FieldImpact, "queued pull requests are not processed"),
		)
		return func() (*runner.Runner, error) {
			return nil, fmt.Errorf("%s is not set", config.EnvGitHubToken)
		}, nil
	}

	client, err := github.NewClient(github.Config{
		BaseURL:           cfg.GitHub.APIURL,
		Token:             token,
		Timeout:           cfg.RequestTimeout(),
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Logger:            logging.NewComponentLogger(logger, "github"),
	})
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}
	runnerLogger := logging.NewComponentLogger(logger, "runner")
	return func() (*runner.Runner, error) {
		return runner.New(cfg, client, notifier, runnerLogger), nil
	}, nil
}
