package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mergeq/internal/agent"
	"mergeq/internal/daemonctl"
	"mergeq/internal/daemonrun"
	"mergeq/internal/logs"
)

const (
	agentStartTimeout = 2 * time.Second
	agentStopTimeout  = 10 * time.Second
)

func newAgentCommand(ctx *commandContext) *cobra.Command {
	var foreground bool
	var logLevel string

	agentCmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the mergeq agent",
		Long: "Start the agent that owns the merge queue. Without --foreground the agent " +
			"is started in the background and the command returns once its socket is ready.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			socket := ctx.socketPath()
			if foreground {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				err = daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
					SocketPath:   socket,
					ConfigPath:   ctx.configPath,
					ConfigExists: ctx.configExists,
					LogLevel:     logLevel,
					Stderr:       true,
				})
				if errors.Is(err, agent.ErrAlreadyRunning) {
					return fmt.Errorf("an agent is already serving %s", socket)
				}
				return err
			}

			exe, err := agentExecutable()
			if err != nil {
				return err
			}
			launched, err := daemonctl.EnsureStarted(exe, agentLaunchOptions(ctx, socket), agentStartTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if launched {
				fmt.Fprintf(out, "Agent started on %s\n", socket)
			} else {
				fmt.Fprintf(out, "Agent already running on %s\n", socket)
			}
			return nil
		},
	}
	agentCmd.Flags().BoolVarP(&foreground, "foreground", "F", false, "Run the agent in the foreground")
	agentCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")

	agentCmd.AddCommand(newAgentKillCommand(ctx))
	agentCmd.AddCommand(newAgentLogsCommand(ctx))
	return agentCmd
}

func newAgentKillCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "kill",
		Short:       "Stop the background agent",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad(),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			err := daemonctl.Stop(ctx.socketPath(), agentStopTimeout)
			if errors.Is(err, daemonctl.ErrAgentNotRunning) {
				fmt.Fprintln(out, "Agent is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Agent stopped")
			return nil
		},
	}
}

func newAgentLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the agent log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := strings.TrimSpace(cfg.Logging.File)
			if path == "" {
				return errors.New("logging.file is not set; the agent only logs to stderr")
			}

			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = logs.Follow(followCtx, path, offset, logs.DefaultPollInterval, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as the agent writes them")
	return cmd
}

func agentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func agentLaunchOptions(ctx *commandContext, socket string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		SocketPath: socket,
		ConfigPath: ctx.configFlagValue(),
	}
}
