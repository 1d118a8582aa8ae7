package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mergeq/internal/ipc"
	"mergeq/internal/pullrequest"
)

func newQueueCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newPushCommand(ctx),
		newPopCommand(ctx),
		newListCommand(ctx),
		newClearCommand(ctx),
		newForceCommand(ctx),
	}
}

func newPushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "push <URL>",
		Short:   "Push a pull request into the queue",
		Example: "  mergeq push https://github.com/owner/repo/pull/42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, err := parseArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Push(pr.URL); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", pr.Slug())
				return nil
			})
		},
	}
}

func newPopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pop <URL>",
		Short: "Pop a pull request from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, err := parseArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Pop(pr.URL); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", pr.Slug())
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the current queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				urls, err := client.List()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, listEntries(urls))
				}
				out := cmd.OutOrStdout()
				if !isTerminal(out) {
					fmt.Fprintln(out, "Queue:")
					for _, url := range urls {
						fmt.Fprintln(out, url)
					}
					return nil
				}
				if len(urls) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"#", "Owner", "Repository", "PR", "URL"},
					queueRows(listEntries(urls)),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the current queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue cleared")
				return nil
			})
		},
	}
}

func newForceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "force",
		Short: "Process the queue now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Force(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Processing started")
				return nil
			})
		},
	}
}

func parseArg(raw string) (pullrequest.PullRequest, error) {
	pr, err := pullrequest.Parse(raw)
	if err != nil {
		return pullrequest.PullRequest{}, fmt.Errorf("%q is an invalid pull request source: %w", raw, err)
	}
	return pr, nil
}

// listEntries decomposes queued URLs. The agent only stores valid URLs, but
// an unparsable entry is still reported by URL.
func listEntries(urls []string) []pullrequest.PullRequest {
	entries := make([]pullrequest.PullRequest, 0, len(urls))
	for _, url := range urls {
		pr, err := pullrequest.Parse(url)
		if err != nil {
			pr = pullrequest.PullRequest{URL: url}
		}
		entries = append(entries, pr)
	}
	return entries
}

func queueRows(entries []pullrequest.PullRequest) [][]string {
	rows := make([][]string, 0, len(entries))
	for i, pr := range entries {
		number := ""
		if pr.Number > 0 {
			number = strconv.Itoa(pr.Number)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), pr.Owner, pr.Repo, number, pr.URL})
	}
	return rows
}
