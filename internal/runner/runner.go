package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mergeq/internal/config"
	"mergeq/internal/github"
	"mergeq/internal/logging"
	"mergeq/internal/notifications"
	"mergeq/internal/pullrequest"
	"mergeq/internal/queue"
)

// Source is the remote side of a run. *github.Client implements it.
type Source interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	UpdateBranch(ctx context.Context, owner, repo string, number int) error
	MergePullRequest(ctx context.Context, owner, repo string, number int, opts github.MergeOptions) (*github.MergeResult, error)
}

// Summary counts the actions taken during a run.
type Summary struct {
	NoOp    int
	Dropped int
	Updated int
	Merged  int
}

func (s *Summary) add(action Action) {
	switch action {
	case Drop:
		s.Dropped++
	case Update:
		s.Updated++
	case Merge:
		s.Merged++
	default:
		s.NoOp++
	}
}

// Runner performs one processing run. Build a fresh Runner per run; it
// records which items it finished so Cleanup can remove exactly those.
type Runner struct {
	cfg      config.Config
	source   Source
	notifier notifications.Notifier
	logger   *slog.Logger
	runID    string

	processed []pullrequest.PullRequest
	summary   Summary
}

// New builds a Runner. A nil notifier disables notifications.
func New(cfg config.Config, source Source, notifier notifications.Notifier, logger *slog.Logger) *Runner {
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	runID := uuid.NewString()
	return &Runner{
		cfg:      cfg,
		source:   source,
		notifier: notifier,
		logger:   logger.With(logging.String(logging.FieldRunID, runID)),
		runID:    runID,
	}
}

// ID returns the run identifier attached to every log line of the run.
func (r *Runner) ID() string {
	return r.runID
}

// Summary returns the action counts recorded so far.
func (r *Runner) Summary() Summary {
	return r.summary
}

// Processed returns the items recorded for removal.
func (r *Runner) Processed() []pullrequest.PullRequest {
	return append([]pullrequest.PullRequest(nil), r.processed...)
}

// Run processes a snapshot of q and then removes the finished items. Cleanup
// happens even when processing aborts, so items acted on before a remote
// failure are not acted on twice.
func (r *Runner) Run(ctx context.Context, q *queue.Queue) error {
	started := time.Now()
	snapshot := q.Snapshot()
	r.logger.Info("queue run started",
		logging.String(logging.FieldEventType, "queue_run_start"),
		logging.Int("items", len(snapshot)),
	)

	err := r.Process(ctx, snapshot)
	r.Cleanup(q)

	counts := []logging.Attr{
		logging.Int("items", len(snapshot)),
		logging.Int("merged", r.summary.Merged),
		logging.Int("updated", r.summary.Updated),
		logging.Int("dropped", r.summary.Dropped),
		logging.Int("noop", r.summary.NoOp),
		logging.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		counts = append(counts,
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check GITHUB_API_TOKEN and network access; the next run retries"),
		)
		logging.ErrorWithContext(r.logger, "queue run aborted", "queue_run_aborted", counts...)
		return err
	}
	counts = append(counts, logging.String(logging.FieldEventType, "queue_run_complete"))
	r.logger.Info("queue run finished", logging.Args(counts...)...)
	return nil
}

// Process evaluates each item in order. The first remote failure aborts the
// run and is returned wrapped with the item URL.
func (r *Runner) Process(ctx context.Context, snapshot []pullrequest.PullRequest) error {
	for _, item := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.processItem(ctx, item); err != nil {
			return fmt.Errorf("%s: %w", item.URL, err)
		}
	}
	return nil
}

func (r *Runner) processItem(ctx context.Context, item pullrequest.PullRequest) error {
	pr, err := r.source.GetPullRequest(ctx, item.Owner, item.Repo, item.Number)
	if err != nil {
		return err
	}
	status := StatusOf(pr)
	action := Decide(status)

	logger := r.logger.With(logging.String(logging.FieldURL, item.URL))
	logger.Info("pull request evaluated",
		logging.String(logging.FieldEventType, "queue_decision"),
		logging.String(logging.FieldAction, action.String()),
		logging.String("state", pr.State),
		logging.String("mergeable_state", pr.MergeableState),
	)

	switch action {
	case Update:
		if err := r.source.UpdateBranch(ctx, item.Owner, item.Repo, item.Number); err != nil {
			return err
		}
	case Merge:
		result, err := r.source.MergePullRequest(ctx, item.Owner, item.Repo, item.Number, github.MergeOptions{
			Method:        github.MergeMethodSquash,
			CommitTitle:   r.cfg.Merger.Title,
			CommitMessage: r.cfg.Merger.Message,
			SHA:           pr.Head.SHA,
		})
		if err != nil {
			return err
		}
		logger.Info("pull request merged",
			logging.String(logging.FieldEventType, "queue_merge"),
			logging.String("sha", result.SHA),
		)
	}

	r.summary.add(action)
	r.notify(ctx, logger, action, item)
	if action.removesItem() {
		r.processed = append(r.processed, item)
	}
	return nil
}

// Cleanup removes every recorded item still present in q. Items a client
// popped during the run are skipped and logged.
func (r *Runner) Cleanup(q *queue.Queue) {
	removed, missing := q.RemoveProcessed(r.processed)
	for _, url := range missing {
		logging.WarnWithContext(r.logger, "processed item already removed from queue", "queue_cleanup_missing",
			logging.String(logging.FieldURL, url),
			logging.String(logging.FieldErrorHint, "the item was popped or cleared while the run was in progress"),
			logging.String(logging.FieldImpact, "none; the item is no longer queued"),
		)
	}
	if removed > 0 {
		r.logger.Debug("queue cleanup complete", logging.Int("removed", removed))
	}
}
