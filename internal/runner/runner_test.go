package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"mergeq/internal/config"
	"mergeq/internal/github"
	"mergeq/internal/logging"
	"mergeq/internal/notifications"
	"mergeq/internal/pullrequest"
	"mergeq/internal/queue"
)

type fakeSource struct {
	mu      sync.Mutex
	pulls   map[int]*github.PullRequest
	getErr  map[int]error
	updated []int
	merged  []int
	opts    []github.MergeOptions
	onGet   func(number int)
}

func newFakeSource() *fakeSource {
	return &fakeSource{pulls: map[int]*github.PullRequest{}, getErr: map[int]error{}}
}

func (f *fakeSource) GetPullRequest(_ context.Context, _, _ string, number int) (*github.PullRequest, error) {
	if f.onGet != nil {
		f.onGet(number)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[number]; err != nil {
		return nil, err
	}
	pr, ok := f.pulls[number]
	if !ok {
		return nil, &github.APIError{StatusCode: 404, Message: "Not Found"}
	}
	copied := *pr
	return &copied, nil
}

func (f *fakeSource) UpdateBranch(_ context.Context, _, _ string, number int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, number)
	return nil
}

func (f *fakeSource) MergePullRequest(_ context.Context, _, _ string, number int, opts github.MergeOptions) (*github.MergeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, number)
	f.opts = append(f.opts, opts)
	return &github.MergeResult{SHA: fmt.Sprintf("sha-%d", number), Merged: true}, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notifications.Notification
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, n notifications.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return r.err
}

func boolPtr(v bool) *bool { return &v }

func item(n int) pullrequest.PullRequest {
	return pullrequest.PullRequest{URL: fmt.Sprintf("https://github.com/o/r/pull/%d", n), Owner: "o", Repo: "r", Number: n}
}

func filledQueue(t *testing.T, numbers ...int) *queue.Queue {
	t.Helper()
	q := queue.New(0)
	for _, n := range numbers {
		_, err := q.Push(item(n))
		require.NoError(t, err)
	}
	return q
}

func setup(t *testing.T) (logPath string, cfg config.Config) {
	t.Helper()
	return filepath.Join(t.TempDir(), "runner.log"), config.Default()
}

func newTestRunner(t *testing.T, cfg config.Config, source Source, notifier notifications.Notifier, logPath string) *Runner {
	t.Helper()
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}})
	require.NoError(t, err)
	return New(cfg, source, notifier, logger)
}

func TestDecidePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   Action
	}{
		{name: "closed beats behind", status: Status{Closed: true, MergeableState: "behind"}, want: Drop},
		{name: "closed beats clean", status: Status{Closed: true, Mergeable: Mergeable, MergeableState: "clean"}, want: Drop},
		{name: "behind", status: Status{Mergeable: Mergeable, MergeableState: "behind"}, want: Update},
		{name: "mergeable and clean", status: Status{Mergeable: Mergeable, MergeableState: "clean"}, want: Merge},
		{name: "not mergeable but clean", status: Status{Mergeable: NotMergeable, MergeableState: "clean"}, want: NoOp},
		{name: "unknown mergeability", status: Status{Mergeable: MergeabilityUnknown, MergeableState: "clean"}, want: NoOp},
		{name: "blocked", status: Status{Mergeable: Mergeable, MergeableState: "blocked"}, want: NoOp},
		{name: "dirty", status: Status{Mergeable: NotMergeable, MergeableState: "dirty"}, want: NoOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Decide(tt.status))
		})
	}
}

func TestMergeabilityOf(t *testing.T) {
	require.Equal(t, MergeabilityUnknown, MergeabilityOf(nil))
	require.Equal(t, Mergeable, MergeabilityOf(boolPtr(true)))
	require.Equal(t, NotMergeable, MergeabilityOf(boolPtr(false)))
}

func TestRunDropsClosedAndMergesClean(t *testing.T) {
	source := newFakeSource()
	source.pulls[1] = &github.PullRequest{State: "closed"}
	source.pulls[2] = &github.PullRequest{State: "open", Mergeable: boolPtr(true), MergeableState: "clean", Head: github.Branch{SHA: "head2"}}
	notifier := &recordingNotifier{}
	logPath, cfg := setup(t)
	cfg.Merger = config.Merger{Title: "Release", Message: "Merged by mergeq"}

	q := filledQueue(t, 1, 2)
	r := newTestRunner(t, cfg, source, notifier, logPath)
	require.NoError(t, r.Run(context.Background(), q))

	require.Empty(t, q.List())
	require.Equal(t, []int{2}, source.merged)
	require.Empty(t, source.updated)
	require.Equal(t, github.MergeOptions{
		Method:        github.MergeMethodSquash,
		CommitTitle:   "Release",
		CommitMessage: "Merged by mergeq",
		SHA:           "head2",
	}, source.opts[0])
	require.Equal(t, Summary{Dropped: 1, Merged: 1}, r.Summary())

	// Only merge notifications are enabled by default.
	require.Len(t, notifier.notes, 1)
	require.Equal(t, "Mergeq: Merge", notifier.notes[0].Title)
	require.Equal(t, "Notification for Merge\n"+item(2).URL, notifier.notes[0].Body)
	require.Equal(t, notifications.DefaultTimeout, notifier.notes[0].Timeout)
}

func TestRunUpdatesBehindAndKeepsItem(t *testing.T) {
	source := newFakeSource()
	source.pulls[3] = &github.PullRequest{State: "open", Mergeable: boolPtr(true), MergeableState: "behind"}
	logPath, cfg := setup(t)
	cfg.Notifier.Update = &config.Notification{Enabled: true, Title: "Updated", Message: "Branch refreshed", Icon: "git"}
	notifier := &recordingNotifier{}

	q := filledQueue(t, 3)
	require.NoError(t, newTestRunner(t, cfg, source, notifier, logPath).Run(context.Background(), q))

	require.Equal(t, []int{3}, source.updated)
	require.Empty(t, source.merged)
	require.Equal(t, []string{item(3).URL}, q.List())
	require.Equal(t, []notifications.Notification{{
		Title:   "Updated",
		Body:    "Branch refreshed\n" + item(3).URL,
		Icon:    "git",
		Timeout: notifications.DefaultTimeout,
	}}, notifier.notes)
}

func TestRunClosedAndBehindIsDropped(t *testing.T) {
	source := newFakeSource()
	source.pulls[4] = &github.PullRequest{State: "closed", MergeableState: "behind"}
	logPath, cfg := setup(t)
	cfg.Notifier.Pop = &config.Notification{Enabled: true}
	notifier := &recordingNotifier{}

	q := filledQueue(t, 4)
	require.NoError(t, newTestRunner(t, cfg, source, notifier, logPath).Run(context.Background(), q))

	require.Empty(t, source.updated)
	require.Empty(t, q.List())
	require.Len(t, notifier.notes, 1)
	require.Equal(t, "Mergeq: Drop", notifier.notes[0].Title)
}

func TestRunNotMergeableIsNoOp(t *testing.T) {
	source := newFakeSource()
	source.pulls[5] = &github.PullRequest{State: "open", Mergeable: boolPtr(false), MergeableState: "clean"}
	logPath, cfg := setup(t)
	notifier := &recordingNotifier{}

	q := filledQueue(t, 5)
	r := newTestRunner(t, cfg, source, notifier, logPath)
	require.NoError(t, r.Run(context.Background(), q))

	require.Empty(t, source.merged)
	require.Equal(t, []string{item(5).URL}, q.List())
	require.Empty(t, notifier.notes)
	require.Equal(t, Summary{NoOp: 1}, r.Summary())
}

func TestRunAbortsOnRemoteErrorAndCleansRecordedItems(t *testing.T) {
	source := newFakeSource()
	source.pulls[1] = &github.PullRequest{State: "closed"}
	source.getErr[2] = errors.New("connection reset")
	source.pulls[3] = &github.PullRequest{State: "closed"}
	logPath, cfg := setup(t)

	q := filledQueue(t, 1, 2, 3)
	err := newTestRunner(t, cfg, source, nil, logPath).Run(context.Background(), q)
	require.Error(t, err)
	require.Contains(t, err.Error(), item(2).URL)
	require.Contains(t, err.Error(), "connection reset")

	// Item 1 was dropped before the failure; item 3 was never evaluated.
	require.Equal(t, []string{item(2).URL, item(3).URL}, q.List())
	require.Contains(t, readFile(t, logPath), "queue_run_aborted")
}

func TestCleanupToleratesConcurrentPop(t *testing.T) {
	source := newFakeSource()
	source.pulls[1] = &github.PullRequest{State: "closed"}
	source.pulls[2] = &github.PullRequest{State: "open", MergeableState: "blocked"}
	logPath, cfg := setup(t)

	q := filledQueue(t, 1, 2)
	source.onGet = func(number int) {
		if number == 2 {
			q.Pop(item(1).URL)
		}
	}
	require.NoError(t, newTestRunner(t, cfg, source, nil, logPath).Run(context.Background(), q))

	require.Equal(t, []string{item(2).URL}, q.List())
	logs := readFile(t, logPath)
	require.Contains(t, logs, "queue_cleanup_missing")
	require.Contains(t, logs, item(1).URL)
}

func TestPushDuringRunIsSeenNextRun(t *testing.T) {
	source := newFakeSource()
	source.pulls[1] = &github.PullRequest{State: "open", MergeableState: "blocked"}
	source.pulls[2] = &github.PullRequest{State: "closed"}
	logPath, cfg := setup(t)

	q := filledQueue(t, 1)
	source.onGet = func(int) { _, _ = q.Push(item(2)) }
	r := newTestRunner(t, cfg, source, nil, logPath)
	require.NoError(t, r.Run(context.Background(), q))
	require.Equal(t, Summary{NoOp: 1}, r.Summary())
	require.Equal(t, []string{item(1).URL, item(2).URL}, q.List())
}

func TestNotificationFailureIsNotPropagated(t *testing.T) {
	source := newFakeSource()
	source.pulls[1] = &github.PullRequest{State: "open", Mergeable: boolPtr(true), MergeableState: "clean"}
	logPath, cfg := setup(t)
	notifier := &recordingNotifier{err: errors.New("no display")}

	q := filledQueue(t, 1)
	require.NoError(t, newTestRunner(t, cfg, source, notifier, logPath).Run(context.Background(), q))
	require.Empty(t, q.List())
	require.Contains(t, readFile(t, logPath), "notification_failed")
}

func TestBuildNotificationSkipsDisabledAndNoOp(t *testing.T) {
	n := config.Notifier{
		Merge: &config.Notification{Enabled: false, Title: "x"},
		Pop:   &config.Notification{Enabled: true},
	}
	_, ok := buildNotification(n, Merge, item(1))
	require.False(t, ok)
	_, ok = buildNotification(n, Update, item(1))
	require.False(t, ok, "absent section means no notification")
	_, ok = buildNotification(n, NoOp, item(1))
	require.False(t, ok)
	note, ok := buildNotification(n, Drop, item(1))
	require.True(t, ok)
	require.True(t, strings.HasPrefix(note.Body, "Notification for Drop\n"))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
