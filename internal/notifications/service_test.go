package notifications

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

type recordedCall struct {
	name string
	args []string
}

func recorder(calls *[]recordedCall, err error) runFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		if err != nil {
			return []byte("boom output"), err
		}
		return nil, nil
	}
}

func found(path string) func(string) (string, error) {
	return func(string) (string, error) { return path, nil }
}

func missing(string) (string, error) {
	return "", errors.New("not found")
}

func TestNewDesktopSelectsBackend(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		lookPath func(string) (string, error)
		want     string
	}{
		{name: "linux", goos: "linux", lookPath: found("/usr/bin/notify-send"), want: "*notifications.notifySend"},
		{name: "darwin", goos: "darwin", lookPath: found("/usr/bin/osascript"), want: "*notifications.appleScript"},
		{name: "linux without binary", goos: "linux", lookPath: missing, want: "notifications.Noop"},
		{name: "windows", goos: "windows", lookPath: found("x"), want: "notifications.Noop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newDesktop(tt.goos, tt.lookPath, runCommand)
			if name := typeName(got); name != tt.want {
				t.Fatalf("backend = %s, want %s", name, tt.want)
			}
		})
	}
}

func typeName(n Notifier) string {
	switch n.(type) {
	case *notifySend:
		return "*notifications.notifySend"
	case *appleScript:
		return "*notifications.appleScript"
	case Noop:
		return "notifications.Noop"
	default:
		return "unknown"
	}
}

func TestNotifySendArguments(t *testing.T) {
	var calls []recordedCall
	n := newDesktop("linux", found("/usr/bin/notify-send"), recorder(&calls, nil))

	err := n.Notify(context.Background(), Notification{
		Title:   "Mergeq: Merge",
		Body:    "Notification for Merge\nhttps://github.com/o/r/pull/1",
		Icon:    "git",
		Timeout: DefaultTimeout,
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(calls) != 1 || calls[0].name != "/usr/bin/notify-send" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	want := []string{
		"--app-name=mergeq",
		"--expire-time=6000",
		"--icon=git",
		"--",
		"Mergeq: Merge",
		"Notification for Merge\nhttps://github.com/o/r/pull/1",
	}
	if !slices.Equal(calls[0].args, want) {
		t.Fatalf("args = %q, want %q", calls[0].args, want)
	}
}

func TestNotifySendOmitsEmptyIcon(t *testing.T) {
	var calls []recordedCall
	n := newDesktop("linux", found("notify-send"), recorder(&calls, nil))
	if err := n.Notify(context.Background(), Notification{Title: "t", Body: "b"}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	for _, arg := range calls[0].args {
		if strings.HasPrefix(arg, "--icon") {
			t.Fatalf("unexpected icon argument %q", arg)
		}
	}
}

func TestNotifyWrapsCommandFailure(t *testing.T) {
	var calls []recordedCall
	n := newDesktop("linux", found("notify-send"), recorder(&calls, errors.New("exit status 1")))
	err := n.Notify(context.Background(), Notification{Title: "t", Body: "b"})
	if err == nil || !strings.Contains(err.Error(), "boom output") {
		t.Fatalf("expected wrapped command output, got %v", err)
	}
}

func TestAppleScriptEscapesQuotes(t *testing.T) {
	var calls []recordedCall
	n := newDesktop("darwin", found("osascript"), recorder(&calls, nil))
	if err := n.Notify(context.Background(), Notification{Title: `say "hi"`, Body: `back\slash`}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	want := `display notification "back\\slash" with title "say \"hi\""`
	if len(calls) != 1 || calls[0].args[0] != "-e" || calls[0].args[1] != want {
		t.Fatalf("unexpected osascript call: %+v", calls)
	}
}
