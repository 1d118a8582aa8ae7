package queue_test

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"mergeq/internal/pullrequest"
	"mergeq/internal/queue"
)

func item(n int) pullrequest.PullRequest {
	return pullrequest.PullRequest{
		URL:    fmt.Sprintf("https://github.com/o/r/pull/%d", n),
		Owner:  "o",
		Repo:   "r",
		Number: n,
	}
}

func TestPushPreservesOrderAndIgnoresDuplicates(t *testing.T) {
	q := queue.New(0)
	for _, n := range []int{1, 2, 1, 3} {
		if _, err := q.Push(item(n)); err != nil {
			t.Fatalf("Push(%d) returned error: %v", n, err)
		}
	}
	want := []string{item(1).URL, item(2).URL, item(3).URL}
	if got := q.List(); !slices.Equal(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}

	added, err := q.Push(item(2))
	if err != nil || added {
		t.Fatalf("duplicate push: added=%v err=%v", added, err)
	}
}

func TestPushRespectsLimit(t *testing.T) {
	q := queue.New(2)
	for _, n := range []int{1, 2} {
		if added, err := q.Push(item(n)); err != nil || !added {
			t.Fatalf("Push(%d): added=%v err=%v", n, added, err)
		}
	}
	if _, err := q.Push(item(3)); !errors.Is(err, queue.ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if added, err := q.Push(item(1)); err != nil || added {
		t.Fatalf("duplicate at capacity should be a silent no-op: added=%v err=%v", added, err)
	}
}

func TestPopAndClear(t *testing.T) {
	q := queue.New(0)
	for _, n := range []int{1, 2, 3} {
		_, _ = q.Push(item(n))
	}
	if !q.Pop(item(2).URL) {
		t.Fatal("expected pop to find item 2")
	}
	if q.Pop(item(2).URL) {
		t.Fatal("second pop should be a no-op")
	}
	if got := q.List(); !slices.Equal(got, []string{item(1).URL, item(3).URL}) {
		t.Fatalf("List after pop = %v", got)
	}
	if n := q.Clear(); n != 2 {
		t.Fatalf("Clear removed %d, want 2", n)
	}
	if got := q.List(); got == nil || len(got) != 0 {
		t.Fatalf("List after clear = %#v, want empty non-nil slice", got)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	q := queue.New(0)
	_, _ = q.Push(item(1))
	snap := q.Snapshot()
	_, _ = q.Push(item(2))
	if len(snap) != 1 {
		t.Fatalf("snapshot changed after push: %v", snap)
	}
	snap[0].URL = "mutated"
	if q.List()[0] != item(1).URL {
		t.Fatal("mutating the snapshot leaked into the queue")
	}
}

func TestRemoveProcessedSkipsMissing(t *testing.T) {
	q := queue.New(0)
	for _, n := range []int{1, 2, 3} {
		_, _ = q.Push(item(n))
	}
	q.Pop(item(3).URL)

	removed, missing := q.RemoveProcessed([]pullrequest.PullRequest{item(1), item(3)})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if !slices.Equal(missing, []string{item(3).URL}) {
		t.Fatalf("missing = %v", missing)
	}
	if got := q.List(); !slices.Equal(got, []string{item(2).URL}) {
		t.Fatalf("List = %v", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	q := queue.New(0)
	var wg sync.WaitGroup
	for n := 1; n <= 50; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = q.Push(item(n))
			_ = q.List()
			if n%2 == 0 {
				q.Pop(item(n).URL)
			}
		}(n)
	}
	wg.Wait()
	if q.Len() != 25 {
		t.Fatalf("Len = %d, want 25", q.Len())
	}
}
