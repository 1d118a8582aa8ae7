package queue

import (
	"errors"
	"slices"
	"sync"

	"mergeq/internal/pullrequest"
)

// ErrFull is returned by Push when the queue has reached its limit.
var ErrFull = errors.New("queue is full")

// Queue is an insertion-ordered set of pull requests keyed by URL.
type Queue struct {
	mu    sync.Mutex
	items []pullrequest.PullRequest
	limit int
}

// New returns an empty queue. A limit <= 0 leaves it unbounded.
func New(limit int) *Queue {
	return &Queue{limit: limit}
}

// Limit reports the configured capacity (0 when unbounded).
func (q *Queue) Limit() int {
	if q.limit < 0 {
		return 0
	}
	return q.limit
}

// Push appends item unless its URL is already queued. Duplicates report
// added=false without error.
func (q *Queue) Push(item pullrequest.PullRequest) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.indexLocked(item.URL) >= 0 {
		return false, nil
	}
	if q.limit > 0 && len(q.items) >= q.limit {
		return false, ErrFull
	}
	q.items = append(q.items, item)
	return true, nil
}

// Pop removes the item with the given URL and reports whether one was found.
func (q *Queue) Pop(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	idx := q.indexLocked(url)
	if idx < 0 {
		return false
	}
	q.items = slices.Delete(q.items, idx, idx+1)
	return true
}

// Clear empties the queue and returns how many items were removed.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// List returns the queued URLs in insertion order. The result is never nil.
func (q *Queue) List() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	urls := make([]string, 0, len(q.items))
	for _, item := range q.items {
		urls = append(urls, item.URL)
	}
	return urls
}

// Snapshot copies the current items for a processing run.
func (q *Queue) Snapshot() []pullrequest.PullRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// Len reports the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// RemoveProcessed drops every given item that is still queued. URLs that are
// no longer present are skipped and returned in missing.
func (q *Queue) RemoveProcessed(items []pullrequest.PullRequest) (removed int, missing []string) {
	if len(items) == 0 {
		return 0, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range items {
		idx := q.indexLocked(item.URL)
		if idx < 0 {
			missing = append(missing, item.URL)
			continue
		}
		q.items = slices.Delete(q.items, idx, idx+1)
		removed++
	}
	return removed, missing
}

func (q *Queue) indexLocked(url string) int {
	return slices.IndexFunc(q.items, func(item pullrequest.PullRequest) bool {
		return item.URL == url
	})
}
