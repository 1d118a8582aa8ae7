// Package runner is the decision engine. A Runner takes a snapshot of the
// queue, asks the remote source for each pull request's state, and applies
// one Action per item: Drop for closed pull requests, Update for branches
// behind their base, Merge (squash) for mergeable and clean ones, NoOp for
// everything else.
//
// Side effects happen at most once per item per run. Items that were merged
// or dropped are removed from the shared queue afterwards, tolerating items a
// client popped in the meantime.
package runner
