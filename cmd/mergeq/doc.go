// Command mergeq manages a local merge queue of GitHub pull requests.
//
// `mergeq agent` starts the background agent that owns the queue. The other
// commands talk to it over a unix socket:
//
//	mergeq push https://github.com/owner/repo/pull/42
//	mergeq list
//	mergeq force
//	mergeq agent kill
package main
