// Package logs reads the agent log file for `mergeq agent logs`: the last N
// lines, then optionally new lines as the agent appends them.
package logs
