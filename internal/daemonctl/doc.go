// Package daemonctl starts and stops the background agent on behalf of the
// CLI. Launch re-executes the current binary as `agent --foreground` in a new
// session; Stop sends Quit and waits for the socket to go away.
package daemonctl
