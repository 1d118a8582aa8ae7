// Package agent implements the mergeq daemon.
//
// Run acquires a flock next to the socket so only one agent serves a path,
// binds the unix socket with mode 0600, and then accepts clients one at a
// time. Every connection must pass the peer credential check before its
// requests are read. A ticker triggers a processing run every interval;
// ForceProcess starts an extra run without waiting for it. Runs never
// overlap. Quit stops accepting, waits for runs already started, and removes
// the socket.
package agent
