// Package ipc is the client side of the agent protocol.
//
// Every call opens a fresh connection to the agent's unix socket, sends one
// request tagged with the current protocol version, reads one response, and
// closes the connection. Failure responses surface as *FailureError; dial
// errors that mean "no agent is listening" are recognized by IsUnavailable
// so the CLI can say so plainly.
package ipc
