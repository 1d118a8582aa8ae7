// Package queue holds the agent's pending pull requests in memory.
//
// The Queue is shared by pointer between the accept loop, the scheduler and
// forced runs. Every method takes the single mutex for the shortest possible
// section; runners work on a Snapshot and report what they finished through
// RemoveProcessed, which tolerates items a client popped in the meantime.
// Nothing is persisted: a restarted agent starts with an empty queue.
package queue
