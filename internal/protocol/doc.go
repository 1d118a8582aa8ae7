// Package protocol defines the messages exchanged between mergeq clients and
// the agent, and the newline-delimited JSON codec that carries them.
//
// Every variant type uses adjacent tagging: {"type":"Push","body":"<url>"}.
// Unit variants omit the body. A request names the protocol Version it was
// written for; the agent rejects any other revision.
package protocol
