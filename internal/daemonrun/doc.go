// Package daemonrun wires configuration, logging, the GitHub client and the
// agent together for `mergeq agent --foreground`.
package daemonrun
