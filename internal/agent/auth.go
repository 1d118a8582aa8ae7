package agent

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrUnauthenticated is returned when a peer fails the credential check.
var ErrUnauthenticated = errors.New("peer is not authorized")

// Authenticator decides whether a freshly accepted connection may talk to
// the agent.
type Authenticator interface {
	Authenticate(conn net.Conn) error
}

// PeerCredentials accepts peers whose effective uid matches UID, as
// reported by the kernel for the unix socket. Platforms without a peer
// credential query reject every connection.
type PeerCredentials struct {
	UID int
}

// NewPeerCredentials expects peers to run as the agent's own effective user.
func NewPeerCredentials() PeerCredentials {
	return PeerCredentials{UID: os.Geteuid()}
}

// Authenticate implements Authenticator.
func (p PeerCredentials) Authenticate(conn net.Conn) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return fmt.Errorf("%w: not a unix socket connection", ErrUnauthenticated)
	}
	uid, err := peerUID(unixConn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if uid != p.UID {
		return fmt.Errorf("%w: peer uid %d does not match %d", ErrUnauthenticated, uid, p.UID)
	}
	return nil
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(conn net.Conn) error

func (f AuthenticatorFunc) Authenticate(conn net.Conn) error { return f(conn) }
