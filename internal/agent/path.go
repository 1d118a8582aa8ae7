package agent

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

const socketDir = "/tmp"

// DefaultSocketPath returns /tmp/mergeq-agent-<username>. The uid stands in
// when the user database has no entry for the current user.
func DefaultSocketPath() string {
	name := ""
	if current, err := user.Current(); err == nil {
		name = strings.TrimSpace(current.Username)
	}
	if name == "" {
		name = fmt.Sprintf("%d", os.Getuid())
	}
	// Domain accounts render as DOMAIN\user.
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return filepath.Join(socketDir, "mergeq-agent-"+name)
}

// LockPath returns the single-instance lock file for socketPath.
func LockPath(socketPath string) string {
	return socketPath + ".lock"
}
