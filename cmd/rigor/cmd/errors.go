package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/corey/rigor/internal/adapters/bbolt"
	"github.com/corey/rigor/internal/adapters/socket"
)

// isDBLockError reports whether opening the history store failed because
// another process holds the bbolt file lock.
func isDBLockError(err error) bool {
	return errors.Is(err, bbolt.ErrLocked)
}

// diagnoseDBLock explains who probably holds the lock: the daemon for this
// directory, a crashed daemon that left its socket behind, or something else.
func diagnoseDBLock(root string) string {
	sockPath := socket.SocketPath(root)

	switch {
	case socket.NewClient(sockPath).Ping():
		return "the running daemon holds it\n" +
			"  → scoring goes through the daemon automatically; for history edits stop it first:\n" +
			"      rigor daemon stop\n" +
			"  → or set store: none in rigor.yaml for one-shot runs"
	case fileExists(sockPath):
		return fmt.Sprintf("a daemon socket exists but is not answering (crashed daemon?)\n"+
			"  → find it:    pgrep -fl 'rigor daemon'\n"+
			"  → stop it:    kill <PID>\n"+
			"  → clean up:   rigor daemon stop   (removes %s)", sockPath)
	default:
		return "another process holds it\n" +
			"  → find it:    fuser .rigor/history.db   (or pgrep -fl rigor)\n" +
			"  → stop it, then retry"
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
