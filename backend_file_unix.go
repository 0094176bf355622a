//go:build unix

package tosc

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive advisory flock on a sibling ".lock" file next
// to path, serializing FileBackend writers across processes. A Backend may
// be shared by participants running in separate processes, not just
// separate goroutines. The returned func releases the lock.
func lockFile(path string) (func(), error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
