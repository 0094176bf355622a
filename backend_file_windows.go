//go:build windows

package tosc

import "fmt"

// lockFile has no Windows implementation; golang.org/x/sys's flock-style
// locking primitives are unix-only. FileBackend is therefore unavailable on
// Windows until a LockFileEx-based implementation is added.
func lockFile(path string) (func(), error) {
	return nil, fmt.Errorf("tosc: FileBackend locking is not implemented on windows")
}
