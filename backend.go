package tosc

import "context"

// Version identifies a generation of the blob stored in a Cell. Versions
// need only be distinguishable, not monotonically increasing. The engine
// compares them only for inequality, never for order.
type Version uint64

// Cell is the unit of storage a Backend exposes: a versioned byte blob.
type Cell struct {
	Version Version
	Blob    []byte
}

// Backend is the versioned atomic cell a Manager replicates against.
// Implementations may be in-process, file-based, or backed by an object
// store offering native compare-and-swap; the engine treats the backend
// as opaque beyond this contract.
type Backend interface {
	// Read fetches the current cell as a consistent snapshot. ok is false
	// if the backend holds no value yet.
	Read(ctx context.Context) (cell Cell, ok bool, err error)

	// Write unconditionally replaces the stored blob and returns a fresh
	// version. Used only for first-ever population or intentional
	// overwrite (Manager.Write outside a transaction).
	Write(ctx context.Context, blob []byte) (Version, error)

	// TryWrite performs a compare-and-swap: if the backend's current
	// version equals expected (and expectedOK is true), or the cell is
	// currently empty (and expectedOK is false), the new blob is
	// installed, ok is true, and the newly assigned version is returned.
	// Otherwise the backend is left untouched and ok is false.
	TryWrite(ctx context.Context, blob []byte, expected Version, expectedOK bool) (newVersion Version, ok bool, err error)

	// WaitForChange blocks until the cell's version has changed since this
	// caller's last Read or WaitForChange, returning true on change. It
	// returns false only to signal permanent shutdown, and must honor
	// ctx cancellation so the watcher goroutine can be stopped cleanly.
	WaitForChange(ctx context.Context) (changed bool, err error)
}

// ParticipantAware is an optional interface a Backend may implement to
// receive this Manager's randomly-generated participant id, letting it
// filter out wakeups the participant caused itself.
type ParticipantAware interface {
	SetParticipantID(id uint64)
}
