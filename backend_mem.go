package tosc

import "context"

// MemBackend is a transient in-process Backend, intended for tests and for
// single-process use where distribution is simulated across goroutines
// rather than real participants. Write and TryWrite tag each commit with
// the id of the participant that made it (passed through ctx by Manager);
// WaitForChange uses that to swallow a wakeup caused by the calling
// participant's own write, the same self-filtering InprocBackend gives
// target_wait with its notifier != self.unique_id check.
type MemBackend struct {
	mu           mutexCond
	version      Version
	blob         []byte
	hasBlob      bool
	closed       bool
	lastWriterID uint64
	hasWriter    bool
}

// NewMemBackend returns an empty MemBackend ready for use.
func NewMemBackend() *MemBackend {
	b := &MemBackend{}
	b.mu.init()
	return b
}

var _ Backend = (*MemBackend)(nil)
var _ ParticipantAware = (*MemBackend)(nil)

// SetParticipantID implements ParticipantAware. MemBackend does not use the
// id passed here: the writer id it filters self-wakeups against is instead
// threaded per-call through ctx (see withParticipant), since a single
// MemBackend instance is commonly shared by many Managers at once and one
// struct field could not hold more than one of their ids at a time.
func (b *MemBackend) SetParticipantID(id uint64) {}

func (b *MemBackend) Read(ctx context.Context) (Cell, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasBlob {
		return Cell{}, false, nil
	}
	return Cell{Version: b.version, Blob: append([]byte(nil), b.blob...)}, true, nil
}

func (b *MemBackend) Write(ctx context.Context, blob []byte) (Version, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version++
	b.blob = append([]byte(nil), blob...)
	b.hasBlob = true
	b.recordWriterLocked(ctx)
	b.mu.broadcast()
	return b.version, nil
}

func (b *MemBackend) TryWrite(ctx context.Context, blob []byte, expected Version, expectedOK bool) (Version, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if expectedOK != b.hasBlob || (expectedOK && expected != b.version) {
		return 0, false, nil
	}
	b.version++
	b.blob = append([]byte(nil), blob...)
	b.hasBlob = true
	b.recordWriterLocked(ctx)
	b.mu.broadcast()
	return b.version, true, nil
}

func (b *MemBackend) recordWriterLocked(ctx context.Context) {
	id, ok := participantFromContext(ctx)
	b.lastWriterID = id
	b.hasWriter = ok
}

// WaitForChange blocks until the cell changes, then swallows the wakeup and
// keeps waiting if the change was this caller's own write (identified via
// ctx, see withParticipant): a participant does not need telling about a
// commit it just made itself, since its own Manager already applied it.
func (b *MemBackend) WaitForChange(ctx context.Context) (bool, error) {
	callerID, hasCaller := participantFromContext(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	base := b.version
	for !b.closed {
		for b.version == base && !b.closed {
			if !b.mu.waitContext(ctx) {
				return false, ctx.Err()
			}
		}
		if b.closed {
			break
		}
		if hasCaller && b.hasWriter && b.lastWriterID == callerID {
			base = b.version
			continue
		}
		return true, nil
	}
	return false, nil
}

// Close permanently unblocks any waiter, causing WaitForChange to return
// false. A closed MemBackend cannot be reopened.
func (b *MemBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.mu.broadcast()
}
