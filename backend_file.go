package tosc

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileBackend stores the cell as a single file, written via a temp-file-
// plus-rename so a reader never observes a half-written blob, and
// serializes writers across processes with an advisory lock (see
// backend_file_unix.go / backend_file_windows.go). The version is the
// first 8 bytes of the file, big-endian, followed by the blob.
type FileBackend struct {
	path      string
	pollEvery time.Duration
}

// NewFileBackend returns a Backend backed by the file at path. The file
// need not exist yet. pollEvery controls WaitForChange's polling interval,
// the same compromise BoltBackend makes in the absence of a filesystem
// change-notification primitive.
func NewFileBackend(path string, pollEvery time.Duration) *FileBackend {
	if pollEvery <= 0 {
		pollEvery = 200 * time.Millisecond
	}
	return &FileBackend{path: path, pollEvery: pollEvery}
}

var _ Backend = (*FileBackend)(nil)

func (b *FileBackend) readFile() (Version, []byte, bool, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	if len(data) < 8 {
		return 0, nil, false, fmt.Errorf("tosc: corrupt cell file %s: short header", b.path)
	}
	v := Version(binary.BigEndian.Uint64(data[:8]))
	return v, data[8:], true, nil
}

func (b *FileBackend) Read(ctx context.Context) (Cell, bool, error) {
	v, blob, ok, err := b.readFile()
	if err != nil {
		return Cell{}, false, backendErrf("read", err)
	}
	if !ok {
		return Cell{}, false, nil
	}
	return Cell{Version: v, Blob: blob}, true, nil
}

func (b *FileBackend) writeAtomic(v Version, blob []byte) error {
	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, ".tosc-cell-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	header := make([]byte, 8)
	binary.BigEndian.PutUint64(header, uint64(v))
	if _, err := tmp.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, b.path)
}

func (b *FileBackend) Write(ctx context.Context, blob []byte) (Version, error) {
	unlock, err := lockFile(b.path)
	if err != nil {
		return 0, backendErrf("lock", err)
	}
	defer unlock()

	cur, _, ok, err := b.readFile()
	if err != nil {
		return 0, backendErrf("read", err)
	}
	newVer := cur + 1
	if !ok {
		newVer = 1
	}
	if err := b.writeAtomic(newVer, blob); err != nil {
		return 0, backendErrf("write", err)
	}
	return newVer, nil
}

func (b *FileBackend) TryWrite(ctx context.Context, blob []byte, expected Version, expectedOK bool) (Version, bool, error) {
	unlock, err := lockFile(b.path)
	if err != nil {
		return 0, false, backendErrf("lock", err)
	}
	defer unlock()

	cur, _, hasVal, err := b.readFile()
	if err != nil {
		return 0, false, backendErrf("read", err)
	}
	if expectedOK != hasVal || (expectedOK && cur != expected) {
		return 0, false, nil
	}
	newVer := cur + 1
	if err := b.writeAtomic(newVer, blob); err != nil {
		return 0, false, backendErrf("write", err)
	}
	return newVer, true, nil
}

func (b *FileBackend) WaitForChange(ctx context.Context) (bool, error) {
	base, _, _, err := b.readFile()
	if err != nil {
		return false, backendErrf("read", err)
	}
	ticker := time.NewTicker(b.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			cur, _, ok, err := b.readFile()
			if err != nil {
				return false, backendErrf("read", err)
			}
			if ok && cur != base {
				return true, nil
			}
		}
	}
}
