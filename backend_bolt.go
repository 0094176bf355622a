package tosc

import (
	"context"
	"encoding/binary"
	"time"

	"go.etcd.io/bbolt"
)

var boltBucketName = []byte("tosc_cell")
var boltVersionKey = []byte("version")
var boltBlobKey = []byte("blob")

// BoltBackend stores the cell in a single bucket of a bbolt database: one
// key for the version counter, one for the blob, read and written inside
// bbolt's own ACID transactions so a crash never leaves version and blob
// out of sync.
type BoltBackend struct {
	bdb       *bbolt.DB
	pollEvery time.Duration
}

// NewBoltBackend opens (creating if necessary) a bbolt database at path and
// returns a Backend over it. pollEvery controls how often WaitForChange
// re-checks the stored version if it has no other wakeup signal available;
// bbolt has no native change-notification primitive, so polling is the
// same compromise any mmap-based journal tailing makes in the absence of
// inotify.
func NewBoltBackend(path string, pollEvery time.Duration) (*BoltBackend, error) {
	bdb, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, backendErrf("open", err)
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(boltBucketName)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, backendErrf("init", err)
	}
	if pollEvery <= 0 {
		pollEvery = 200 * time.Millisecond
	}
	return &BoltBackend{bdb: bdb, pollEvery: pollEvery}, nil
}

var _ Backend = (*BoltBackend)(nil)

// Close releases the underlying bbolt file handle.
func (b *BoltBackend) Close() error { return b.bdb.Close() }

func (b *BoltBackend) readLocked() (Version, []byte, bool, error) {
	var v Version
	var blob []byte
	var ok bool
	err := b.bdb.View(func(btx *bbolt.Tx) error {
		bkt := btx.Bucket(boltBucketName)
		vb := bkt.Get(boltVersionKey)
		if vb == nil {
			return nil
		}
		v = Version(binary.BigEndian.Uint64(vb))
		blob = append([]byte(nil), bkt.Get(boltBlobKey)...)
		ok = true
		return nil
	})
	return v, blob, ok, err
}

func (b *BoltBackend) Read(ctx context.Context) (Cell, bool, error) {
	v, blob, ok, err := b.readLocked()
	if err != nil {
		return Cell{}, false, backendErrf("read", err)
	}
	if !ok {
		return Cell{}, false, nil
	}
	return Cell{Version: v, Blob: blob}, true, nil
}

func (b *BoltBackend) Write(ctx context.Context, blob []byte) (Version, error) {
	var newVer Version
	err := b.bdb.Update(func(btx *bbolt.Tx) error {
		bkt := btx.Bucket(boltBucketName)
		vb := bkt.Get(boltVersionKey)
		cur := Version(0)
		if vb != nil {
			cur = Version(binary.BigEndian.Uint64(vb))
		}
		newVer = cur + 1
		return putCell(bkt, newVer, blob)
	})
	if err != nil {
		return 0, backendErrf("write", err)
	}
	return newVer, nil
}

func (b *BoltBackend) TryWrite(ctx context.Context, blob []byte, expected Version, expectedOK bool) (Version, bool, error) {
	var newVer Version
	var ok bool
	err := b.bdb.Update(func(btx *bbolt.Tx) error {
		bkt := btx.Bucket(boltBucketName)
		vb := bkt.Get(boltVersionKey)
		hasVal := vb != nil
		var cur Version
		if hasVal {
			cur = Version(binary.BigEndian.Uint64(vb))
		}
		if expectedOK != hasVal || (expectedOK && cur != expected) {
			ok = false
			return nil
		}
		newVer = cur + 1
		ok = true
		return putCell(bkt, newVer, blob)
	})
	if err != nil {
		return 0, false, backendErrf("try_write", err)
	}
	return newVer, ok, nil
}

func putCell(bkt *bbolt.Bucket, v Version, blob []byte) error {
	vb := make([]byte, 8)
	binary.BigEndian.PutUint64(vb, uint64(v))
	if err := bkt.Put(boltVersionKey, vb); err != nil {
		return err
	}
	return bkt.Put(boltBlobKey, blob)
}

// WaitForChange polls the stored version at b.pollEvery until it differs
// from the version last observed by this call, or ctx is done.
func (b *BoltBackend) WaitForChange(ctx context.Context) (bool, error) {
	base, _, _, err := b.readLocked()
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
			cur, _, ok, err := b.readLocked()
			if err != nil {
				return false, backendErrf("read", err)
			}
			if ok && cur != base {
				return true, nil
			}
		}
	}
}
