package tosc

// Bytes is a distributed mutation-tracking analogue of a Go []byte buffer.
type Bytes struct{ n *node }

func (b Bytes) rawNode() *node { return b.n }

// Len returns the buffer length.
func (b Bytes) Len() int { return len(b.n.buf) }

// Get returns the byte at index i.
func (b Bytes) Get(i int) byte { return b.n.buf[i] }

// Slice returns a copy of b.n.buf[i:j].
func (b Bytes) Slice(i, j int) []byte {
	out := make([]byte, j-i)
	copy(out, b.n.buf[i:j])
	return out
}

// Bytes returns a copy of the whole buffer.
func (b Bytes) Bytes() []byte {
	return b.Slice(0, len(b.n.buf))
}

// Set overwrites the byte at index i.
func (b Bytes) Set(i int, v byte) error {
	return b.n.mutate(func() error {
		if err := b.n.markDirty(); err != nil {
			return err
		}
		b.n.buf[i] = v
		return nil
	})
}

// SetSlice overwrites b.n.buf[i:j] with v, which may have a different length.
func (b Bytes) SetSlice(i, j int, v []byte) error {
	return b.n.mutate(func() error {
		if err := b.n.markDirty(); err != nil {
			return err
		}
		tail := append([]byte(nil), b.n.buf[j:]...)
		buf := append(b.n.buf[:i:i], v...)
		b.n.buf = append(buf, tail...)
		return nil
	})
}

// Append adds v to the end of the buffer.
func (b Bytes) Append(v []byte) error {
	return b.n.mutate(func() error {
		if err := b.n.markDirty(); err != nil {
			return err
		}
		b.n.buf = append(b.n.buf, v...)
		return nil
	})
}

// Truncate shrinks the buffer to length n.
func (b Bytes) Truncate(n int) error {
	return b.n.mutate(func() error {
		if err := b.n.markDirty(); err != nil {
			return err
		}
		b.n.buf = b.n.buf[:n]
		return nil
	})
}

// Clear empties the buffer.
func (b Bytes) Clear() error {
	return b.n.mutate(func() error {
		if err := b.n.markDirty(); err != nil {
			return err
		}
		b.n.buf = nil
		return nil
	})
}
