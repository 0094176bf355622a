package tosc

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// scalarHash computes a stable hash for any codec-representable leaf value,
// including []byte (not natively comparable in a Go map), by hashing a
// canonical tagged byte encoding. Used by the Set wrapper to keep
// membership tests O(1) instead of the linear scan a plain []any would
// force on non-comparable element types.
func scalarHash(v any) uint64 {
	var buf [9]byte
	switch x := v.(type) {
	case nil:
		buf[0] = 0
		return xxhash.Sum64(buf[:1])
	case bool:
		buf[0] = 1
		if x {
			buf[1] = 1
		}
		return xxhash.Sum64(buf[:2])
	case int64:
		buf[0] = 2
		binary.BigEndian.PutUint64(buf[1:], uint64(x))
		return xxhash.Sum64(buf[:])
	case float64:
		buf[0] = 3
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(x))
		return xxhash.Sum64(buf[:])
	case string:
		h := xxhash.New()
		h.Write([]byte{4})
		h.WriteString(x)
		return h.Sum64()
	case []byte:
		h := xxhash.New()
		h.Write([]byte{5})
		h.Write(x)
		return h.Sum64()
	default:
		panic("tosc: unsupported set element type")
	}
}

func scalarEqual(a, b any) bool {
	ab, aIsBytes := a.([]byte)
	bb, bIsBytes := b.([]byte)
	if aIsBytes || bIsBytes {
		return aIsBytes && bIsBytes && bytes.Equal(ab, bb)
	}
	return a == b
}
