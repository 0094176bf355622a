package tosc

import "testing"

func TestScalarEqualBytesVsScalar(t *testing.T) {
	if scalarEqual([]byte("a"), int64(1)) {
		t.Errorf("** []byte and int64 should never compare equal")
	}
	if !scalarEqual([]byte("ab"), []byte("ab")) {
		t.Errorf("** equal byte slices should compare equal")
	}
	if scalarEqual([]byte("ab"), []byte("ac")) {
		t.Errorf("** distinct byte slices should not compare equal")
	}
	if !scalarEqual(int64(5), int64(5)) {
		t.Errorf("** equal scalars should compare equal")
	}
}

func TestScalarHashDistinguishesTypes(t *testing.T) {
	// int64(0) and float64(0) and "" and false must not collide, since
	// scalarHash is type-tagged across distinct leaf types.
	hashes := map[uint64]bool{}
	for _, v := range []any{int64(0), float64(0), "", false, nil, []byte{}} {
		h := scalarHash(v)
		if hashes[h] {
			t.Errorf("** hash collision across distinct scalar types for %#v", v)
		}
		hashes[h] = true
	}
}
