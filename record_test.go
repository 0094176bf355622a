package tosc

import (
	"context"
	"testing"
)

type person struct {
	Name string `msgpack:"name"`
	Age  int64  `msgpack:"age"`
}

func TestRecordViaNewRecord(t *testing.T) {
	mgr := setupManager(t)
	ensureNoErr(t, mgr.Write(context.Background(), NewRecord(map[string]any{"name": "ada", "age": int64(30)})))

	root, err := mgr.Read(context.Background())
	ensureNoErr(t, err)
	r := root.(Record)

	name, ok := r.Get("name")
	if !ok || name != "ada" {
		t.Fatalf("** got (%v, %v), wanted (ada, true)", name, ok)
	}

	ensureNoErr(t, r.Set("age", int64(31)))
	age, _ := r.Get("age")
	deepEqual(t, age, int64(31))

	removed, err := r.Delete("age")
	ensureNoErr(t, err)
	if !removed {
		t.Errorf("** expected age field to be removed")
	}
	if _, ok := r.Get("age"); ok {
		t.Errorf("** expected age field to be gone")
	}
}

func TestRecordFromStructFields(t *testing.T) {
	mgr := setupManager(t)
	fm, err := StructFields(&person{Name: "grace", Age: 40})
	ensureNoErr(t, err)

	ensureNoErr(t, mgr.Write(context.Background(), fm))
	root, err := mgr.Read(context.Background())
	ensureNoErr(t, err)
	r := root.(Record)

	name, _ := r.Get("name")
	deepEqual(t, name, "grace")

	var out person
	ensureNoErr(t, r.As(&out))
	deepEqual(t, out, person{Name: "grace", Age: 40})
}

func TestRecordAsAfterMutation(t *testing.T) {
	mgr := setupManager(t)
	fm, err := StructFields(&person{Name: "ada", Age: 30})
	ensureNoErr(t, err)
	ensureNoErr(t, mgr.Write(context.Background(), fm))

	root, err := mgr.Read(context.Background())
	ensureNoErr(t, err)
	r := root.(Record)
	ensureNoErr(t, r.Set("age", int64(31)))

	var out person
	ensureNoErr(t, r.As(&out))
	deepEqual(t, out, person{Name: "ada", Age: 31})
}
