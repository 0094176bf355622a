package tosc

import "github.com/vmihailenco/msgpack/v5"

// FieldMapper is the opt-in interface a host type implements to be adopted
// as a Record.
type FieldMapper interface {
	// Fields returns the record's field names in a stable order.
	Fields() []string
	// FieldGet returns the current value of the named field.
	FieldGet(name string) any
	// FieldSet assigns a new value to the named field.
	FieldSet(name string, v any)
}

// mapFields is the FieldMapper used by NewRecord for a plain field table.
type mapFields struct {
	order []string
	m     map[string]any
}

// NewRecord builds a FieldMapper over a plain map, suitable for passing to
// any mutating wrapper method that adopts a value (e.g. List.Append,
// Map.Set). Field order is Go's map iteration order at the time NewRecord
// runs, and is fixed from then on.
func NewRecord(fields map[string]any) FieldMapper {
	mf := &mapFields{m: make(map[string]any, len(fields))}
	for k, v := range fields {
		mf.order = append(mf.order, k)
		mf.m[k] = v
	}
	return mf
}

func (mf *mapFields) Fields() []string        { return mf.order }
func (mf *mapFields) FieldGet(name string) any { return mf.m[name] }
func (mf *mapFields) FieldSet(name string, v any) {
	if _, ok := mf.m[name]; !ok {
		mf.order = append(mf.order, name)
	}
	mf.m[name] = v
}

// structFields is a FieldMapper backed by an arbitrary msgpack-tagged Go
// struct, round-tripped through msgpack.MapSlice so that field order
// follows struct-declaration order.
type structFields struct {
	order []string
	m     map[string]any
}

// StructFields reflects an msgpack-tagged struct (or pointer to one) into a
// FieldMapper, so ordinary Go structs can be adopted as Records without
// hand-writing FieldMapper.
func StructFields(v any) (FieldMapper, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, codecErrf(nil, 0, err, "reflecting struct fields")
	}
	var ms msgpack.MapSlice
	if err := msgpack.Unmarshal(data, &ms); err != nil {
		return nil, codecErrf(data, 0, err, "reflecting struct fields")
	}
	sf := &structFields{m: make(map[string]any, len(ms))}
	for _, e := range ms {
		name, _ := e.Key.(string)
		sf.order = append(sf.order, name)
		sf.m[name] = e.Value
	}
	return sf, nil
}

func (sf *structFields) Fields() []string        { return sf.order }
func (sf *structFields) FieldGet(name string) any { return sf.m[name] }
func (sf *structFields) FieldSet(name string, v any) {
	if _, ok := sf.m[name]; !ok {
		sf.order = append(sf.order, name)
	}
	sf.m[name] = v
}

// Record is a distributed mutation-tracking analogue of a named-field
// struct, backed by an ordered field table.
type Record struct{ n *node }

func (r Record) rawNode() *node { return r.n }

// Fields returns the record's field names in stored order: the order the
// adopted FieldMapper reported, followed by fields later added with Set.
func (r Record) Fields() []string {
	return append([]string(nil), r.n.rec.order...)
}

// Get returns the value of the named field, and whether it exists.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.n.rec.values[name]
	if !ok {
		return nil, false
	}
	return wrapValue(v), true
}

// Set assigns value to the named field, adopting it as a child wrapper if
// it is itself a container. Attribute replacement with a container causes
// the new value to be wrapped and linked.
func (r Record) Set(name string, value any) error {
	return r.n.mutate(func() error {
		if err := r.n.markDirty(); err != nil {
			return err
		}
		if old, ok := r.n.rec.values[name]; ok {
			if c, ok := old.(*node); ok {
				c.detach()
			}
		} else {
			r.n.rec.order = append(r.n.rec.order, name)
		}
		stored, err := adoptValue(r.n.mgr, r.n, name, value)
		if err != nil {
			return err
		}
		r.n.rec.values[name] = stored
		return nil
	})
}

// Delete removes the named field, detaching its value if it was a child
// wrapper. Reports whether the field existed.
func (r Record) Delete(name string) (bool, error) {
	var existed bool
	err := r.n.mutate(func() error {
		if err := r.n.markDirty(); err != nil {
			return err
		}
		old, ok := r.n.rec.values[name]
		if !ok {
			return nil
		}
		existed = true
		if c, ok := old.(*node); ok {
			c.detach()
		}
		delete(r.n.rec.values, name)
		for i, n := range r.n.rec.order {
			if n == name {
				r.n.rec.order = append(r.n.rec.order[:i], r.n.rec.order[i+1:]...)
				break
			}
		}
		return nil
	})
	return existed, err
}

// As reflects the record's current field values into out, which must be a
// pointer to an msgpack-tagged struct. Child wrappers are resolved to
// their plain snapshot form first.
func (r Record) As(out any) error {
	ms := make(msgpack.MapSlice, 0, len(r.n.rec.order))
	for _, name := range r.n.rec.order {
		ms = append(ms, msgpack.MapItem{Key: name, Value: snapshotValue(r.n.rec.values[name])})
	}
	data, err := msgpack.Marshal(ms)
	if err != nil {
		return codecErrf(nil, 0, err, "encoding record snapshot")
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return codecErrf(data, 0, err, "decoding record into %T", out)
	}
	return nil
}
