package tosc

import "github.com/vmihailenco/msgpack/v5"

// GraphKind tags the shape of one Graph node: one of the five container
// kinds plus the scalar leaf case.
type GraphKind uint8

const (
	GraphScalar GraphKind = iota
	GraphSequence
	GraphMapping
	GraphSet
	GraphBytes
	GraphRecord
)

// Graph is the portable, codec-facing representation of one position in the
// value graph. It is the boundary a Codec implementation actually speaks,
// keeping the internal node/wrapper machinery opaque to codecs.
type Graph struct {
	Kind GraphKind
	// ID is the stable node identity carried across encode/decode round
	// trips for every non-scalar kind, letting Manager.Refresh recognize
	// a position as "the same container, new contents" and reuse the live
	// node in place rather than allocate a fresh one. Zero for GraphScalar,
	// and treated as "no match" if zero on decode.
	ID     uint64
	Scalar any // valid when Kind == GraphScalar: nil, bool, int64, float64 or string; []byte only as a Set member
	Items  []Graph
	Pairs  []GraphPair
	Fields []GraphField
	Bytes  []byte
}

type GraphPair struct {
	Key   any
	Value Graph
}

type GraphField struct {
	Name  string
	Value Graph
}

// Codec encodes and decodes a Graph to and from an opaque byte blob. The
// engine never inspects blob contents itself; only Codec implementations
// and Backend implementations ever see them.
type Codec interface {
	Encode(g Graph) ([]byte, error)
	Decode(blob []byte) (Graph, error)
}

// MsgpackCodec is the reference Codec, built on
// github.com/vmihailenco/msgpack/v5. It round-trips every supported variant
// losslessly; byte-identical re-encoding is not guaranteed or required.
type MsgpackCodec struct{}

var _ Codec = MsgpackCodec{}

func (MsgpackCodec) Encode(g Graph) ([]byte, error) {
	data, err := msgpack.Marshal(&g)
	if err != nil {
		return nil, codecErrf(nil, 0, err, "encoding graph")
	}
	return data, nil
}

func (MsgpackCodec) Decode(blob []byte) (Graph, error) {
	var g Graph
	if err := msgpack.Unmarshal(blob, &g); err != nil {
		return Graph{}, codecErrf(blob, 0, err, "decoding graph")
	}
	return g, nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (g *Graph) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeUint8(uint8(g.Kind)); err != nil {
		return err
	}
	switch g.Kind {
	case GraphScalar:
		return enc.Encode(g.Scalar)
	case GraphSequence:
		if err := enc.EncodeUint64(g.ID); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(g.Items)); err != nil {
			return err
		}
		for i := range g.Items {
			if err := g.Items[i].EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case GraphMapping:
		if err := enc.EncodeUint64(g.ID); err != nil {
			return err
		}
		if err := enc.EncodeMapLen(len(g.Pairs)); err != nil {
			return err
		}
		for i := range g.Pairs {
			if err := enc.Encode(g.Pairs[i].Key); err != nil {
				return err
			}
			if err := g.Pairs[i].Value.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case GraphSet:
		if err := enc.EncodeUint64(g.ID); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(g.Items)); err != nil {
			return err
		}
		for i := range g.Items {
			if err := enc.Encode(g.Items[i].Scalar); err != nil {
				return err
			}
		}
		return nil
	case GraphBytes:
		if err := enc.EncodeUint64(g.ID); err != nil {
			return err
		}
		return enc.EncodeBytes(g.Bytes)
	case GraphRecord:
		if err := enc.EncodeUint64(g.ID); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(g.Fields)); err != nil {
			return err
		}
		for i := range g.Fields {
			if err := enc.EncodeString(g.Fields[i].Name); err != nil {
				return err
			}
			if err := g.Fields[i].Value.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	default:
		return codecErrf(nil, 0, nil, "unknown graph kind %d", g.Kind)
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (g *Graph) DecodeMsgpack(dec *msgpack.Decoder) error {
	kindByte, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	g.Kind = GraphKind(kindByte)
	switch g.Kind {
	case GraphScalar:
		v, err := dec.DecodeInterface()
		if err != nil {
			return err
		}
		scalar, ok := normalizeScalar(v)
		if !ok {
			return codecErrf(nil, 0, nil, "unsupported decoded scalar type %T", v)
		}
		g.Scalar = scalar
		return nil
	case GraphSequence:
		id, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		g.ID = id
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		g.Items = make([]Graph, n)
		for i := 0; i < n; i++ {
			if err := g.Items[i].DecodeMsgpack(dec); err != nil {
				return err
			}
		}
		return nil
	case GraphMapping:
		id, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		g.ID = id
		n, err := dec.DecodeMapLen()
		if err != nil {
			return err
		}
		g.Pairs = make([]GraphPair, n)
		for i := 0; i < n; i++ {
			key, err := dec.DecodeInterface()
			if err != nil {
				return err
			}
			key, ok := normalizeScalar(key)
			if !ok {
				return codecErrf(nil, 0, nil, "unsupported decoded map key")
			}
			g.Pairs[i].Key = key
			if err := g.Pairs[i].Value.DecodeMsgpack(dec); err != nil {
				return err
			}
		}
		return nil
	case GraphSet:
		id, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		g.ID = id
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		g.Items = make([]Graph, n)
		for i := 0; i < n; i++ {
			v, err := dec.DecodeInterface()
			if err != nil {
				return err
			}
			scalar, ok := normalizeScalar(v)
			if !ok {
				return codecErrf(nil, 0, nil, "unsupported set element type")
			}
			g.Items[i] = Graph{Kind: GraphScalar, Scalar: scalar}
		}
		return nil
	case GraphBytes:
		id, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		g.ID = id
		b, err := dec.DecodeBytes()
		if err != nil {
			return err
		}
		g.Bytes = b
		return nil
	case GraphRecord:
		id, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		g.ID = id
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		g.Fields = make([]GraphField, n)
		for i := 0; i < n; i++ {
			name, err := dec.DecodeString()
			if err != nil {
				return err
			}
			g.Fields[i].Name = name
			if err := g.Fields[i].Value.DecodeMsgpack(dec); err != nil {
				return err
			}
		}
		return nil
	default:
		return codecErrf(nil, 0, nil, "unknown graph kind %d", g.Kind)
	}
}
