package tosc

// buildGraph converts the stored representation of one position (a *node
// or a leaf scalar) into its portable Graph form, for handing to a Codec.
func buildGraph(v any) Graph {
	n, ok := v.(*node)
	if !ok {
		return Graph{Kind: GraphScalar, Scalar: v}
	}
	switch n.kind {
	case kindSequence:
		items := make([]Graph, len(n.seq))
		for i, v := range n.seq {
			items[i] = buildGraph(v)
		}
		return Graph{Kind: GraphSequence, ID: n.id, Items: items}
	case kindMapping:
		pairs := make([]GraphPair, 0, len(n.mp))
		for k, v := range n.mp {
			pairs = append(pairs, GraphPair{Key: k, Value: buildGraph(v)})
		}
		return Graph{Kind: GraphMapping, ID: n.id, Pairs: pairs}
	case kindSet:
		vals := n.st.values()
		items := make([]Graph, len(vals))
		for i, v := range vals {
			items[i] = Graph{Kind: GraphScalar, Scalar: v}
		}
		return Graph{Kind: GraphSet, ID: n.id, Items: items}
	case kindBytes:
		return Graph{Kind: GraphBytes, ID: n.id, Bytes: append([]byte(nil), n.buf...)}
	case kindRecord:
		fields := make([]GraphField, 0, len(n.rec.order))
		for _, name := range n.rec.order {
			fields = append(fields, GraphField{Name: name, Value: buildGraph(n.rec.values[name])})
		}
		return Graph{Kind: GraphRecord, ID: n.id, Fields: fields}
	default:
		panic("tosc: unknown node kind")
	}
}
