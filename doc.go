/*
Package tosc implements transparently-distributed in-memory containers.

A Manager wraps a value graph (nested sequences, mappings, sets, byte
buffers and records) in mutation-tracking Wrapper types. A participant
reads the graph, mutates it with ordinary Go container calls, and commits
inside a Transaction; the commit is an optimistic compare-and-swap against
a pluggable Backend. A competing commit from another participant surfaces
as ErrConflict, which the Retry helper can transparently retry.

# Technical Details

**Cell.** The unit of storage exposed by a Backend: a (version, blob) pair.
Versions are compared for inequality only. A Backend is not required to
hand out monotonically increasing versions (see backend.go).

**Wrappers.** Each node of the value graph (List, Map, Set, Bytes, Record)
is a distinct Go type with hand-written forwarding methods rather than a
reflection-based proxy. Every node carries a link to its parent and the
key/index it occupies there, so a mutation at any depth can mark its
ancestors dirty up to the root in O(depth), and so a commit can re-encode
the whole tree starting from that root.

**Detachment.** Removing a child from a linked container clears its link
and marks it and its entire subtree detached; further mutation on a
detached wrapper fails with ErrDetachedMutation rather than silently
being dropped.

**Watcher.** Each Manager runs one background goroutine that blocks in
Backend.WaitForChange and refreshes the cached tree when no transaction is
open, so other participants' commits become visible without an explicit
Refresh call.
*/
package tosc
