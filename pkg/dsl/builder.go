package dsl

// Builder accumulates a top-level node list.
type Builder struct {
	nodes []any
}

// New creates an empty node list builder.
func New() *Builder {
	return &Builder{}
}

// Then appends one node. BranchBuilders are built automatically.
func (b *Builder) Then(node any) *Builder {
	b.nodes = append(b.nodes, unwrap(node))
	return b
}

// ThenAll appends several nodes in order.
func (b *Builder) ThenAll(nodes ...any) *Builder {
	for _, n := range nodes {
		b.Then(n)
	}
	return b
}

// Len returns the number of nodes added so far.
func (b *Builder) Len() int {
	return len(b.nodes)
}

// Build returns a copy of the node list.
func (b *Builder) Build() []any {
	return append([]any{}, b.nodes...)
}

func unwrap(node any) any {
	if bb, ok := node.(*BranchBuilder); ok {
		return bb.Build()
	}
	return node
}

func unwrapAll(nodes []any) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = unwrap(n)
	}
	return out
}
