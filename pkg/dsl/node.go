package dsl

import "github.com/aretw0/flowmanager/pkg/domain"

// Call builds a parameterized call: a single-key object naming a scope entry.
// A nil params map calls the entry with no arguments.
func Call(name string, params map[string]any) *domain.Object {
	if params == nil {
		return domain.NewObject(name, nil)
	}
	return domain.NewObject(name, params)
}

// Subflow groups nodes into a child run.
func Subflow(nodes ...any) []any {
	return unwrapAll(nodes)
}

// Loop builds [[controller, actions...]]. The controller ends the loop by
// returning the "exit" edge.
func Loop(controller any, actions ...any) []any {
	body := make([]any, 0, len(actions)+1)
	body = append(body, unwrap(controller))
	body = append(body, unwrapAll(actions)...)
	return []any{body}
}

// BranchBuilder builds a branch map whose arms keep their declaration order.
type BranchBuilder struct {
	obj *domain.Object
}

// Branch starts a branch map.
func Branch() *BranchBuilder {
	return &BranchBuilder{obj: domain.NewObject()}
}

// When adds an arm that runs nodes when the previous step produced edge.
func (b *BranchBuilder) When(edge string, nodes ...any) *BranchBuilder {
	b.obj.Set(edge, unwrapAll(nodes))
	return b
}

// Build returns the branch map.
func (b *BranchBuilder) Build() *domain.Object {
	return b.obj
}
