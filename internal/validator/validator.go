package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowmanager/internal/compiler"
	"github.com/aretw0/flowmanager/pkg/domain"
)

// Issue is a node that would produce an error output at run time.
type Issue struct {
	Path string
	Err  error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %v", i.Path, i.Err)
}

// Inspect walks a node list, including branch arms, subflows and loop bodies,
// and reports every unresolved reference and unsupported node.
func Inspect(nodes []any, scope compiler.Scope) []Issue {
	c := compiler.New(scope)
	var issues []Issue

	type item struct {
		path string
		raw  any
	}
	queue := make([]item, 0, len(nodes))
	for i, raw := range nodes {
		queue = append(queue, item{path: fmt.Sprintf("nodes[%d]", i), raw: raw})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := c.Compile(current.raw)
		if node.Err != nil {
			issues = append(issues, Issue{Path: current.path, Err: node.Err})
			continue
		}

		switch node.Kind {
		case domain.KindBranch:
			for _, b := range node.Branches {
				for j, child := range b.Nodes {
					queue = append(queue, item{path: fmt.Sprintf("%s.%s[%d]", current.path, b.Edge, j), raw: child})
				}
			}
		case domain.KindSubflow:
			for j, child := range node.Children {
				queue = append(queue, item{path: fmt.Sprintf("%s[%d]", current.path, j), raw: child})
			}
		case domain.KindLoop:
			for j, child := range node.Children {
				queue = append(queue, item{path: fmt.Sprintf("%s[0][%d]", current.path, j), raw: child})
			}
		}
	}
	return issues
}

// Validate returns an error listing every issue found by Inspect, or nil.
func Validate(nodes []any, scope compiler.Scope) error {
	issues := Inspect(nodes, scope)
	if len(issues) == 0 {
		return nil
	}
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = "- " + issue.String()
	}
	return fmt.Errorf("flow has %d invalid node(s):\n%s", len(issues), strings.Join(lines, "\n"))
}
