package state

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidPath is returned by Set for a path that cannot address a value.
var ErrInvalidPath = errors.New("invalid state path")

// Manager is a versioned key-path store with undo/redo history.
// Every read and write crosses a copy boundary, so callers never share
// references with the live tree or with history snapshots.
//
// A Manager is owned by a single evaluator and is not safe for concurrent use.
type Manager struct {
	current      map[string]any
	history      []map[string]any
	historyIndex int
}

// NewManager creates a Manager seeded with a copy of initial.
// The seed becomes history entry 0.
func NewManager(initial map[string]any) (*Manager, error) {
	seed, err := CloneMap(initial)
	if err != nil {
		return nil, fmt.Errorf("invalid initial state: %w", err)
	}
	m := &Manager{current: seed}
	m.history = []map[string]any{mustCopy(seed)}
	return m, nil
}

// Get returns a copy of the value at the dotted path, or nil when any segment
// is missing or empty.
func (m *Manager) Get(path string) any {
	segments := Split(path)
	if len(segments) == 0 {
		return nil
	}
	v, ok := Lookup(m.current, segments)
	if !ok {
		return nil
	}
	return CloneLoose(v)
}

// Set stores a copy of value at path. An empty path replaces the whole tree,
// in which case value must be a map (or nil, which clears the state).
// Intermediate objects are created as needed; lists grow to fit an index.
func (m *Manager) Set(path string, value any) error {
	copied, err := Clone(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}

	if path == "" {
		switch root := copied.(type) {
		case nil:
			m.current = map[string]any{}
		case map[string]any:
			m.current = root
		default:
			return fmt.Errorf("set root: %w: state root must be an object, got %T", ErrNotSerializable, copied)
		}
		m.record()
		return nil
	}

	segments := Split(path)
	for _, seg := range segments {
		if seg == "" {
			return fmt.Errorf("set %q: %w: empty segment", path, ErrInvalidPath)
		}
	}
	if err := assign(m.current, segments, copied); err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	m.record()
	return nil
}

// assign writes value at segments below root. Missing or scalar
// intermediates become maps; existing lists are indexed and grown, never replaced.
func assign(root map[string]any, segments []string, value any) error {
	_, err := assignInto(root, segments, value)
	return err
}

func assignInto(container any, segments []string, value any) (any, error) {
	seg, rest := segments[0], segments[1:]
	switch node := container.(type) {
	case map[string]any:
		if len(rest) == 0 {
			node[seg] = value
			return node, nil
		}
		child, err := assignInto(node[seg], rest, value)
		if err != nil {
			return nil, err
		}
		node[seg] = child
		return node, nil
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: %q does not index a list", ErrInvalidPath, seg)
		}
		for len(node) <= idx {
			node = append(node, nil)
		}
		if len(rest) == 0 {
			node[idx] = value
			return node, nil
		}
		child, err := assignInto(node[idx], rest, value)
		if err != nil {
			return nil, err
		}
		node[idx] = child
		return node, nil
	default:
		return assignInto(map[string]any{}, segments, value)
	}
}

func (m *Manager) record() {
	if m.historyIndex < len(m.history)-1 {
		m.history = m.history[:m.historyIndex+1]
	}
	m.history = append(m.history, mustCopy(m.current))
	m.historyIndex = len(m.history) - 1
}

// GetState returns a copy of the whole tree.
func (m *Manager) GetState() map[string]any {
	return mustCopy(m.current)
}

// Undo steps back one history entry. It returns false when already at the oldest entry.
func (m *Manager) Undo() bool {
	if !m.CanUndo() {
		return false
	}
	m.historyIndex--
	m.current = mustCopy(m.history[m.historyIndex])
	return true
}

// Redo steps forward one history entry. It returns false when there is nothing to redo.
func (m *Manager) Redo() bool {
	if !m.CanRedo() {
		return false
	}
	m.historyIndex++
	m.current = mustCopy(m.history[m.historyIndex])
	return true
}

// GoToState jumps to history entry i. Out-of-range indices are ignored.
func (m *Manager) GoToState(i int) bool {
	if i < 0 || i >= len(m.history) {
		return false
	}
	m.historyIndex = i
	m.current = mustCopy(m.history[i])
	return true
}

func (m *Manager) CanUndo() bool { return m.historyIndex > 0 }

func (m *Manager) CanRedo() bool { return m.historyIndex < len(m.history)-1 }

// HistoryIndex returns the position of the live state in History.
func (m *Manager) HistoryIndex() int { return m.historyIndex }

// History returns copies of every recorded snapshot, oldest first.
func (m *Manager) History() []map[string]any {
	out := make([]map[string]any, len(m.history))
	for i, snap := range m.history {
		out[i] = mustCopy(snap)
	}
	return out
}

// mustCopy copies a tree that is already known to be serializable.
func mustCopy(tree map[string]any) map[string]any {
	out, _ := CloneLoose(tree).(map[string]any)
	if out == nil {
		return map[string]any{}
	}
	return out
}
