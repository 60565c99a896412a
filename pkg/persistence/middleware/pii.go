package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/ports"
	"github.com/aretw0/flowmanager/pkg/state"
)

// Mask replaces values of sensitive keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks state values whose keys
// match any of the patterns. The caller's snapshot is never modified.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	masked := *snapshot
	masked.State, _ = state.CloneLoose(snapshot.State).(map[string]any)
	maskValue(masked.State, m.patterns)

	return m.next.Save(ctx, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, flowInstanceID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, flowInstanceID)
}

func (m *piiMiddleware) Delete(ctx context.Context, flowInstanceID string) error {
	return m.next.Delete(ctx, flowInstanceID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskValue(v any, patterns []*regexp.Regexp) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if matchesAny(k, patterns) {
				t[k] = Mask
				continue
			}
			maskValue(child, patterns)
		}
	case []any:
		for _, child := range t {
			maskValue(child, patterns)
		}
	}
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
