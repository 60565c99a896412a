package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/flowmanager/pkg/adapters/memory"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("run-%d", i)
		_ = mgr.Save(ctx, domain.NewSnapshot(id))
		_ = mgr.Delete(ctx, id)
	}

	assert.Empty(t, mgr.locks, "lock entries must be released once unused")
}
