package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/flowmanager/pkg/adapters/memory"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlying)
	ctx := context.Background()

	snap := domain.NewSnapshot("pii-run")
	snap.State["username"] = "jdoe"
	snap.State["user_password"] = "secret123"
	snap.State["details"] = map[string]any{
		"address":    "123 St",
		"ssn_number": "999-99-9999",
	}
	snap.State["contacts"] = []any{map[string]any{"ssn": "111"}}

	require.NoError(t, secure.Save(ctx, snap))
	assert.Equal(t, "secret123", snap.State["user_password"], "caller snapshot must stay intact")

	stored, err := underlying.Load(ctx, "pii-run")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.State["username"])
	assert.Equal(t, middleware.Mask, stored.State["user_password"])
	assert.Equal(t, middleware.Mask, stored.State["details"].(map[string]any)["ssn_number"])
	assert.Equal(t, "123 St", stored.State["details"].(map[string]any)["address"])
	assert.Equal(t, middleware.Mask, stored.State["contacts"].([]any)[0].(map[string]any)["ssn"])
}

func TestChain_OrdersOutermostFirst(t *testing.T) {
	underlying := memory.NewStore()
	key := make([]byte, 32)
	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"token"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)
	ctx := context.Background()

	snap := domain.NewSnapshot("chained")
	snap.State["token"] = "abc"
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx, "chained")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.State["token"], "masking happens before sealing")
}
