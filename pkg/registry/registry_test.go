package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any) domain.NodeFunc {
	return func(context.Context, domain.FlowContext, map[string]any) (any, error) {
		return v, nil
	}
}

func TestRegistry_LookupByIDAndName(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(registry.Entry{ID: "n1", Name: "greet", Implementation: constant("hi")}))

	for _, ref := range []string{"n1", "greet", "n1:greet"} {
		e, ok := r.Lookup(ref)
		require.True(t, ok, ref)
		assert.Equal(t, "greet", e.Name)
	}

	_, ok := r.Lookup("n1:other")
	assert.False(t, ok)
	_, ok = r.Lookup("")
	assert.False(t, ok)
}

func TestRegistry_IDBeforeNameWithoutExactKey(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(registry.Entry{ID: "x", Name: "first", Implementation: constant(1)}))
	require.NoError(t, r.Register(registry.Entry{ID: "second", Name: "x", Implementation: constant(2)}))

	out, err := r.Execute(context.Background(), "x", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out)
}

func TestRegistry_ExactKeyWinsOverComposite(t *testing.T) {
	tests := []struct {
		name  string
		plain string
		other string
	}{
		{name: "same id", plain: "foo", other: "foo:bar"},
		{name: "same name", plain: "bar", other: "x:bar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, plainFirst := range []bool{true, false} {
				r := registry.New()
				if plainFirst {
					require.NoError(t, r.Add(tt.plain, constant("plain")))
					require.NoError(t, r.Add(tt.other, constant("composite")))
				} else {
					require.NoError(t, r.Add(tt.other, constant("composite")))
					require.NoError(t, r.Add(tt.plain, constant("plain")))
				}

				out, err := r.Execute(context.Background(), tt.plain, nil, nil)
				require.NoError(t, err)
				assert.Equal(t, "plain", out, "plain registered first: %v", plainFirst)

				out, err = r.Execute(context.Background(), tt.other, nil, nil)
				require.NoError(t, err)
				assert.Equal(t, "composite", out)
			}
		})
	}
}

func TestRegistry_AddCompositeKey(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Add("abc:sum", func(context.Context, domain.FlowContext, map[string]any) (any, error) {
		return 3, nil
	}))

	e, ok := r.Lookup("sum")
	require.True(t, ok)
	assert.Equal(t, "abc", e.ID)

	_, ok = r.Lookup("abc")
	assert.True(t, ok)
}

func TestRegistry_AddEntry(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Add("log", registry.Entry{Description: "logs", Implementation: constant(nil)}))

	e, ok := r.Lookup("log")
	require.True(t, ok)
	assert.Equal(t, "logs", e.Description)
	assert.Equal(t, domain.KindReference, e.Descriptor().Kind)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := registry.New()
	assert.ErrorIs(t, r.Add("n", 42), domain.ErrInvalidNode)
	assert.ErrorIs(t, r.Register(registry.Entry{Name: "n"}), domain.ErrInvalidNode)
	assert.ErrorIs(t, r.Register(registry.Entry{Implementation: constant(1)}), domain.ErrInvalidNode)
}

func TestRegistry_ExecuteUnknown(t *testing.T) {
	r := registry.New()
	_, err := r.Execute(context.Background(), "ghost", nil, nil)
	assert.ErrorIs(t, err, domain.ErrUnresolvedReference)
}

func TestRegistry_Entries(t *testing.T) {
	r := registry.New()
	r.RegisterFunc("b", constant(1))
	r.RegisterFunc("a", constant(2))
	require.NoError(t, r.Register(registry.Entry{ID: "id", Name: "c", Implementation: constant(3)}))

	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, "id", entries[2].ID)
}
