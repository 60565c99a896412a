package cli

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalContext_Stop(t *testing.T) {
	sc := NewSignalContext(context.Background())
	sc.Stop()

	<-sc.Done()
	assert.Nil(t, sc.Signal())
	assert.Equal(t, context.Canceled, sc.Interrupted(context.Canceled), "no signal, error unchanged")
	assert.NoError(t, sc.Interrupted(nil))
}

func TestSignalContext_Interrupted(t *testing.T) {
	sc := NewSignalContext(context.Background())
	defer sc.Stop()
	sc.sig.Store(syscall.SIGTERM)

	err := sc.Interrupted(errors.Join(errors.New("flow failed"), context.Canceled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorContains(t, err, "interrupted by terminated")

	other := errors.New("boom")
	assert.Equal(t, other, sc.Interrupted(other))
}
