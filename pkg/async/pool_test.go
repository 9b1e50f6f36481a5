package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"HobbyChat/config"
	"HobbyChat/pkg/ctxmeta"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSafeWithoutPoolFallsBackToGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	parent, cancel := context.WithCancel(ctxmeta.WithTraceID(context.Background(), "t1"))
	cancel()

	var gotTrace string
	var gotErr error
	RunSafe(parent, func(ctx context.Context) {
		defer wg.Done()
		gotTrace = ctxmeta.TraceID(ctx)
		gotErr = ctx.Err()
	}, time.Second)

	wg.Wait()
	assert.Equal(t, "t1", gotTrace)
	assert.NoError(t, gotErr)
}

func TestRunSafeRecoversPanic(t *testing.T) {
	require.NoError(t, Init(config.DefaultAsyncConfig()))
	defer func() { _ = Release() }()

	done := make(chan struct{})
	RunSafe(context.Background(), func(context.Context) {
		defer close(done)
		panic("boom")
	}, time.Second)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestSubmitBeforeInit(t *testing.T) {
	assert.ErrorIs(t, Submit(func() {}), ErrNotInitialized)
}
