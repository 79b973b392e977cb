package generator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/igen-gallery/pkg/domain"
	"github.com/shouni/igen-gallery/pkg/gallery"
	"github.com/shouni/igen-gallery/pkg/store"
)

func newTestOrchestrator(t *testing.T, p Provider) (*Orchestrator, *gallery.Cache, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	cache, err := gallery.NewCache(context.Background(), st)
	require.NoError(t, err)
	o, err := NewOrchestrator(p, cache, WithDimensions(600, 400))
	require.NoError(t, err)
	return o, cache, st
}

func TestOrchestrator_SuccessAppendsRecord(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{url: "https://x/1.png"}
	o, cache, _ := newTestOrchestrator(t, p)

	state, err := o.Generate(ctx, "a red fox")
	require.NoError(t, err)

	want := domain.Collection{{ImageURL: "https://x/1.png", Prompt: "a red fox"}}
	assert.Equal(t, domain.StatusSucceeded, state.Status)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)
	assert.Equal(t, want, cache.All())
	assert.Equal(t, want, state.Collection)
	require.NotNil(t, state.LastResult)
	assert.Equal(t, want[0], *state.LastResult)

	assert.Equal(t, 600, p.lastReq.Width)
	assert.Equal(t, 400, p.lastReq.Height)
	assert.Equal(t, "a red fox", p.lastReq.Prompt)
}

func TestOrchestrator_TransportFailureLeavesGallery(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{url: "https://x/1.png"}
	o, cache, _ := newTestOrchestrator(t, p)
	_, err := o.Generate(ctx, "first")
	require.NoError(t, err)
	before := cache.All()

	p.err = fmt.Errorf("%w: connection refused", domain.ErrNetwork)
	p.url = ""
	state, err := o.Generate(ctx, "second")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, state.Status)
	assert.False(t, state.IsLoading)
	assert.Contains(t, state.Error, "Could not reach")
	assert.Equal(t, before, cache.All())
	// 直前の成功結果は保持される
	require.NotNil(t, state.LastResult)
	assert.Equal(t, "first", state.LastResult.Prompt)
}

func TestOrchestrator_ProviderErrorStatus(t *testing.T) {
	p := &mockProvider{err: &domain.ProviderError{StatusCode: 503}}
	o, cache, _ := newTestOrchestrator(t, p)

	state, err := o.Generate(context.Background(), "a red fox")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, state.Status)
	assert.Contains(t, state.Error, "503")
	assert.Empty(t, cache.All())
}

func TestOrchestrator_MalformedResponseUsesPlaceholder(t *testing.T) {
	p := &mockProvider{
		url: PlaceholderImageURL,
		err: fmt.Errorf("%w: generated_image is missing", domain.ErrMalformedResponse),
	}
	o, cache, _ := newTestOrchestrator(t, p)

	state, err := o.Generate(context.Background(), "a red fox")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSucceeded, state.Status)
	assert.NotEmpty(t, state.Warning)
	require.Len(t, cache.All(), 1)
	assert.Equal(t, PlaceholderImageURL, cache.All()[0].ImageURL)
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{
		url:     "https://x/1.png",
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	o, cache, _ := newTestOrchestrator(t, p)

	require.NoError(t, o.Submit(ctx, "first"))
	<-p.started

	assert.Equal(t, domain.StatusLoading, o.State().Status)
	assert.True(t, o.State().IsLoading)

	err := o.Submit(ctx, "second")
	assert.ErrorIs(t, err, domain.ErrRequestInFlight)
	assert.ErrorIs(t, o.Acknowledge(), domain.ErrRequestInFlight)

	close(p.release)
	state, err := o.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, int32(1), p.maxSeen.Load())
	assert.Equal(t, domain.StatusSucceeded, state.Status)
	assert.Equal(t, []string{"first"}, []string{cache.All()[0].Prompt})
}

func TestOrchestrator_StorageFailureIsWarning(t *testing.T) {
	p := &mockProvider{url: "https://x/1.png"}
	o, cache, st := newTestOrchestrator(t, p)
	st.FailSave = errors.New("quota exceeded")

	state, err := o.Generate(context.Background(), "a red fox")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSucceeded, state.Status)
	assert.Contains(t, state.Warning, "quota exceeded")
	assert.Len(t, cache.All(), 1)
}

func TestOrchestrator_CancelDoesNotAbortProviderCall(t *testing.T) {
	p := &mockProvider{
		url:     "https://x/1.png",
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	o, cache, _ := newTestOrchestrator(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, o.Submit(ctx, "a red fox"))
	<-p.started
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer waitCancel()
	_, err := o.Wait(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(p.release)
	state, err := o.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, state.Status)
	assert.Len(t, cache.All(), 1)
}

func TestOrchestrator_Lifecycle(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{url: "https://x/1.png"}
	o, _, _ := newTestOrchestrator(t, p)

	t.Run("初期状態は Idle", func(t *testing.T) {
		assert.Equal(t, domain.StatusIdle, o.State().Status)
		state, err := o.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusIdle, state.Status)
	})

	t.Run("空のプロンプトはプロバイダーを呼ばない", func(t *testing.T) {
		err := o.Submit(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
		assert.Equal(t, int32(0), p.calls.Load())
		assert.Equal(t, domain.StatusIdle, o.State().Status)
	})

	t.Run("Failed の後 Acknowledge で Idle に戻り、エラーが消える", func(t *testing.T) {
		p.err = fmt.Errorf("%w: boom", domain.ErrNetwork)
		state, _ := o.Generate(ctx, "x")
		require.Equal(t, domain.StatusFailed, state.Status)

		require.NoError(t, o.Acknowledge())
		assert.Equal(t, domain.StatusIdle, o.State().Status)
		assert.Empty(t, o.State().Error)
	})

	t.Run("Failed から再送信すると前のエラーは消える", func(t *testing.T) {
		p.err = fmt.Errorf("%w: boom", domain.ErrNetwork)
		_, _ = o.Generate(ctx, "x")
		p.err = nil

		state, err := o.Generate(ctx, "y")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSucceeded, state.Status)
		assert.Empty(t, state.Error)
	})

	t.Run("State のコピーを変更しても内部状態は変わらない", func(t *testing.T) {
		s := o.State()
		s.LastResult.Prompt = "mutated"
		s.Collection[0].Prompt = "mutated"

		assert.Equal(t, "y", o.State().LastResult.Prompt)
		assert.NotEqual(t, "mutated", o.State().Collection[0].Prompt)
	})
}

func TestNewOrchestrator(t *testing.T) {
	t.Run("依存関係が足りない場合はエラー", func(t *testing.T) {
		_, err := NewOrchestrator(nil, nil)
		assert.Error(t, err)

		_, err = NewOrchestrator(&mockProvider{}, nil)
		assert.Error(t, err)
	})
}
