package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shouni/igen-gallery/pkg/domain"
)

type eventKind int

const (
	eventSubmit eventKind = iota
	eventSucceeded
	eventFailed
	eventAcknowledge
)

type event struct {
	kind       eventKind
	record     *domain.GenerationRecord
	collection domain.Collection
	err        error
	warning    error
}

// Orchestrator は1インスタンスにつき同時に1つだけ生成リクエストを実行します。
// 状態は Idle -> Loading -> {Succeeded, Failed} -> Idle と遷移し、transition だけが状態を変更します。
//
// 実行中のプロバイダー呼び出しは取り消されません。Submit に渡したコンテキストがキャンセルされても
// 呼び出しは完了まで続き、タイムアウトも設けません。
type Orchestrator struct {
	provider Provider
	gallery  Appender
	width    int
	height   int

	mu    sync.Mutex
	state domain.RequestState
	done  chan struct{}
}

// OrchestratorOption は Orchestrator の設定を変更します。
type OrchestratorOption func(*Orchestrator)

// WithDimensions はプロバイダーへ渡す固定サイズを変更します。
func WithDimensions(width, height int) OrchestratorOption {
	return func(o *Orchestrator) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// NewOrchestrator は Idle 状態の Orchestrator を生成します。
func NewOrchestrator(provider Provider, gallery Appender, opts ...OrchestratorOption) (*Orchestrator, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if gallery == nil {
		return nil, fmt.Errorf("gallery is required")
	}
	o := &Orchestrator{
		provider: provider,
		gallery:  gallery,
		width:    DefaultWidth,
		height:   DefaultHeight,
		state:    domain.RequestState{Status: domain.StatusIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State は現在の状態のコピーを返します。
func (o *Orchestrator) State() domain.RequestState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return copyState(o.state)
}

// Submit は生成を開始してすぐに戻ります。完了は State または Wait で観測します。
// 実行中に呼ばれた場合は domain.ErrRequestInFlight を返し、プロバイダーは呼ばれません。
func (o *Orchestrator) Submit(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return domain.ErrEmptyPrompt
	}

	o.mu.Lock()
	if err := o.transition(event{kind: eventSubmit}); err != nil {
		o.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	go o.run(context.WithoutCancel(ctx), prompt, done)
	return nil
}

// Wait は実行中のリクエストの完了を待ち、その時点の状態を返します。
// 実行中でなければ即座に現在の状態を返します。ctx の終了は待機をやめるだけで、リクエストは続行します。
func (o *Orchestrator) Wait(ctx context.Context) (domain.RequestState, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return o.State(), ctx.Err()
		}
	}
	return o.State(), nil
}

// Generate は Submit と Wait をまとめて行います。生成の失敗は状態の Error に入り、戻り値のエラーにはなりません。
func (o *Orchestrator) Generate(ctx context.Context, prompt string) (domain.RequestState, error) {
	if err := o.Submit(ctx, prompt); err != nil {
		return o.State(), err
	}
	return o.Wait(ctx)
}

// Acknowledge は Succeeded / Failed を Idle に戻します。
func (o *Orchestrator) Acknowledge() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transition(event{kind: eventAcknowledge})
}

func (o *Orchestrator) run(ctx context.Context, prompt string, done chan struct{}) {
	defer close(done)

	req := domain.ImageGenerationRequest{Prompt: prompt, Width: o.width, Height: o.height}
	imageURL, err := o.provider.Generate(ctx, req)

	var warning error
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMalformedResponse):
		// プレースホルダーで回復した応答は成功として扱う
		warning = err
		if imageURL == "" {
			imageURL = PlaceholderImageURL
		}
	default:
		slog.WarnContext(ctx, "画像生成に失敗しました", "error", err)
		o.apply(event{kind: eventFailed, err: err})
		return
	}

	record := domain.GenerationRecord{ImageURL: imageURL, Prompt: prompt}
	collection, appendErr := o.gallery.Append(ctx, record)
	if appendErr != nil {
		warning = errors.Join(warning, appendErr)
	}

	slog.InfoContext(ctx, "画像生成が完了しました", "image_url_len", len(imageURL), "gallery_size", len(collection))
	o.apply(event{kind: eventSucceeded, record: &record, collection: collection, warning: warning})
}

func (o *Orchestrator) apply(ev event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.transition(ev); err != nil {
		slog.Error("不正な状態遷移です", "from", o.state.Status.String(), "error", err)
	}
}

// transition は唯一の状態遷移関数です。o.mu を保持した状態で呼び出します。
func (o *Orchestrator) transition(ev event) error {
	from := o.state.Status
	switch ev.kind {
	case eventSubmit:
		if from == domain.StatusLoading {
			return domain.ErrRequestInFlight
		}
		o.state = domain.RequestState{
			Status:     domain.StatusLoading,
			IsLoading:  true,
			LastResult: o.state.LastResult,
			Collection: o.state.Collection,
		}
	case eventSucceeded:
		if from != domain.StatusLoading {
			return fmt.Errorf("cannot succeed from %s", from)
		}
		o.state = domain.RequestState{
			Status:     domain.StatusSucceeded,
			LastResult: ev.record,
			Collection: ev.collection,
		}
		if ev.warning != nil {
			o.state.Warning = ev.warning.Error()
		}
	case eventFailed:
		if from != domain.StatusLoading {
			return fmt.Errorf("cannot fail from %s", from)
		}
		o.state = domain.RequestState{
			Status:     domain.StatusFailed,
			Error:      domain.UserMessage(ev.err),
			LastResult: o.state.LastResult,
			Collection: o.state.Collection,
		}
	case eventAcknowledge:
		if from == domain.StatusLoading {
			return domain.ErrRequestInFlight
		}
		o.state.Status = domain.StatusIdle
		o.state.Error = ""
		o.state.Warning = ""
	default:
		return fmt.Errorf("unknown event %d", ev.kind)
	}
	return nil
}

func copyState(s domain.RequestState) domain.RequestState {
	out := s
	if s.LastResult != nil {
		r := *s.LastResult
		out.LastResult = &r
	}
	if s.Collection != nil {
		out.Collection = s.Collection.Clone()
	}
	return out
}
