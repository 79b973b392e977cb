// Package gallery は生成履歴のキャッシュ、検索ビュー、選択状態を提供します。
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/igen-gallery/pkg/domain"
	"github.com/shouni/igen-gallery/pkg/store"
)

// DefaultStorageKey はギャラリーを保存する論理キーです。
const DefaultStorageKey = "generatedImages"

// Cache は正規の GenerationCollection を所有し、ストアのギャラリーキーに書き込める唯一のコンポーネントです。
//
// Append は読み込み・マージ・書き込みで永続化します。同じストアを共有する複数のプロセスが
// 同時に追加した場合、後から書いた側が先の追加を上書きする可能性があります（既知の制限）。
type Cache struct {
	mu      sync.RWMutex
	store   store.Store
	key     string
	records domain.Collection
	// stale は永続化側に、クリア前の古いコレクションが残っている可能性を示します。
	stale bool
}

// Option は Cache の設定を変更します。
type Option func(*Cache)

// WithStorageKey は保存先の論理キーを変更します。
func WithStorageKey(key string) Option {
	return func(c *Cache) {
		if key != "" {
			c.key = key
		}
	}
}

// NewCache はストアから一度だけコレクションを読み込んで Cache を生成します。
// データが無い、読めない、壊れている場合は空で開始します。
func NewCache(ctx context.Context, st store.Store, opts ...Option) (*Cache, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	c := &Cache{store: st, key: DefaultStorageKey}
	for _, opt := range opts {
		opt(c)
	}
	c.records = c.loadPersisted(ctx)
	return c, nil
}

// loadPersisted は永続化されたコレクションを返します。読めない場合は空です。
func (c *Cache) loadPersisted(ctx context.Context) domain.Collection {
	persisted, _ := c.readPersisted(ctx)
	return persisted
}

// readPersisted は永続化されたコレクションと、それが信頼できるかどうかを返します。
func (c *Cache) readPersisted(ctx context.Context) (domain.Collection, bool) {
	data, err := c.store.Load(ctx, c.key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.Collection{}, true
	case err != nil:
		slog.WarnContext(ctx, "ギャラリーの読み込みに失敗しました。メモリ上のデータで続行します", "key", c.key, "error", err)
		return domain.Collection{}, false
	}
	return decodeCollection(ctx, data), true
}

// All は現在のコレクションのコピーを返します。
func (c *Cache) All() domain.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records.Clone()
}

// Len はレコード数を返します。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Append は record を末尾に追加し、更新後のコレクションを返します。
// 永続化に失敗してもメモリ上の追加は成功しており、返されるエラーは domain.ErrStorage を含む警告です。
func (c *Cache) Append(ctx context.Context, record domain.GenerationRecord) (domain.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(c.records.Clone(), record)
	updated := c.records.Clone()

	var (
		base domain.Collection
		ok   bool
	)
	if !c.stale {
		base, ok = c.readPersisted(ctx)
	}
	if !ok {
		base = c.records[:len(c.records)-1]
	}
	merged := append(base.Clone(), record)

	data, err := encodeCollection(merged)
	if err != nil {
		return updated, fmt.Errorf("%w: encode gallery: %v", domain.ErrStorage, err)
	}
	if err := c.store.Save(ctx, c.key, data); err != nil {
		slog.WarnContext(ctx, "ギャラリーの保存に失敗しました。このセッション内ではメモリ上に保持します", "key", c.key, "error", err)
		return updated, fmt.Errorf("ギャラリーの保存に失敗しました: %w", err)
	}
	c.stale = false
	return updated, nil
}

// Clear はメモリ上と永続化されたコレクションの両方を空にします。元に戻せません。
// 削除に失敗した場合は空のコレクションの保存を試みます。どちらも失敗した場合もメモリ上は空になり、
// domain.ErrStorage を含むエラーを返します。次の Append は永続化側の古いデータをマージしません。
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = domain.Collection{}
	delErr := c.store.Delete(ctx, c.key)
	if delErr == nil {
		c.stale = false
		return nil
	}

	slog.WarnContext(ctx, "保存済みギャラリーの削除に失敗しました。空のコレクションで上書きします", "key", c.key, "error", delErr)
	data, err := encodeCollection(c.records)
	if err == nil {
		err = c.store.Save(ctx, c.key, data)
	}
	if err == nil {
		c.stale = false
		return nil
	}

	c.stale = true
	slog.WarnContext(ctx, "保存済みギャラリーを空にできませんでした", "key", c.key, "error", err)
	return fmt.Errorf("ギャラリーの削除に失敗しました: %w", errors.Join(delErr, err))
}
