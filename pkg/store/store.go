// Package store は、ギャラリーが利用する同期的なキーバリュー永続化層を提供します。
// スキーマの検証は行わず、エンコード・デコードは呼び出し側の責務です。
package store

import (
	"context"
	"sync"

	"github.com/shouni/igen-gallery/pkg/domain"
)

// Store は1つの論理キーの下にデータを読み書きする永続化層です。
// キーが存在しない場合 Load は domain.ErrNotFound を返します。
// 媒体の失敗は domain.ErrStorage でラップされます。
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Memory はプロセス内だけで完結する Store です。
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailSave / FailLoad は容量不足や無効化された媒体を再現するためのものです。
	FailSave error
	FailLoad error
}

// NewMemory は空の Memory を返します。
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailLoad != nil {
		return nil, wrapStorage("load", key, m.FailLoad)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return wrapStorage("save", key, m.FailSave)
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return wrapStorage("delete", key, m.FailSave)
	}
	delete(m.data, key)
	return nil
}
