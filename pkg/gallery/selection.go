package gallery

import (
	"sync"

	"github.com/shouni/igen-gallery/pkg/domain"
)

// Selection は詳細表示中のレコードを1つだけ保持します。
// キャッシュの内容とは独立しており、クリア済みの画像を表示中でも問題ありません。
type Selection struct {
	mu    sync.RWMutex
	state domain.SelectionState
}

// NewSelection は閉じた状態の Selection を返します。
func NewSelection() *Selection {
	return &Selection{}
}

// Open は指定の画像を表示中にします。
func (s *Selection) Open(imageURL, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.SelectionState{IsOpen: true, ImageURL: imageURL, Prompt: prompt}
}

// Close は初期状態に戻します。
func (s *Selection) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.SelectionState{}
}

func (s *Selection) State() domain.SelectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
