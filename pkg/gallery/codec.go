package gallery

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shouni/igen-gallery/pkg/domain"
)

// decodeCollection は永続化されたドキュメントを復元します。
// 壊れたデータはエラーにせず空のコレクションとして扱います。
func decodeCollection(ctx context.Context, data []byte) domain.Collection {
	if len(data) == 0 {
		return domain.Collection{}
	}
	var c domain.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		slog.WarnContext(ctx, "保存済みギャラリーの解析に失敗しました。空として扱います", "error", err)
		return domain.Collection{}
	}
	if c == nil {
		return domain.Collection{}
	}
	return c
}

func encodeCollection(c domain.Collection) ([]byte, error) {
	if c == nil {
		c = domain.Collection{}
	}
	return json.Marshal(c)
}
