package gallery

import (
	"strings"

	"github.com/shouni/igen-gallery/pkg/domain"
)

// Filter は query を大文字小文字を区別せず prompt に含むレコードを元の順序で返します。
// query が空または空白のみの場合は collection と同じ内容を返します。collection は変更しません。
func Filter(collection domain.Collection, query string) domain.Collection {
	if strings.TrimSpace(query) == "" {
		return collection.Clone()
	}
	q := strings.ToLower(query)
	out := domain.Collection{}
	for _, r := range collection {
		if strings.Contains(strings.ToLower(r.Prompt), q) {
			out = append(out, r)
		}
	}
	return out
}
