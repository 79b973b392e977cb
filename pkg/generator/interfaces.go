package generator

import (
	"context"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/igen-gallery/pkg/domain"
)

// Provider は外部の画像生成サービスです。プロンプトと固定サイズを受け取り、画像URLを返します。
//
// 成功応答に画像URLが含まれない場合、Provider は PlaceholderImageURL と
// domain.ErrMalformedResponse をラップしたエラーを同時に返します。呼び出し側はこれを失敗ではなく
// 警告付きの成功として扱います。
type Provider interface {
	Generate(ctx context.Context, req domain.ImageGenerationRequest) (string, error)
}

// ContentGenerator は Gemini へのパーツ付き生成リクエストを実行します。
// gemini.GenerativeModel はこのインターフェースを満たします。
type ContentGenerator interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// Appender は生成結果を永続化するギャラリーです。*gallery.Cache が満たします。
type Appender interface {
	Append(ctx context.Context, record domain.GenerationRecord) (domain.Collection, error)
}
