package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/igen-gallery/pkg/domain"
)

// GeminiProvider は Gemini の画像出力を data URL として返す Provider です。
type GeminiProvider struct {
	aiClient     ContentGenerator
	model        string
	systemPrompt string
	seed         *int64
}

// GeminiOption は GeminiProvider の設定を変更します。
type GeminiOption func(*GeminiProvider)

// WithSeed は生成に使うシードを固定します。nil の場合はモデル側に任せます。
func WithSeed(seed *int64) GeminiOption {
	return func(g *GeminiProvider) {
		g.seed = seed
	}
}

// NewGeminiProvider は GeminiProvider を初期化します。model が空の場合は DefaultGeminiModel を使います。
func NewGeminiProvider(aiClient ContentGenerator, model, systemPrompt string, opts ...GeminiOption) (*GeminiProvider, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (ContentGenerator) is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &GeminiProvider{
		aiClient:     aiClient,
		model:        model,
		systemPrompt: systemPrompt,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate はプロンプトをテキストパーツとして送信し、最初の画像パーツを data URL に変換して返します。
func (g *GeminiProvider) Generate(ctx context.Context, req domain.ImageGenerationRequest) (string, error) {
	parts := []*genai.Part{{Text: req.Prompt}}
	opts := gemini.GenerateOptions{
		AspectRatio:  aspectRatio(req.Width, req.Height),
		SystemPrompt: g.systemPrompt,
		Seed:         g.seed,
	}

	resp, err := g.aiClient.GenerateWithParts(ctx, g.model, parts, opts)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	out, err := parseToResponse(resp)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedResponse) {
			slog.WarnContext(ctx, "Geminiの応答に画像がありません。プレースホルダーを使用します", "model", g.model, "error", err)
			return PlaceholderImageURL, err
		}
		return "", err
	}
	slog.DebugContext(ctx, "Geminiで画像を生成しました", "model", g.model, "mime_type", out.MimeType, "seed", dereferenceSeed(g.seed))
	return toDataURL(out.MimeType, out.Data), nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return fmt.Errorf("Gemini画像生成エラー: %w", &domain.ProviderError{StatusCode: apiErr.Code, Body: apiErr.Message})
	}
	return fmt.Errorf("%w: Gemini画像生成エラー: %v", domain.ErrNetwork, err)
}

// parseToResponse は Gemini のレスポンスから最初の画像パーツを取り出します。
// 安全フィルター等で異常終了した場合は domain.ErrProvider、画像が無いだけなら domain.ErrMalformedResponse を返します。
func parseToResponse(resp *gemini.Response) (*ImageOutput, error) {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil, fmt.Errorf("%w: Geminiからの有効な応答がありませんでした", domain.ErrMalformedResponse)
	}

	// 最初の候補のみを利用する
	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &ImageOutput{Data: part.InlineData.Data, MimeType: part.InlineData.MIMEType}, nil
			}
		}
	}

	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop:
	default:
		return nil, fmt.Errorf("%w: 画像生成が異常終了しました (FinishReason: %s)", domain.ErrProvider, candidate.FinishReason)
	}
	return nil, fmt.Errorf("%w: 画像データが見つかりませんでした", domain.ErrMalformedResponse)
}
