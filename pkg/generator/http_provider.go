package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/igen-gallery/pkg/domain"
)

const (
	DefaultProviderURL  = "https://chatgpt-42.p.rapidapi.com/texttoimage3"
	DefaultProviderHost = "chatgpt-42.p.rapidapi.com"
)

// HTTPProviderConfig は HTTPProvider の接続設定です。
type HTTPProviderConfig struct {
	Endpoint string
	APIKey   string
	Host     string
	// Client はリトライしない設定で渡してください（httpkit.WithMaxRetries(0)）。
	// nil の場合はタイムアウト無しの http.Client を使います。
	Client httpkit.Doer
}

// HTTPProvider は1回のリクエスト・レスポンスで画像URLを得る Provider です。内部でリトライしません。
type HTTPProvider struct {
	endpoint string
	apiKey   string
	host     string
	client   httpkit.Doer
}

type textToImageRequest struct {
	Text   string `json:"text"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Steps  int    `json:"steps"`
}

type textToImageResponse struct {
	GeneratedImage string `json:"generated_image"`
}

// NewHTTPProvider は設定を検証して HTTPProvider を生成します。
func NewHTTPProvider(cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultProviderURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &HTTPProvider{
		endpoint: cfg.Endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		host:     cfg.Host,
		client:   cfg.Client,
	}, nil
}

// Generate はプロンプトと固定サイズを送信し、応答の generated_image を返します。
func (p *HTTPProvider) Generate(ctx context.Context, req domain.ImageGenerationRequest) (string, error) {
	body, err := json.Marshal(textToImageRequest{
		Text:   req.Prompt,
		Width:  req.Width,
		Height: req.Height,
		Steps:  1, // このエンドポイントでは必須
	})
	if err != nil {
		return "", fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: リクエストの作成に失敗しました: %v", domain.ErrNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-rapidapi-key", p.apiKey)
	if p.host != "" {
		httpReq.Header.Set("x-rapidapi-host", p.host)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: 応答の読み込みに失敗しました: %v", domain.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.ProviderError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 200)}
	}

	imageURL, err := decodeImageURL(raw)
	if err != nil {
		slog.WarnContext(ctx, "プロバイダーの応答に画像URLがありません。プレースホルダーを使用します", "endpoint", p.endpoint, "error", err)
		return imageURL, err
	}
	return imageURL, nil
}

// decodeImageURL は応答から generated_image を取り出します。
// フィールドが無い、空、または応答が解析できない場合は PlaceholderImageURL と domain.ErrMalformedResponse を返します。
func decodeImageURL(raw []byte) (string, error) {
	var out textToImageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return PlaceholderImageURL, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(out.GeneratedImage) == "" {
		return PlaceholderImageURL, fmt.Errorf("%w: generated_image is missing", domain.ErrMalformedResponse)
	}
	return out.GeneratedImage, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
