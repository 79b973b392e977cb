package generator

const (
	// PlaceholderImageURL は応答に画像URLが無い場合に代わりに使う画像です。
	PlaceholderImageURL = "https://via.placeholder.com/600x400?text=Generated+Image"

	DefaultWidth  = 1024
	DefaultHeight = 1024

	// DefaultGeminiModel は Gemini プロバイダーの既定モデルです。
	DefaultGeminiModel = "gemini-2.5-flash-image"

	maxResponseBytes = 1 << 20
)

// ImageOutput は Gemini 応答の内部解析結果
type ImageOutput struct {
	Data     []byte
	MimeType string
}
