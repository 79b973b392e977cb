package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork はプロバイダーや画像ホストへの通信自体が失敗したことを示します。
	ErrNetwork = errors.New("network error")
	// ErrProvider はプロバイダーが成功以外のステータスを返したことを示します。
	ErrProvider = errors.New("provider error")
	// ErrMalformedResponse は成功応答に期待したフィールドが無かったことを示します。
	// プレースホルダーで回復されるため、生成の失敗にはなりません。
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrStorage は永続化層の読み書き失敗です。セッション内ではメモリ上の動作で回復します。
	ErrStorage = errors.New("storage error")
	// ErrNotFound は永続化層にキーが存在しないことを示します。
	ErrNotFound = errors.New("key not found")
	// ErrFetch はエクスポート時の画像取得失敗です。
	ErrFetch = errors.New("image fetch failed")
	// ErrSave はエクスポート時のファイル書き込み失敗です。
	ErrSave = errors.New("image save failed")
	// ErrRequestInFlight は同じオーケストレーターで生成中に再度要求されたことを示します。
	ErrRequestInFlight = errors.New("a generation request is already in flight")
	// ErrEmptyPrompt は空のプロンプトでの生成要求です。
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// ProviderError はプロバイダーの非成功ステータスを保持します。
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap により errors.Is(err, ErrProvider) が成立します。
func (e *ProviderError) Unwrap() error {
	return ErrProvider
}

// UserMessage はUIに表示するためのエラーメッセージを返します。
func UserMessage(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyPrompt):
		return "Please enter a prompt."
	case errors.As(err, &pe):
		return fmt.Sprintf("The image service returned an error (status %d). Please try again.", pe.StatusCode)
	case errors.Is(err, ErrProvider):
		return "The image service could not generate this image. Try a different prompt."
	case errors.Is(err, ErrNetwork):
		return "Could not reach the image service. Check your connection and try again."
	case errors.Is(err, ErrFetch):
		return "Failed to download image. Please try again."
	case errors.Is(err, ErrSave):
		return "Failed to save image. Please try again."
	default:
		return err.Error()
	}
}
