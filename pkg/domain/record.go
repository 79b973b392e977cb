package domain

// GenerationRecord は1回の生成結果（プロンプトと画像URLの組）です。
// 一度作成されたレコードは変更されず、追加かコレクション全体のクリアのみが行われます。
type GenerationRecord struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}

// Collection は生成順（古い順）に並んだ GenerationRecord の列です。
// 同じプロンプトやURLを持つレコードが重複して存在することを許容します。
type Collection []GenerationRecord

// Clone はコレクションの独立したコピーを返します。nil は空のコレクションになります。
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// ImageGenerationRequest はプロバイダーへ渡す単一の画像生成要求です。
type ImageGenerationRequest struct {
	Prompt string
	Width  int
	Height int
}

// SelectionState は詳細表示中のレコードを表します。永続化されません。
type SelectionState struct {
	IsOpen   bool   `json:"isOpen"`
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}
