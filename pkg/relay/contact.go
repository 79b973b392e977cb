// Package relay は問い合わせフォームの内容を外部エンドポイントへそのまま転送します。
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// DefaultContactURL は問い合わせフォームの転送先です。
const DefaultContactURL = "https://script.google.com/macros/s/AKfycbwKVrhO47F45TK_wJx2e41v36lGsW9hv8iCzMYQmiLItL0CkKbDMSoHgO6OEStTLYv1NA/exec"

const maxRelayResponseBytes = 1 << 20

// Contact は JSON ボディを転送し、転送先の JSON 応答を返します。
type Contact struct {
	endpoint string
	client   httpkit.Doer
}

// NewContact は Contact を生成します。client が nil の場合は http.DefaultClient を使います。
func NewContact(endpoint string, client httpkit.Doer) (*Contact, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Contact{endpoint: endpoint, client: client}, nil
}

// Forward は body を POST し、応答ボディを JSON として検証して返します。
func (c *Contact) Forward(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("問い合わせの転送に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("応答の読み込みに失敗しました: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("転送先の応答がJSONではありません (status %d)", resp.StatusCode)
	}
	return json.RawMessage(raw), nil
}
