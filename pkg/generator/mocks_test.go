package generator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/igen-gallery/pkg/domain"
)

// --- Mocks ---

type mockProvider struct {
	url     string
	err     error
	release chan struct{} // nil でなければ閉じられるまで応答を返さない
	started chan struct{} // 呼び出し開始の通知（任意）

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu      sync.Mutex
	lastReq domain.ImageGenerationRequest
}

func (m *mockProvider) Generate(ctx context.Context, req domain.ImageGenerationRequest) (string, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()

	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	return m.url, m.err
}

type mockAIClient struct {
	resp      *gemini.Response
	err       error
	lastModel string
	lastParts []*genai.Part
	lastOpts  gemini.GenerateOptions
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.lastModel = model
	m.lastParts = parts
	m.lastOpts = opts
	return m.resp, m.err
}

func imageResponse(mime string, data []byte) *gemini.Response {
	return &gemini.Response{
		RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: "here you go"},
						{InlineData: &genai.Blob{MIMEType: mime, Data: data}},
					},
				},
			}},
		},
	}
}
