package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shouni/igen-gallery/pkg/domain"
	"github.com/shouni/igen-gallery/pkg/exporter"
)

type mockProvider struct {
	url   string
	err   error
	calls int
	last  domain.ImageGenerationRequest
}

func (m *mockProvider) Generate(_ context.Context, req domain.ImageGenerationRequest) (string, error) {
	m.calls++
	m.last = req
	return m.url, m.err
}

type mockGenerator struct {
	mu     sync.Mutex
	state  domain.RequestState
	err    error
	prompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (domain.RequestState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompt = prompt
	return m.state, m.err
}

func (m *mockGenerator) State() domain.RequestState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

type mockExporter struct {
	path   string
	image  *exporter.Image
	err    error
	record domain.GenerationRecord
}

func (m *mockExporter) Export(_ context.Context, record domain.GenerationRecord) (string, error) {
	m.record = record
	return m.path, m.err
}

func (m *mockExporter) Download(_ context.Context, record domain.GenerationRecord) (*exporter.Image, error) {
	m.record = record
	return m.image, m.err
}

type mockRelay struct {
	resp json.RawMessage
	err  error
	body json.RawMessage
}

func (m *mockRelay) Forward(_ context.Context, body json.RawMessage) (json.RawMessage, error) {
	m.body = body
	return m.resp, m.err
}
