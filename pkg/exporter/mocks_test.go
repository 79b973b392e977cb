package exporter

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

type mockHTTPClient struct {
	data    []byte
	err     error
	lastURL string
	calls   int
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	m.lastURL = url
	return m.data, m.err
}

// localWriter はディレクトリを作成してからファイルを書き出すテスト用の Writer なのだ。
type localWriter struct {
	err   error
	paths []string
}

func (w *localWriter) WriteToLocal(_ context.Context, path string, r io.Reader) error {
	if w.err != nil {
		return w.err
	}
	w.paths = append(w.paths, path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

func allowAll(string) (bool, error) { return true, nil }
