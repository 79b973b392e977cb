// Package exporter は生成済みの画像を取得してローカルファイルとして保存します。
// 失敗はユーザーに表示できるエラーとして返し、ギャラリーの状態には影響しません。
package exporter

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/shouni/igen-gallery/pkg/domain"
	"github.com/shouni/igen-gallery/pkg/imgutil"
)

// HTTPClient は URL から画像データを取得します。httpkit.ClientInterface が満たします。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Writer はローカルパスへの書き出しを行います。remoteio.UniversalIOWriter が満たします。
type Writer interface {
	WriteToLocal(ctx context.Context, path string, r io.Reader) error
}

// Image は書き出し用に正規化された画像です。
// PNG に変換できなかった場合、MimeType と Name の拡張子は元の形式のままです。
type Image struct {
	Data     []byte
	Name     string
	MimeType string
}

// Exporter はステートレスなエクスポートサービスです。
type Exporter struct {
	httpClient  HTTPClient
	writer      Writer
	dir         string
	validateURL func(string) (bool, error)
}

// Option は Exporter の設定を変更します。
type Option func(*Exporter)

// WithURLValidator は取得前のURL検証を差し替えます。既定は IsSafeURL です。
func WithURLValidator(fn func(string) (bool, error)) Option {
	return func(e *Exporter) {
		if fn != nil {
			e.validateURL = fn
		}
	}
}

// New は保存先ディレクトリ dir に書き出す Exporter を生成します。
func New(httpClient HTTPClient, writer Writer, dir string, opts ...Option) (*Exporter, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	e := &Exporter{httpClient: httpClient, writer: writer, dir: dir, validateURL: IsSafeURL}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Download は画像を取得し、PNGに正規化した画像を返します。
func (e *Exporter) Download(ctx context.Context, record domain.GenerationRecord) (*Image, error) {
	data, err := e.fetch(ctx, record.ImageURL)
	if err != nil {
		return nil, err
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: 取得したデータが画像ではありません (%s)", domain.ErrFetch, mt.String())
	}
	if mt.Is("image/png") {
		return &Image{Data: data, Name: FileName(record.Prompt), MimeType: "image/png"}, nil
	}

	converted, err := imgutil.ToPNG(data)
	if err != nil {
		slog.WarnContext(ctx, "PNGへの変換に失敗しました。元の形式のまま保存します", "mime_type", mt.String(), "error", err)
		return &Image{Data: data, Name: fileName(record.Prompt, mt.Extension()), MimeType: mt.String()}, nil
	}
	return &Image{Data: converted, Name: FileName(record.Prompt), MimeType: "image/png"}, nil
}

// Export は画像を取得して保存先ディレクトリに書き出し、書き出したパスを返します。
// 同名のファイルは上書きされます。
func (e *Exporter) Export(ctx context.Context, record domain.GenerationRecord) (string, error) {
	img, err := e.Download(ctx, record)
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, img.Name)
	if err := e.writer.WriteToLocal(ctx, path, bytes.NewReader(img.Data)); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSave, err)
	}

	slog.InfoContext(ctx, "画像を保存しました", "path", path, "mime_type", img.MimeType, "size_bytes", len(img.Data))
	return path, nil
}

func (e *Exporter) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	if safe, err := e.validateURL(rawURL); err != nil || !safe {
		return nil, fmt.Errorf("%w: 安全ではないURLが指定されました: %v", domain.ErrFetch, err)
	}

	data, err := e.httpClient.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: 空のデータを受信しました", domain.ErrFetch)
	}
	return data, nil
}

// decodeDataURL は "data:<mime>;base64,<payload>" 形式の URL を復号します。
func decodeDataURL(rawURL string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(rawURL, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: 未対応の data URL です", domain.ErrFetch)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: data URL の復号に失敗しました: %v", domain.ErrFetch, err)
	}
	return data, nil
}
