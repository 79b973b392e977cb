package exporter

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/igen-gallery/pkg/domain"
)

func encodeImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{0, 0, 255, 255})
	buf := new(bytes.Buffer)
	var err error
	if format == "png" {
		err = png.Encode(buf, img)
	} else {
		err = jpeg.Encode(buf, img, nil)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExporter_Export(t *testing.T) {
	ctx := context.Background()
	record := domain.GenerationRecord{ImageURL: "https://x/1.png", Prompt: "A Red Fox!"}

	t.Run("PNGをそのまま決定的なファイル名で保存する", func(t *testing.T) {
		pngData := encodeImage(t, "png")
		client := &mockHTTPClient{data: pngData}
		dir := filepath.Join(t.TempDir(), "downloads")
		e, err := New(client, &localWriter{}, dir, WithURLValidator(allowAll))
		require.NoError(t, err)

		path, err := e.Export(ctx, record)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "generated-image-a_red_fox_.png"), path)
		assert.Equal(t, record.ImageURL, client.lastURL)
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, pngData, got)
	})

	t.Run("JPEGはPNGに変換される", func(t *testing.T) {
		client := &mockHTTPClient{data: encodeImage(t, "jpeg")}
		e, _ := New(client, &localWriter{}, t.TempDir(), WithURLValidator(allowAll))

		img, err := e.Download(ctx, record)
		require.NoError(t, err)
		assert.Equal(t, "generated-image-a_red_fox_.png", img.Name)
		assert.Equal(t, "image/png", img.MimeType)

		_, format, err := image.Decode(bytes.NewReader(img.Data))
		require.NoError(t, err)
		assert.Equal(t, "png", format)
	})

	t.Run("data URL はネットワークを使わずに復号する", func(t *testing.T) {
		pngData := encodeImage(t, "png")
		client := &mockHTTPClient{}
		e, _ := New(client, &localWriter{}, t.TempDir())

		img, err := e.Download(ctx, domain.GenerationRecord{
			ImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData),
			Prompt:   "x",
		})
		require.NoError(t, err)
		assert.Equal(t, pngData, img.Data)
		assert.Equal(t, 0, client.calls)
	})

	t.Run("PNGに変換できない画像は元の形式と拡張子を保つ", func(t *testing.T) {
		webp := append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 32)...)
		client := &mockHTTPClient{data: webp}
		dir := t.TempDir()
		e, _ := New(client, &localWriter{}, dir, WithURLValidator(allowAll))

		img, err := e.Download(ctx, record)
		require.NoError(t, err)
		assert.Equal(t, "image/webp", img.MimeType)
		assert.Equal(t, "generated-image-a_red_fox_.webp", img.Name)
		assert.Equal(t, webp, img.Data)

		path, err := e.Export(ctx, record)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "generated-image-a_red_fox_.webp"), path)
	})

	t.Run("書き出し先のエラーは ErrSave", func(t *testing.T) {
		client := &mockHTTPClient{data: encodeImage(t, "png")}
		w := &localWriter{err: errors.New("bucket unavailable")}
		e, _ := New(client, w, t.TempDir(), WithURLValidator(allowAll))

		_, err := e.Export(ctx, record)
		assert.ErrorIs(t, err, domain.ErrSave)
	})

	t.Run("取得失敗は ErrFetch", func(t *testing.T) {
		client := &mockHTTPClient{err: errors.New("status 404")}
		e, _ := New(client, &localWriter{}, t.TempDir(), WithURLValidator(allowAll))

		_, err := e.Export(ctx, record)
		assert.ErrorIs(t, err, domain.ErrFetch)
	})

	t.Run("画像でないデータは ErrFetch", func(t *testing.T) {
		client := &mockHTTPClient{data: []byte("<html>not found</html>")}
		e, _ := New(client, &localWriter{}, t.TempDir(), WithURLValidator(allowAll))

		_, err := e.Export(ctx, record)
		assert.ErrorIs(t, err, domain.ErrFetch)
	})

	t.Run("安全でないURLは取得しない", func(t *testing.T) {
		client := &mockHTTPClient{data: encodeImage(t, "png")}
		e, _ := New(client, &localWriter{}, t.TempDir())

		_, err := e.Export(ctx, domain.GenerationRecord{ImageURL: "http://127.0.0.1/evil.png", Prompt: "x"})
		assert.ErrorIs(t, err, domain.ErrFetch)
		assert.Equal(t, 0, client.calls)
	})

	t.Run("書き込み失敗は ErrSave", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		client := &mockHTTPClient{data: encodeImage(t, "png")}
		e, _ := New(client, &localWriter{}, filepath.Join(blocker, "sub"), WithURLValidator(allowAll))

		_, err := e.Export(ctx, record)
		assert.ErrorIs(t, err, domain.ErrSave)
	})
}

func TestNew(t *testing.T) {
	_, err := New(nil, &localWriter{}, "dir")
	assert.Error(t, err)
	_, err = New(&mockHTTPClient{}, nil, "dir")
	assert.Error(t, err)
	_, err = New(&mockHTTPClient{}, &localWriter{}, "")
	assert.Error(t, err)
}

func TestDecodeDataURL(t *testing.T) {
	_, err := decodeDataURL("data:text/plain,hello")
	assert.ErrorIs(t, err, domain.ErrFetch)

	_, err = decodeDataURL("data:image/png;base64,!!!")
	assert.ErrorIs(t, err, domain.ErrFetch)
}
