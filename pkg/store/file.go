package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/igen-gallery/pkg/domain"
)

const fileExt = ".json"

// File はキーごとに1つのドキュメントをディレクトリに保存する Store です。
// 読み込みは remoteio.InputReader 経由、書き込みは一時ファイルからのリネームで原子的に行います。
type File struct {
	dir    string
	reader remoteio.InputReader
}

// NewFile は dir を保存先とする File を生成します。reader が nil の場合は remoteio の UniversalInputReader を使います。
func NewFile(dir string, reader remoteio.InputReader) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ストアディレクトリの作成に失敗しました: %w", err)
	}
	if reader == nil {
		reader = remoteio.NewUniversalInputReader(nil, nil)
	}
	return &File{dir: dir, reader: reader}, nil
}

func (f *File) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("不正なキーです: %q", key)
	}
	return filepath.Join(f.dir, key+fileExt), nil
}

func (f *File) Load(ctx context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, wrapStorage("load", key, err)
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, wrapStorage("load", key, err)
	}
	rc, err := f.reader.Open(ctx, p)
	if err != nil {
		return nil, wrapStorage("load", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrapStorage("load", key, err)
	}
	return data, nil
}

func (f *File) Save(_ context.Context, key string, data []byte) error {
	p, err := f.path(key)
	if err != nil {
		return wrapStorage("save", key, err)
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return wrapStorage("save", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return wrapStorage("save", key, err)
	}
	if err := tmp.Close(); err != nil {
		return wrapStorage("save", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return wrapStorage("save", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return wrapStorage("delete", key, err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrapStorage("delete", key, err)
	}
	return nil
}
