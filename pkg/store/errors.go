package store

import (
	"fmt"

	"github.com/shouni/igen-gallery/pkg/domain"
)

// StorageError は失敗した操作とキーを保持します。errors.Is(err, domain.ErrStorage) が成立します。
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{domain.ErrStorage, e.Err}
}

func wrapStorage(op, key string, err error) error {
	return &StorageError{Op: op, Key: key, Err: err}
}
