// Package storage は投稿添付ファイルの永続化を提供する。
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowedExtensions は保存を許可する添付ファイルの拡張子。
// ファイル内容の解釈は行わず、拡張子とサイズのみで受け入れを判断する。
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".pdf":  {},
}

// AttachmentStore は添付ファイルの保存インターフェース。
type AttachmentStore interface {
	// Save はファイル内容を保存し、公開用の相対パスを返す。
	Save(originalName string, r io.Reader) (string, error)

	// Remove は保存済みの添付ファイルを削除する。存在しない場合は何もしない。
	Remove(storedPath string) error
}

// LocalAttachmentStore はローカルディスクに添付ファイルを保存する。
// ファイル名はUUIDで採番し、アップロード元のファイル名は拡張子以外使用しない。
type LocalAttachmentStore struct {
	dir string
}

// NewLocalAttachmentStore はLocalAttachmentStoreを生成する。
// 保存先ディレクトリが存在しない場合は作成する。
func NewLocalAttachmentStore(dir string) (*LocalAttachmentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalAttachmentStore{dir: dir}, nil
}

// Save はファイル内容を保存し、"/uploads/<uuid><ext>" 形式の相対パスを返す。
// 許可されていない拡張子はエラーを返す。
func (s *LocalAttachmentStore) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("file extension %q is not allowed", ext)
	}

	name := uuid.New().String() + ext
	dst := filepath.Join(s.dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write attachment file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to close attachment file: %w", err)
	}

	return "/uploads/" + name, nil
}

// Remove は保存済みの添付ファイルを削除する。
// パスは必ずこのストアの保存ディレクトリ内に解決される。
func (s *LocalAttachmentStore) Remove(storedPath string) error {
	name := filepath.Base(storedPath)
	if name == "." || name == "/" || name == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove attachment file: %w", err)
	}
	return nil
}

// Dir は保存ディレクトリの絶対パスを返す。静的ファイル配信の設定に使用する。
func (s *LocalAttachmentStore) Dir() string {
	return s.dir
}

// compile-time interface check
var _ AttachmentStore = (*LocalAttachmentStore)(nil)
