// Package storage 上传文件的本地存储
// 调用方只持有不透明的 key，key 形如 "<目录>/<uuid>_<原文件名>"
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidKey   = errors.New("文件标识无效")
	ErrFileNotFound = errors.New("文件不存在")
	ErrFileTooLarge = errors.New("文件超过大小上限")
)

// BlobStore 文件存储接口
type BlobStore interface {
	// Save 写入文件，返回生成的 key 与实际字节数
	Save(ctx context.Context, dir, originalName string, r io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type localStore struct {
	root     string
	maxBytes int64
	logger   *zap.Logger
}

// NewLocalStore 创建基于本地目录的文件存储
func NewLocalStore(root string, maxBytes int64, logger *zap.Logger) (BlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("解析存储目录失败: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &localStore{root: abs, maxBytes: maxBytes, logger: logger}, nil
}

func (s *localStore) Save(ctx context.Context, dir, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	name := sanitizeName(originalName)
	key := path.Join(dir, uuid.NewString()+"_"+name)
	full, err := s.resolve(key)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, fmt.Errorf("创建目录失败: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("创建文件失败: %w", err)
	}

	// 多读 1 字节用于判断是否超限
	n, copyErr := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if copyErr == nil && n > s.maxBytes {
		copyErr = ErrFileTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		if rmErr := os.Remove(full); rmErr != nil {
			s.logger.Warn("清理未完成的上传文件失败", zap.String("key", key), zap.Error(rmErr))
		}
		return "", 0, copyErr
	}

	return key, n, nil
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete 删除文件，文件已不存在时视为成功
func (s *localStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// resolve 把 key 映射为根目录下的绝对路径，拒绝越出根目录的 key
func (s *localStore) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") || path.IsAbs(key) {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}

// sanitizeName 只保留原文件名的最后一段，并替换路径分隔符等危险字符
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '/', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "file"
	}
	return name
}
