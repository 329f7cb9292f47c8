package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	basePath string // 基础存储路径
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: absPath}, nil
}

// Put 先写入同目录下的临时文件再重命名，保证替换是原子的
func (s *LocalStorage) Put(ctx context.Context, name string, r io.Reader) (ObjectInfo, error) {
	filePath, name, err := s.resolve(name)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(filePath)+"."+uuid.New().String()+".tmp")
	file, err := os.Create(tmpPath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(file, r)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("failed to replace file: %w", err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	return ObjectInfo{
		Name:        name,
		Size:        size,
		ContentType: getMimeType(name),
		ModTime:     info.ModTime(),
	}, nil
}

// Get 获取文件内容
func (s *LocalStorage) Get(_ context.Context, name string) (io.ReadCloser, error) {
	filePath, name, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(_ context.Context, name string) error {
	filePath, name, err := s.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List 列出指定前缀下的文件，跳过写入中的临时文件
func (s *LocalStorage) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	err := filepath.Walk(s.basePath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(info.Name(), ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		objects = append(objects, ObjectInfo{
			Name:        name,
			Size:        info.Size(),
			ContentType: getMimeType(name),
			ModTime:     info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return objects, nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(_ context.Context, name string) (bool, error) {
	filePath, _, err := s.resolve(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Path 返回对象在本地文件系统中的路径
func (s *LocalStorage) Path(name string) (string, error) {
	filePath, _, err := s.resolve(name)
	return filePath, err
}

func (s *LocalStorage) resolve(name string) (string, string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleaned)), cleaned, nil
}
