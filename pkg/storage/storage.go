package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// ObjectInfo 存储对象元数据
type ObjectInfo struct {
	Name        string    // 对象名，使用 / 分隔的相对路径
	Size        int64     // 大小(字节)
	ContentType string    // MIME类型
	ModTime     time.Time // 最后修改时间
}

// Storage 产出物存储接口
// 用于保存检查点与结果表，可以有不同实现(本地文件系统、MinIO等)
type Storage interface {
	// Put 以给定名称写入对象，同名对象被整体替换，读者不会看到写了一半的内容
	Put(ctx context.Context, name string, r io.Reader) (ObjectInfo, error)

	// Get 读取对象内容，不存在时返回 ErrNotFound
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete 删除对象，不存在时返回 ErrNotFound
	Delete(ctx context.Context, name string) error

	// List 列出指定前缀下的对象
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Exists 检查对象是否存在
	Exists(ctx context.Context, name string) (bool, error)
}

// Config 存储配置
type Config struct {
	Type  string      // 存储类型: local, minio
	Local LocalConfig // 本地存储配置
	Minio MinioConfig // MinIO存储配置
}

// New 根据配置创建存储实例
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg.Local)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// cleanName 规范化对象名，拒绝越出存储根目录的名称
func cleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object name: %q", name)
	}
	return cleaned, nil
}

// getMimeType 根据扩展名判断MIME类型
func getMimeType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".txt", ".prom":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
