package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

// exerciseStorage 对任意实现执行相同的行为检查
func exerciseStorage(t *testing.T, s Storage) {
	ctx := context.Background()

	info, err := s.Put(ctx, "run-1/checkpoint.csv", strings.NewReader("id,amount\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "run-1/checkpoint.csv", info.Name)
	assert.Equal(t, int64(len("id,amount\n1,2\n")), info.Size)
	assert.Equal(t, "text/csv", info.ContentType)

	rc, err := s.Get(ctx, "run-1/checkpoint.csv")
	require.NoError(t, err)
	assert.Equal(t, "id,amount\n1,2\n", readAll(t, rc))

	// 同名写入整体替换
	_, err = s.Put(ctx, "run-1/checkpoint.csv", bytes.NewBufferString("id,amount\n"))
	require.NoError(t, err)
	rc, err = s.Get(ctx, "run-1/checkpoint.csv")
	require.NoError(t, err)
	assert.Equal(t, "id,amount\n", readAll(t, rc))

	_, err = s.Put(ctx, "run-1/result.csv", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "other.json", strings.NewReader("{}"))
	require.NoError(t, err)

	objects, err := s.List(ctx, "run-1/")
	require.NoError(t, err)
	var names []string
	for _, o := range objects {
		names = append(names, o.Name)
	}
	assert.ElementsMatch(t, []string{"run-1/checkpoint.csv", "run-1/result.csv"}, names)

	exists, err := s.Exists(ctx, "other.json")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "other.json"))
	exists, err = s.Exists(ctx, "other.json")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Get(ctx, "other.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "other.json"), ErrNotFound)
}

// TestLocalStorage 测试本地存储实现
func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{Path: dir})
	require.NoError(t, err)

	exerciseStorage(t, s)

	// 写入完成后不留下临时文件
	entries, err := os.ReadDir(filepath.Join(dir, "run-1"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}

	p, err := s.Path("run-1/result.csv")
	require.NoError(t, err)
	assert.FileExists(t, p)
}

// TestLocalStorageNames 测试对象名不会越出根目录
func TestLocalStorageNames(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{Path: dir})
	require.NoError(t, err)

	info, err := s.Put(context.Background(), "../../escape.csv", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "escape.csv", info.Name)
	assert.FileExists(t, filepath.Join(dir, "escape.csv"))

	_, err = s.Put(context.Background(), "", strings.NewReader("x"))
	assert.Error(t, err)
}

// TestMinioStorage 测试MinIO存储实现
// 需要设置 MINIO_TEST_ENDPOINT 指向可用的MinIO服务
func TestMinioStorage(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set, skipping MinIO tests")
	}

	s, err := NewMinioStorage(MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "penalty-test",
		Prefix:    "test/",
	})
	require.NoError(t, err)

	exerciseStorage(t, s)

	ctx := context.Background()
	objects, _ := s.List(ctx, "")
	for _, o := range objects {
		_ = s.Delete(ctx, o.Name)
	}
}

// TestNew 测试存储工厂函数
func TestNew(t *testing.T) {
	s, err := New(Config{Type: "local", Local: LocalConfig{Path: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(Config{Type: "s3"})
	assert.Error(t, err)
}
