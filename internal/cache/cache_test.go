package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(Config{
		Type:            TypeMemory,
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	})
	require.NoError(t, err)
	defer c.Close()

	// 测试Set和Get
	require.NoError(t, c.Set(ctx, "key1", "value1", 0))
	val, found, err := c.Get(ctx, "key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	// 测试不存在的键
	val, found, err = c.Get(ctx, "non-existent")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试过期
	require.NoError(t, c.Set(ctx, "expire-soon", "temp-value", time.Millisecond*100))
	time.Sleep(time.Millisecond * 300)
	_, found, err = c.Get(ctx, "expire-soon")
	assert.NoError(t, err)
	assert.False(t, found)

	// 测试删除
	require.NoError(t, c.Set(ctx, "to-delete", "delete-me", 0))
	require.NoError(t, c.Delete(ctx, "to-delete"))
	_, found, _ = c.Get(ctx, "to-delete")
	assert.False(t, found)
}

// TestRedisCache 使用miniredis测试Redis缓存
func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := New(Config{
		Type:       TypeRedis,
		RedisAddr:  mr.Addr(),
		Namespace:  "test",
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "spans:abc", `[{"start":1}]`, 0))
	val, found, err := c.Get(ctx, "spans:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"start":1}]`, val)

	// 键带命名空间前缀
	assert.True(t, mr.Exists("test:spans:abc"))
	assert.Equal(t, time.Minute, mr.TTL("test:spans:abc"))

	// 过期
	mr.FastForward(2 * time.Minute)
	_, found, err = c.Get(ctx, "spans:abc")
	require.NoError(t, err)
	assert.False(t, found)

	// 删除
	require.NoError(t, c.Set(ctx, "to-delete", "x", 0))
	require.NoError(t, c.Delete(ctx, "to-delete"))
	assert.False(t, mr.Exists("test:to-delete"))
}

// TestRedisCacheUnavailable 测试Redis不可用时创建失败
func TestRedisCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(Config{RedisAddr: addr})
	assert.Error(t, err)
}

// TestNew 测试缓存工厂函数
func TestNew(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	_, err = New(Config{Type: "memcached"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

// TestKey 测试缓存键生成
func TestKey(t *testing.T) {
	k1 := Key("extract", "罚款", "罚款50万元。")
	k2 := Key("extract", "罚款", "罚款50万元。")
	k3 := Key("extract", "没收金额", "罚款50万元。")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, len("extract:")+32)

	// 分隔符避免拼接歧义
	assert.NotEqual(t, Key("p", "ab", "c"), Key("p", "a", "bc"))
}
