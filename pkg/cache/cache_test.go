package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yeisme/appvault/pkg/cache"
)

// blobEntry 测试用的缓存条目，模拟对象存储内容缓存.
type blobEntry struct {
	Hash string `json:"hash"`
	Data []byte `json:"data"`
	Size int64  `json:"size"`
}

// mockKVStore 模拟KV存储实现.
type mockKVStore struct {
	data map[string][]byte
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{
		data: make(map[string][]byte),
	}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if value, exists := m.data[key]; exists {
		return value, nil
	}

	return nil, fmt.Errorf("key not found")
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockKVStore) Exists(ctx context.Context, key string) (bool, error) {
	_, exists := m.data[key]
	return exists, nil
}

func (m *mockKVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}

	return keys, nil
}

func (m *mockKVStore) Close() error {
	return nil
}

// TestNewCache 测试 NewCache 函数.
func TestNewCache(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)

	if c == nil {
		t.Fatal("NewCache returned nil")
	}
}

// TestCacheSetGet 测试 Set/Get 往返.
func TestCacheSetGet(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	entry := blobEntry{Hash: "ab12cd34", Data: []byte("export default function App() {}"), Size: 32}

	if err := cache.Set(ctx, c, "blob:ab12cd34", entry, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get[blobEntry](ctx, c, "blob:ab12cd34")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Hash != entry.Hash || got.Size != entry.Size || string(got.Data) != string(entry.Data) {
		t.Fatalf("Get returned %+v, want %+v", got, entry)
	}
}

// TestCacheGetMiss 测试缓存未命中返回错误.
func TestCacheGetMiss(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)

	if _, err := cache.Get[blobEntry](context.Background(), c, "blob:missing"); err == nil {
		t.Fatal("expected error on cache miss")
	}
}

// TestCacheDelete 测试删除键.
func TestCacheDelete(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	if err := cache.Set(ctx, c, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if exists, _ := c.Exists(ctx, "k"); exists {
		t.Fatal("key should not exist after Delete")
	}
}

// TestCacheGetOrSet 测试 GetOrSet 模式.
func TestCacheGetOrSet(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	calls := 0
	getter := func() (blobEntry, error) {
		calls++
		return blobEntry{Hash: "h1", Data: []byte("body")}, nil
	}

	// 第一次调用 getter
	v1, err := cache.GetOrSet(ctx, c, "blob:h1", getter, time.Minute)
	if err != nil {
		t.Fatalf("GetOrSet failed: %v", err)
	}

	// 第二次命中缓存，getter 不再被调用
	v2, err := cache.GetOrSet(ctx, c, "blob:h1", getter, time.Minute)
	if err != nil {
		t.Fatalf("GetOrSet failed: %v", err)
	}

	if calls != 1 {
		t.Fatalf("getter called %d times, want 1", calls)
	}

	if v1.Hash != v2.Hash {
		t.Fatalf("values differ: %+v vs %+v", v1, v2)
	}
}

// TestCacheGetOrSetError 测试 getter 返回错误时不写缓存.
func TestCacheGetOrSetError(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	wantErr := errors.New("object store unavailable")

	_, err := cache.GetOrSet(ctx, c, "blob:bad", func() (blobEntry, error) {
		return blobEntry{}, wantErr
	}, time.Minute)
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrSet error = %v, want %v", err, wantErr)
	}

	if exists, _ := c.Exists(ctx, "blob:bad"); exists {
		t.Fatal("failed getter must not populate cache")
	}
}

// TestCacheClear 测试清空缓存.
func TestCacheClear(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	for i := range 3 {
		if err := cache.Set(ctx, c, fmt.Sprintf("k%d", i), i, 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, _ := mockStore.Keys(ctx, "*")
	if len(keys) != 0 {
		t.Fatalf("expected empty store after Clear, got %d keys", len(keys))
	}
}
