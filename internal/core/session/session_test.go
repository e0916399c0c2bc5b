package session

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"fridge-helper/internal/core/recipe"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFridgeAdd(t *testing.T) {
	var f Fridge
	added := f.Add([]string{"霜降牛小排", "洋蔥", " 洋 蔥 ", "", "Egg", "egg"})
	assert.Equal(t, []string{"霜降牛小排", "洋蔥", "Egg"}, added)
	assert.Equal(t, []string{"霜降牛小排", "洋蔥", "Egg"}, f.List())

	assert.Empty(t, f.Add([]string{"洋蔥"}))
	assert.Equal(t, 3, f.Len())
}

func TestFridgeRemoveFuzzy(t *testing.T) {
	var f Fridge
	f.Add([]string{"霜降牛小排", "洋蔥", "雞腿排", "蒜"})

	removed := f.Remove([]string{"牛小排"})
	assert.Equal(t, []string{"霜降牛小排"}, removed)

	// 目標包含冰箱項目也算
	removed = f.Remove([]string{"大蒜頭"})
	assert.Equal(t, []string{"蒜"}, removed)

	assert.Empty(t, f.Remove([]string{"豆腐"}))
	assert.Empty(t, f.Remove([]string{" "}))
	assert.Equal(t, []string{"洋蔥", "雞腿排"}, f.List())
}

func TestSessionTextAndReset(t *testing.T) {
	s := New("u1")
	assert.Equal(t, "你的冰箱目前：（空的）", s.FridgeText())

	s.Fridge.Add([]string{"洋蔥", "雞蛋"})
	s.RecentRecipes = []recipe.Recipe{{Name: "洋蔥炒蛋"}}
	s.LastTitles = []string{"洋蔥炒蛋"}
	s.LastUsed = []string{"洋蔥"}
	s.StepView = &StepView{RecipeName: "洋蔥炒蛋"}
	assert.Equal(t, "你的冰箱目前：洋蔥、雞蛋", s.FridgeText())

	s.Reset()
	assert.Zero(t, s.Fridge.Len())
	assert.Nil(t, s.RecentRecipes)
	assert.Nil(t, s.LastTitles)
	assert.Nil(t, s.LastUsed)
	assert.Nil(t, s.StepView)
}

func TestStepViewMove(t *testing.T) {
	v := &StepView{Steps: make([]string, 12)}
	assert.Equal(t, 2, v.MaxPage(5))

	assert.Equal(t, 0, v.Move(-1, 5))
	assert.Equal(t, 1, v.Move(1, 5))
	assert.Equal(t, 2, v.Move(1, 5))
	assert.Equal(t, 2, v.Move(1, 5))
	assert.Equal(t, 1, v.Move(-1, 5))

	empty := &StepView{}
	assert.Equal(t, 0, empty.MaxPage(5))
	assert.Equal(t, 0, empty.Move(3, 5))
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore(time.Hour, 0)
	defer store.Close()
	ctx := context.Background()

	s, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Zero(t, s.Fridge.Len())

	s.Fridge.Add([]string{"洋蔥"})
	require.NoError(t, store.Save(ctx, s))

	// 儲存後修改呼叫端的副本不影響已保存的資料
	s.Fridge.Add([]string{"雞蛋"})

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"洋蔥"}, loaded.Fridge.List())
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore(time.Minute, 0)
	defer store.Close()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s := New("u1")
	s.Fridge.Add([]string{"洋蔥"})
	require.NoError(t, store.Save(ctx, s))

	now = now.Add(2 * time.Minute)
	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, loaded.Fridge.Len())

	assert.Equal(t, 1, store.cleanup())
	assert.Equal(t, 0, store.Len())
}

func TestLockerSerializesSameUser(t *testing.T) {
	l := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("u1")
			defer unlock()

			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, l.locks)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisStore(client, time.Minute)
	userID := "test-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, store.key(userID))

	s, err := store.Load(ctx, userID)
	require.NoError(t, err)
	s.Fridge.Add([]string{"洋蔥", "雞蛋"})
	s.StepView = &StepView{RecipeName: "洋蔥炒蛋", Steps: []string{"a"}, ImageURLs: []string{""}}
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"洋蔥", "雞蛋"}, loaded.Fridge.List())
	require.NotNil(t, loaded.StepView)
	assert.Equal(t, "洋蔥炒蛋", loaded.StepView.RecipeName)

	ttl, err := client.TTL(ctx, redisKeyPrefix+userID).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}
