package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(map[string]any{"pipeline.k_clusters": 5})

	assert.Equal(t, 5, store.GetInt("pipeline.k_clusters"))
	assert.Equal(t, []string{"pipeline.k_clusters"}, store.Keys())
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.model", "original"))
	require.NoError(t, store.Set("llm.model", "updated"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := NewConfigStore()

	val, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_GetInt_Conversions(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"int":     7,
		"int64":   int64(8),
		"float64": float64(9),
		"string":  "10",
		"bad":     "ten",
		"bool":    true,
	})

	assert.Equal(t, 7, store.GetInt("int"))
	assert.Equal(t, 8, store.GetInt("int64"))
	assert.Equal(t, 9, store.GetInt("float64"))
	assert.Equal(t, 10, store.GetInt("string"))
	assert.Zero(t, store.GetInt("bad"))
	assert.Zero(t, store.GetInt("bool"))
}

func TestConfigStore_GetBool_Conversions(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"native": true,
		"string": "true",
		"number": 1,
	})

	assert.True(t, store.GetBool("native"))
	assert.True(t, store.GetBool("string"))
	assert.False(t, store.GetBool("number"))
}

func TestConfigStore_GetString_WrongType(t *testing.T) {
	store := NewConfigStore(map[string]any{"k": 42})
	assert.Empty(t, store.GetString("k"))
}

func TestConfigStore_Keys_Sorted(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("retry.max_attempts", 3))
	require.NoError(t, store.Set("cache.backend", "memory"))
	require.NoError(t, store.Set("llm.provider", "stub"))

	assert.Equal(t, []string{"cache.backend", "llm.provider", "retry.max_attempts"}, store.Keys())
}

func TestConfigStore_Concurrency_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("shared", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("shared")
		}()
	}
	wg.Wait()

	_, ok := store.Get("shared")
	assert.True(t, ok)
}
