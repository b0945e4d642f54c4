package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutReplaces(t *testing.T) {
	store := NewStore(100, time.Minute, time.Second)

	store.Put("user-1", New("https://youtu.be/first", testInfo()))
	store.Put("user-1", New("https://youtu.be/second", testInfo()))

	sess, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, "https://youtu.be/second", sess.URL())
	assert.Equal(t, 1, store.Len())
}

func TestStore_GetAbsent(t *testing.T) {
	store := NewStore(100, time.Minute, time.Second)

	sess, ok := store.Get("nobody")

	assert.False(t, ok)
	assert.Nil(t, sess)
}

func TestStore_DeleteIdempotent(t *testing.T) {
	store := NewStore(100, time.Minute, time.Second)
	store.Put("user-1", New("https://youtu.be/x", testInfo()))

	store.Delete("user-1")
	store.Delete("user-1") // second delete is a no-op

	_, ok := store.Get("user-1")
	assert.False(t, ok)
}

func TestStore_TTLExpiry(t *testing.T) {
	store := NewStore(100, 20*time.Millisecond, 5*time.Millisecond)
	store.Start()
	defer store.Stop()

	store.Put("user-1", New("https://youtu.be/x", testInfo()))
	time.Sleep(60 * time.Millisecond)

	_, ok := store.Get("user-1")
	assert.False(t, ok, "session should be evicted after TTL")
	assert.Equal(t, 0, store.Len())
}

func TestStore_GetRefreshesTTL(t *testing.T) {
	store := NewStore(100, 50*time.Millisecond, time.Hour)

	store.Put("user-1", New("https://youtu.be/x", testInfo()))
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		_, ok := store.Get("user-1")
		require.True(t, ok, "touched session must stay alive past the original TTL")
	}
}

func TestStore_CapacityEviction(t *testing.T) {
	store := NewStore(3, time.Minute, time.Hour)

	for i := 0; i < 3; i++ {
		store.Put(fmt.Sprintf("user-%d", i), New("https://youtu.be/x", testInfo()))
		time.Sleep(time.Millisecond)
	}
	store.Put("user-3", New("https://youtu.be/x", testInfo()))

	assert.Equal(t, 3, store.Len())
	_, ok := store.Get("user-0")
	assert.False(t, ok, "stalest session is evicted when the store is full")
	_, ok = store.Get("user-3")
	assert.True(t, ok)
}
