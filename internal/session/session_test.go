package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr:     mr.Addr(),
		Protocol: 2,
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	sess := &Session{ID: "s1", Role: RoleHospital}
	got, ok := FromContext(WithSession(context.Background(), sess))
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID)

	_, ok = FromContext(WithSession(context.Background(), nil))
	assert.False(t, ok)
}

func TestRedisStore_SaveGetDelete(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	sess := &Session{ID: "abc", UserID: "u1", Email: "ops@lotus.care", Role: RoleHospital, HospitalID: "h1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, sess))
	assert.True(t, mr.Exists("session:abc"))
	assert.Greater(t, mr.TTL("session:abc"), time.Duration(0))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.HospitalID)
	assert.Equal(t, RoleHospital, got.Role)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "short", ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ExpiredIsNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "old", ExpiresAt: time.Now().Add(-time.Second)}))
	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_CreateAndLookup(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store, nil, time.Hour, nil)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, Identity{UserID: "u1", Email: "pat@example.com"})
	require.NoError(t, err)
	assert.Equal(t, RolePatient, sess.Role)
	assert.WithinDuration(t, sess.CreatedAt.Add(time.Hour), sess.ExpiresAt, time.Second)
	assert.True(t, mgr.Cached(sess.ID))

	got, err := mgr.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", got.Email)

	_, err = mgr.Lookup(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_LookupExpiredCacheEntry(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), nil, time.Minute, nil)
	sess, err := mgr.Create(context.Background(), Identity{UserID: "u1"})
	require.NoError(t, err)

	mgr.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = mgr.Lookup(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mgr.Cached(sess.ID))
}

func TestManager_SweepDropsSessionsNobodyLooksUp(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store, nil, time.Millisecond, nil)
	ctx := context.Background()

	ids := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		sess, err := mgr.Create(ctx, Identity{UserID: "u"})
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}
	live, err := NewManager(store, nil, time.Hour, nil).Create(ctx, Identity{UserID: "stays"})
	require.NoError(t, err)
	mgr.remember(live)

	assert.Equal(t, 100, mgr.Sweep(time.Now().Add(20*time.Millisecond)))
	for _, id := range ids {
		assert.False(t, mgr.Cached(id))
	}
	assert.True(t, mgr.Cached(live.ID))

	store.mu.RLock()
	remaining := len(store.sessions)
	store.mu.RUnlock()
	assert.Equal(t, 1, remaining)
}

func TestManager_RunSweeperStopsWithContext(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), nil, time.Millisecond, nil)
	sess, err := mgr.Create(context.Background(), Identity{UserID: "u"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !mgr.Cached(sess.ID) }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestManager_RevokeEvictsOtherReplicas(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisStore(client)

	issuer := NewManager(store, NewRedisNotifier(client, ""), time.Hour, nil)
	replica := NewManager(store, NewRedisNotifier(client, ""), time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- replica.Run(ctx) }()

	sess, err := issuer.Create(ctx, Identity{UserID: "u1", Role: RoleHospital, HospitalID: "h1"})
	require.NoError(t, err)

	_, err = replica.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, replica.Cached(sess.ID))

	require.NoError(t, issuer.Revoke(ctx, sess.ID))
	assert.False(t, issuer.Cached(sess.ID))

	// The replica may subscribe after the first broadcast; republish until
	// it observes one.
	notifier := NewRedisNotifier(client, "")
	require.Eventually(t, func() bool {
		_ = notifier.Publish(ctx, sess.ID)
		return !replica.Cached(sess.ID)
	}, 2*time.Second, 20*time.Millisecond)

	_, err = replica.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestMemoryNotifier_FanOut(t *testing.T) {
	notifier := NewMemoryNotifier()
	ctx, cancel := context.WithCancel(context.Background())

	a, err := notifier.Subscribe(ctx)
	require.NoError(t, err)
	b, err := notifier.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, notifier.Publish(context.Background(), "s1"))
	assert.Equal(t, "s1", <-a)
	assert.Equal(t, "s1", <-b)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-a
		return !open
	}, time.Second, 10*time.Millisecond)
}
