package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gelatohub/painel/internal/domain/presence"
)

type memoryPresence struct {
	mu      sync.Mutex
	entries map[string]presence.Entry
	err     error
}

func newMemoryPresence() *memoryPresence {
	return &memoryPresence{entries: map[string]presence.Entry{}}
}

func (m *memoryPresence) Track(_ context.Context, e presence.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries[e.UserID] = e
	return nil
}

func (m *memoryPresence) Remove(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return m.err
}

func (m *memoryPresence) Online(_ context.Context, since time.Time) ([]presence.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []presence.Entry
	for _, e := range m.entries {
		if !e.OnlineAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memoryPresence) Count(ctx context.Context, since time.Time) (int, error) {
	users, err := m.Online(ctx, since)
	return len(users), err
}

func (m *memoryPresence) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for id, e := range m.entries {
		if e.OnlineAt.Before(before) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

func newTestPresence(t *testing.T, store *memoryPresence, now time.Time) *PresenceService {
	t.Helper()
	svc, err := NewPresenceService(PresenceServiceOptions{
		Store:         store,
		TTL:           time.Minute,
		SweepInterval: 10 * time.Millisecond,
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func TestNewPresenceService_RequiresStore(t *testing.T) {
	_, err := NewPresenceService(PresenceServiceOptions{})
	assert.Error(t, err)
}

func TestPresence_TrackDefaultsPage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryPresence()
	svc := newTestPresence(t, store, now)

	svc.Track(context.Background(), presence.Entry{UserID: "u-1", Email: "a@b.com"})
	svc.Track(context.Background(), presence.Entry{UserID: "u-2", Page: "/painel/produtos.html"})

	snap := svc.Online(context.Background())
	require.Equal(t, 2, snap.Count)
	assert.Equal(t, presence.DefaultPage, snap.Users[0].Page)
	assert.Equal(t, now, snap.Users[0].OnlineAt)
	assert.Equal(t, "produtos.html", snap.Users[1].Page)
}

func TestPresence_StaleEntriesExcludedAndSwept(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryPresence()
	svc := newTestPresence(t, store, now)

	svc.Track(context.Background(), presence.Entry{UserID: "fresh", OnlineAt: now.Add(-10 * time.Second)})
	svc.Track(context.Background(), presence.Entry{UserID: "stale", OnlineAt: now.Add(-5 * time.Minute)})

	assert.Equal(t, 1, svc.Count(context.Background()))

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, store.entries, 1)
}

func TestPresence_Untrack(t *testing.T) {
	store := newMemoryPresence()
	svc := newTestPresence(t, store, time.Now())

	svc.Track(context.Background(), presence.Entry{UserID: "u-1"})
	svc.Untrack(context.Background(), "u-1")
	assert.Zero(t, svc.Count(context.Background()))
}

func TestPresence_FailuresAreSwallowed(t *testing.T) {
	store := newMemoryPresence()
	store.err = errors.New("redis down")
	svc := newTestPresence(t, store, time.Now())

	assert.NotPanics(t, func() {
		svc.Track(context.Background(), presence.Entry{UserID: "u-1"})
		svc.Untrack(context.Background(), "u-1")
	})
	assert.Zero(t, svc.Count(context.Background()))
	snap := svc.Online(context.Background())
	assert.Zero(t, snap.Count)
	assert.NotNil(t, snap.Users)

	_, err := svc.Sweep(context.Background())
	assert.Error(t, err)
}

func TestPresence_RunStopsOnCancel(t *testing.T) {
	now := time.Now()
	store := newMemoryPresence()
	store.entries["old"] = presence.Entry{UserID: "old", OnlineAt: now.Add(-time.Hour)}
	svc := newTestPresence(t, store, now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.entries) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
