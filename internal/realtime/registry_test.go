package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	name   string
	closed bool

	mu   sync.Mutex
	sent [][]byte
}

func (h *fakeHandle) Open() bool { return !h.closed }

func (h *fakeHandle) Send(payload []byte) error {
	if h.closed {
		return ErrConnClosed
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, payload)
	return nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h := &fakeHandle{name: "h1"}

	_, ok := registry.Lookup("u1")
	req.False(ok)

	registry.Register("u1", h)

	got, ok := registry.Lookup("u1")
	req.True(ok)
	req.Same(h, got)
	req.Equal(1, registry.Len())
}

func TestRegistry_ReplaceThenLateUnregisterKeepsNewer(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h1 := &fakeHandle{name: "h1"}
	h2 := &fakeHandle{name: "h2"}

	// Given the same user authenticates twice
	registry.Register("u1", h1)
	registry.Register("u1", h2)

	got, ok := registry.Lookup("u1")
	req.True(ok)
	req.Same(h2, got)

	// When the superseded connection's close fires late
	_, removed := registry.Unregister(h1)

	// Then the newer mapping survives
	req.False(removed)
	got, ok = registry.Lookup("u1")
	req.True(ok)
	req.Same(h2, got)
	req.False(h1.closed, "replaced handle must not be closed by the registry")

	userID, removed := registry.Unregister(h2)
	req.True(removed)
	req.Equal("u1", userID)
	_, ok = registry.Lookup("u1")
	req.False(ok)
	req.Zero(registry.Len())
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("u1", &fakeHandle{})

	_, removed := registry.Unregister(&fakeHandle{})
	req.False(removed)
	req.Equal(1, registry.Len())
}

func TestRegistry_HandleMovedToAnotherUser(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h := &fakeHandle{}

	registry.Register("u1", h)
	registry.Register("u2", h)

	_, ok := registry.Lookup("u1")
	req.False(ok)
	got, ok := registry.Lookup("u2")
	req.True(ok)
	req.Same(h, got)
	req.Equal(1, registry.Len())
}

func TestRegistry_ConcurrentLifecycles(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const users = 20
	const rounds = 50
	var wg sync.WaitGroup
	finals := make([]*fakeHandle, users)
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", u)
			var prev *fakeHandle
			for i := 0; i < rounds; i++ {
				h := &fakeHandle{name: fmt.Sprintf("%s-%d", userID, i)}
				registry.Register(userID, h)
				if prev != nil {
					registry.Unregister(prev)
				}
				_, _ = registry.Lookup(userID)
				prev = h
			}
			finals[u] = prev
		}(u)
	}
	wg.Wait()

	req.Equal(users, registry.Len())
	for u := 0; u < users; u++ {
		got, ok := registry.Lookup(fmt.Sprintf("u%d", u))
		req.True(ok)
		req.Same(finals[u], got)
	}
}
