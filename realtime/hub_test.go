package realtime

import (
	"sync"
	"testing"
)

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestRegisterReturnsOnlineSnapshot(t *testing.T) {
	hub := NewHub()

	alice := newClient("alice", nil)
	online := hub.Register(alice)
	if len(online) != 1 || online[0] != "alice" {
		t.Fatalf("expected snapshot [alice], got %v", online)
	}

	bob := newClient("bob", nil)
	online = hub.Register(bob)
	if len(online) != 2 || !containsID(online, "alice") || !containsID(online, "bob") {
		t.Fatalf("expected snapshot with both users, got %v", online)
	}

	if !hub.IsOnline("alice") || !hub.IsOnline("bob") {
		t.Fatal("both users should be online")
	}
	if hub.IsOnline("carol") {
		t.Fatal("carol never connected")
	}
}

func TestRegisterReplacesPreviousConnection(t *testing.T) {
	hub := NewHub()

	first := newClient("alice", nil)
	hub.Register(first)
	second := newClient("alice", nil)
	hub.Register(second)

	current, ok := hub.Lookup("alice")
	if !ok || current != second {
		t.Fatal("newest connection should win")
	}
	if !first.closedForTest() {
		t.Fatal("replaced connection should be shut down")
	}
	if len(hub.OnlineIDs()) != 1 {
		t.Fatalf("expected one online entry, got %v", hub.OnlineIDs())
	}
}

func TestStaleUnregisterDoesNotEvictNewerConnection(t *testing.T) {
	hub := NewHub()

	first := newClient("alice", nil)
	hub.Register(first)
	second := newClient("alice", nil)
	hub.Register(second)

	// The old connection's disconnect arrives after the reconnect.
	if hub.Unregister(first) {
		t.Fatal("stale unregister must report no removal")
	}
	if !hub.IsOnline("alice") {
		t.Fatal("newer connection was evicted by a stale disconnect")
	}

	if !hub.Unregister(second) {
		t.Fatal("current connection's unregister should remove the entry")
	}
	if hub.IsOnline("alice") {
		t.Fatal("user should be offline after unregistering")
	}
}

func TestEnqueueAfterShutdownIsNoOp(t *testing.T) {
	c := newClient("alice", nil)
	c.shutdown()
	// Must not panic on the closed channel.
	c.enqueue([]byte("late frame"))
	c.shutdown()
}

func TestSlowConsumerIsShutDown(t *testing.T) {
	c := newClient("alice", nil)
	for i := 0; i <= sendBuffer; i++ {
		c.enqueue([]byte("frame"))
	}
	if !c.closedForTest() {
		t.Fatal("client with a full buffer should be shut down")
	}
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newClient("alice", nil)
			hub.Register(c)
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	// Every goroutine paired its register with an unregister, but a stale
	// unregister never removes a newer handle, so at most one entry can
	// linger and it must belong to the last registered client.
	if c, ok := hub.Lookup("alice"); ok {
		hub.Unregister(c)
	}
	if hub.IsOnline("alice") {
		t.Fatal("hub entry survived explicit unregister")
	}
}

func (c *Client) closedForTest() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
