package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"relaygo/internal/models"
	"relaygo/internal/storage"
)

func seedLog(t *testing.T, hub *Hub, contents ...string) {
	t.Helper()
	for _, c := range contents {
		if _, err := hub.log.Append(context.Background(), c, "carol"); err != nil {
			t.Fatalf("seed append %q: %v", c, err)
		}
	}
}

func TestRecoveredSessionReplaysExactlyMissed(t *testing.T) {
	hub, _, _ := newTestHub(t)
	seedLog(t, hub, "one", "two", "three")

	_, bob := connectSession(t, hub, "bob", 0, false)
	alice, aliceConn := connectSession(t, hub, "alice", 2, true)

	f := awaitChat(t, aliceConn)
	if f.Position != "3" || f.Content != "three" || f.Author != "carol" {
		t.Fatalf("replay delivered %+v, want exactly the message at position 3", f)
	}

	sendChat(bob, "four")
	if f := awaitChat(t, aliceConn); f.Position != "4" || f.Content != "four" {
		t.Fatalf("live delivery after replay = %+v, want position 4", f)
	}
	if st := alice.State(); st != StateLive {
		t.Fatalf("session state = %d, want StateLive", st)
	}
}

func TestFreshSessionGetsNoReplay(t *testing.T) {
	hub, _, _ := newTestHub(t)
	seedLog(t, hub, "one", "two", "three")

	_, alice := connectSession(t, hub, "alice", 0, false)

	sendChat(alice, "now")
	if f := awaitChat(t, alice); f.Position != "4" || f.Content != "now" {
		t.Fatalf("first delivery = %+v; a fresh session must not be replayed history", f)
	}
}

func TestReplayErrorAbortsButSessionGoesLive(t *testing.T) {
	hub, _, db := newTestHub(t)
	if _, err := db.Exec(`DROP TABLE messages`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, alice := connectSession(t, hub, "alice", 0, true)
	// Let the doomed replay read run before the schema comes back.
	time.Sleep(100 * time.Millisecond)

	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("restore schema: %v", err)
	}
	sendChat(alice, "hello")
	if f := awaitChat(t, alice); f.Content != "hello" || f.Position != "1" {
		t.Fatalf("post-replay delivery = %+v, want hello at position 1", f)
	}
}

// gatedConn blocks the first chat-frame write until released, holding a
// session in its replay phase while live traffic accumulates.
type gatedConn struct {
	*fakeConn
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func (c *gatedConn) WriteJSON(v interface{}) error {
	if f, ok := v.(models.Frame); ok && f.Event == models.EventChatMessage {
		c.once.Do(func() {
			close(c.started)
			<-c.gate
		})
	}
	return c.fakeConn.WriteJSON(v)
}

func TestLiveTrafficNeverOvertakesReplay(t *testing.T) {
	hub, _, _ := newTestHub(t)
	seedLog(t, hub, "one", "two", "three")

	_, bob := connectSession(t, hub, "bob", 0, false)

	gc := &gatedConn{
		fakeConn: newFakeConn(),
		gate:     make(chan struct{}),
		started:  make(chan struct{}),
	}
	alice := NewSession(hub, gc, "alice", 0, true)
	go alice.WritePump(context.Background(), "sid-alice")
	go alice.ReadPump()
	t.Cleanup(func() { gc.Close() })

	if f := awaitFrame(t, gc.fakeConn); f.Event != models.EventSession {
		t.Fatalf("first frame = %+v, want session", f)
	}
	<-gc.started
	if st := alice.State(); st != StateRecovering {
		t.Fatalf("session state = %d, want StateRecovering", st)
	}

	// A live publish lands while alice is still mid-replay; it must queue
	// behind the remaining history.
	sendChat(bob, "four")
	if f := awaitChat(t, bob); f.Position != "4" {
		t.Fatalf("bob saw %+v, want position 4", f)
	}

	close(gc.gate)

	want := []struct{ pos, content string }{
		{"1", "one"}, {"2", "two"}, {"3", "three"}, {"4", "four"},
	}
	for i, w := range want {
		f := awaitChat(t, gc.fakeConn)
		if f.Position != w.pos || f.Content != w.content {
			t.Fatalf("delivery %d = %+v, want position %s content %q", i, f, w.pos, w.content)
		}
	}
	select {
	case f := <-gc.outbound:
		t.Fatalf("unexpected extra delivery %+v", f)
	case <-time.After(100 * time.Millisecond):
	}
}
