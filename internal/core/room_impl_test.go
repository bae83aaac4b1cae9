package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/internal/domain"
)

type fakeConn struct {
	mu   sync.Mutex
	sent []Frame
	fail error
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sent = append(c.sent, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.sent...)
}

func TestRoom_Join_EvictsSameUsername(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("r1")
	old := &fakeConn{}
	fresh := &fakeConn{}

	// Given alice is connected
	req.Nil(room.Join("alice", old))
	req.Equal(1, room.MemberCount())

	// When alice reconnects under the same name
	evicted := room.Join("alice", fresh)

	// Then the old connection is evicted and only one member remains
	req.Same(old, evicted)
	req.Equal(1, room.MemberCount())
}

func TestRoom_Leave_ByConnectionIdentity(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("r1")
	old := &fakeConn{}
	fresh := &fakeConn{}

	room.Join("alice", old)
	room.Join("alice", fresh) // evicts old

	// When the stale connection finally disconnects
	user, removed := room.Leave(old)

	// Then the newer session is untouched and alice stays online
	req.False(removed)
	req.Empty(user)
	req.Equal(1, room.MemberCount())
	seen, ok := room.LastSeen("alice")
	req.True(ok)
	req.Nil(seen)

	// When the live connection disconnects
	user, removed = room.Leave(fresh)

	// Then alice is gone and marked offline with a timestamp
	req.True(removed)
	req.Equal(domain.Username("alice"), user)
	req.Equal(0, room.MemberCount())
	seen, ok = room.LastSeen("alice")
	req.True(ok)
	req.NotNil(seen)
	req.WithinDuration(time.Now(), *seen, time.Second)
}

func TestRoom_LastSeen_NeverSeen(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("r1")

	seen, ok := room.LastSeen("ghost")
	req.False(ok)
	req.Nil(seen)
}

func TestRoom_Broadcast_ExcludesSender(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("r1")
	alice := &fakeConn{}
	bob := &fakeConn{}
	carol := &fakeConn{}
	room.Join("alice", alice)
	room.Join("bob", bob)
	room.Join("carol", carol)

	res := room.Broadcast("alice", Frame(`{"type":"message","text":"hi"}`))

	req.Equal(2, res.SentTo)
	req.Zero(res.Dropped)
	req.Empty(alice.frames())
	req.Len(bob.frames(), 1)
	req.Len(carol.frames(), 1)
	req.Equal(Frame(`{"type":"message","text":"hi"}`), bob.frames()[0])
}

func TestRoom_Broadcast_FailedMemberDoesNotStopOthers(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("r1")
	broken := &fakeConn{fail: errors.New("closed")}
	bob := &fakeConn{}
	carol := &fakeConn{}
	room.Join("alice", broken)
	room.Join("bob", bob)
	room.Join("carol", carol)

	res := room.BroadcastAll(Frame(`ping`))

	req.Equal(2, res.SentTo)
	req.Equal(1, res.Dropped)
	req.Len(bob.frames(), 1)
	req.Len(carol.frames(), 1)
}

func TestRoom_ConcurrentChurn_SingleMemberPerUsername(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("r1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			room.Join("alice", c)
			room.Leave(c)
		}()
	}
	wg.Wait()

	// At most one live entry per username at any observation point;
	// after the churn settles the count is 0 or 1.
	req.LessOrEqual(room.MemberCount(), 1)
}

func TestRoomManager_GetOrCreate_ReturnsSameRoom(t *testing.T) {
	req := require.New(t)
	mgr := NewRoomManager()

	r1 := mgr.GetOrCreate("r1")
	r2 := mgr.GetOrCreate("r1")
	req.Same(r1, r2)

	r1.Join("alice", &fakeConn{})
	infos := mgr.List()
	req.Len(infos, 1)
	req.Equal(domain.RoomName("r1"), infos[0].Name)
	req.Equal(1, infos[0].MemberCount)
}
