package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (f *fakeConn) TrySend(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestRoom_AddMemberIsIdempotent(t *testing.T) {
	r := NewRoomService("lead-1")
	c := &fakeConn{}

	added, err := r.AddMember("a", c)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.AddMember("a", c)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, r.MemberCount())
}

func TestRoom_RemoveMissingMemberIsNoop(t *testing.T) {
	r := NewRoomService("lead-1")
	assert.False(t, r.RemoveMember("ghost"))

	_, _ = r.AddMember("a", &fakeConn{})
	assert.True(t, r.RemoveMember("a"))
	assert.False(t, r.RemoveMember("a"))
	assert.Empty(t, r.Members())
}

func TestRoom_BroadcastExclude(t *testing.T) {
	r := NewRoomService("lead-1")
	a, b := &fakeConn{}, &fakeConn{}
	_, _ = r.AddMember("a", a)
	_, _ = r.AddMember("b", b)

	res := r.Broadcast("", Frame("x"))
	assert.Equal(t, 2, res.SentTo)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())

	res = r.Broadcast("a", Frame("y"))
	assert.Equal(t, 1, res.SentTo)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 2, b.count())
}

func TestRoom_BroadcastReportsDropped(t *testing.T) {
	r := NewRoomService("lead-1")
	ok, full, dead := &fakeConn{}, &fakeConn{err: ErrBackpressure}, &fakeConn{err: ErrConnClosed}
	_, _ = r.AddMember("ok", ok)
	_, _ = r.AddMember("full", full)
	_, _ = r.AddMember("dead", dead)

	res := r.Broadcast("", Frame("x"))
	assert.Equal(t, 1, res.SentTo)
	assert.ElementsMatch(t, []ConnectionID{"full", "dead"}, res.Dropped)
}

func TestRoom_StopOnlyWhenEmpty(t *testing.T) {
	r := NewRoomService("lead-1")
	_, _ = r.AddMember("a", &fakeConn{})
	assert.False(t, r.Stop())

	r.RemoveMember("a")
	assert.True(t, r.Stop())

	_, err := r.AddMember("b", &fakeConn{})
	assert.ErrorIs(t, err, ErrRoomStopped)
}
