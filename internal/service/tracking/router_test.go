package tracking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_JoinIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	r := NewRouter(reg)

	r.Join("c1", "booking-B1")
	r.Join("c1", "booking-B1")

	assert.Equal(t, []string{"c1"}, r.Members("booking-B1"))
	assert.Equal(t, []string{"booking-B1"}, r.Topics("c1"))
}

func TestRouter_BroadcastToEmptyTopic(t *testing.T) {
	r := NewRouter(NewRegistry())

	d, err := r.Broadcast("booking-nobody", "status-update", map[string]string{"status": "x"})
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestRouter_BroadcastReachesEveryMember(t *testing.T) {
	reg := NewRegistry()
	a, b, other := &fakeSender{}, &fakeSender{}, &fakeSender{}
	reg.Attach("a", a)
	reg.Attach("b", b)
	reg.Attach("other", other)

	r := NewRouter(reg)
	r.Join("a", "booking-B1")
	r.Join("b", "booking-B1")
	r.Join("other", "booking-B2")

	d, err := r.Broadcast("booking-B1", "chat-message", map[string]string{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, Delivery{Delivered: 2}, d)

	assert.Len(t, a.events("chat-message"), 1)
	assert.Len(t, b.events("chat-message"), 1)
	assert.Zero(t, other.count())
	assert.Equal(t, "hi", a.events("chat-message")[0]["message"])
}

func TestRouter_BroadcastCountsDrops(t *testing.T) {
	reg := NewRegistry()
	reg.Attach("ok", &fakeSender{})
	reg.Attach("broken", &fakeSender{fail: errors.New("queue full")})

	r := NewRouter(reg)
	r.Join("ok", "booking-B1")
	r.Join("broken", "booking-B1")
	r.Join("detached", "booking-B1")

	d, err := r.Broadcast("booking-B1", "eta-update", map[string]int{"eta": 3})
	require.NoError(t, err)
	assert.Equal(t, Delivery{Delivered: 1, Dropped: 2}, d)
}

func TestRouter_BroadcastRejectsUnencodable(t *testing.T) {
	reg := NewRegistry()
	reg.Attach("a", &fakeSender{})
	r := NewRouter(reg)
	r.Join("a", "booking-B1")

	_, err := r.Broadcast("booking-B1", "status-update", func() {})
	assert.Error(t, err)
}

func TestRouter_LeaveAll(t *testing.T) {
	r := NewRouter(NewRegistry())
	r.Join("a", "driver-D")
	r.Join("a", "booking-B1")
	r.Join("b", "booking-B1")

	assert.Equal(t, 2, r.LeaveAll("a"))
	assert.Empty(t, r.Topics("a"))
	assert.Equal(t, []string{"b"}, r.Members("booking-B1"))
	assert.Equal(t, 1, r.Len(), "empty personal topic is removed")

	assert.Zero(t, r.LeaveAll("a"))
}
