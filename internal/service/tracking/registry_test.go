package tracking

import (
	"testing"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterIsLastWriterWins(t *testing.T) {
	r := NewRegistry()
	r.Attach("c1", &fakeSender{})
	r.Attach("c2", &fakeSender{})

	r.RegisterDriver("D", "B1", "c1")
	require.True(t, r.UpdateDriverLocation("D", models.Location{Lat: 1, Lng: 2}))
	r.RegisterDriver("D", "B2", "c2")

	s, ok := r.Driver("D")
	require.True(t, ok)
	assert.Equal(t, "c2", s.ConnID)
	assert.Equal(t, models.ID("B2"), s.BookingID)
	assert.Nil(t, s.LastLocation, "replacement does not merge the previous entry")
}

func TestRegistry_UpdateUnknownDriverDoesNotCreate(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.UpdateDriverLocation("ghost", models.Location{Lat: 1, Lng: 1}))
	_, ok := r.Driver("ghost")
	assert.False(t, ok)
}

func TestRegistry_RemoveByConnection(t *testing.T) {
	r := NewRegistry()
	r.Attach("c1", &fakeSender{})
	r.RegisterDriver("D", "B1", "c1")
	r.RegisterCustomer("C", "B1", "c1")
	r.RegisterCustomer("C2", "B1", "c2")

	removed := r.RemoveByConnection("c1")
	assert.ElementsMatch(t, []models.Identity{
		{Role: types.RoleDriver, UserID: "D", BookingID: "B1"},
		{Role: types.RoleCustomer, UserID: "C", BookingID: "B1"},
	}, removed)

	_, ok := r.Driver("D")
	assert.False(t, ok)
	_, ok = r.Customer("C2")
	assert.True(t, ok, "sessions of other connections survive")

	assert.Empty(t, r.RemoveByConnection("c1"))
}

func TestRegistry_RemoveSkipsReplacedSession(t *testing.T) {
	r := NewRegistry()
	r.RegisterDriver("D", "B1", "old")
	r.RegisterDriver("D", "B1", "new")

	assert.Empty(t, r.RemoveByConnection("old"))
	_, ok := r.Driver("D")
	assert.True(t, ok)
}

func TestRegistry_AllDriversWithLocation(t *testing.T) {
	r := NewRegistry()
	r.RegisterDriver("D1", "B1", "c1")
	r.RegisterDriver("D2", "B2", "c2")
	r.RegisterDriver("D3", "B3", "c3")
	r.UpdateDriverLocation("D1", models.Location{Lat: 1, Lng: 1})
	r.UpdateDriverLocation("D3", models.Location{Lat: 3, Lng: 3})

	collect := func() []models.DriverPosition {
		var out []models.DriverPosition
		for p := range r.AllDriversWithLocation() {
			out = append(out, p)
		}
		return out
	}

	want := []models.DriverPosition{
		{DriverID: "D1", BookingID: "B1", Location: models.Location{Lat: 1, Lng: 1}},
		{DriverID: "D3", BookingID: "B3", Location: models.Location{Lat: 3, Lng: 3}},
	}
	assert.ElementsMatch(t, want, collect())
	assert.ElementsMatch(t, want, collect(), "sequence is restartable")

	n := 0
	for range r.AllDriversWithLocation() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestRegistry_ConnState(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, StateClosed, r.State("c1"))

	r.Attach("c1", &fakeSender{})
	assert.Equal(t, StateUnjoined, r.State("c1"))

	r.RegisterCustomer("C", "B1", "c1")
	assert.Equal(t, StateJoined, r.State("c1"))

	r.Detach("c1")
	assert.Equal(t, StateClosed, r.State("c1"))
	assert.Equal(t, "closed", r.State("c1").String())
}
