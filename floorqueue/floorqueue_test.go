package floorqueue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"elevatorsim/floorqueue"
	"elevatorsim/hallbutton"
	"elevatorsim/passenger"
)

func newPassenger(id int) *passenger.Passenger {
	return passenger.New(id, "", 0, []passenger.Journey{{ArrivalFloor: 1, DestinationFloor: 5}})
}

func TestEnqueueDirectionalFIFO(t *testing.T) {
	m := floorqueue.NewManager()
	p1, p2 := newPassenger(1), newPassenger(2)
	m.EnqueueDirectional(1, hallbutton.Up, p1)
	m.EnqueueDirectional(1, hallbutton.Up, p2)

	head, ok := m.PopFrontDirectional(1, hallbutton.Up)
	require.True(t, ok)
	require.Equal(t, p1, head)

	head, ok = m.PopFrontDirectional(1, hallbutton.Up)
	require.True(t, ok)
	require.Equal(t, p2, head)

	_, ok = m.PopFrontDirectional(1, hallbutton.Up)
	require.False(t, ok)
}

func TestOneQueueInvariant(t *testing.T) {
	m := floorqueue.NewManager()
	p := newPassenger(1)

	m.EnqueueDirectional(1, hallbutton.Up, p)
	floor, isDCS, dir, ok := m.QueueOf(p)
	require.True(t, ok)
	require.False(t, isDCS)
	require.Equal(t, 1, floor)
	require.Equal(t, int(hallbutton.Up), dir)

	// Re-enqueuing elsewhere must remove it from the first queue.
	m.EnqueueDCS(1, 7, p)
	require.Empty(t, m.Directional(1, hallbutton.Up))

	floor, isDCS, car, ok := m.QueueOf(p)
	require.True(t, ok)
	require.True(t, isDCS)
	require.Equal(t, 1, floor)
	require.Equal(t, 7, car)
}

func TestMoveToCarQueueReassigns(t *testing.T) {
	m := floorqueue.NewManager()
	p := newPassenger(1)
	m.EnqueueDCS(2, 1, p)
	m.MoveToCarQueue(2, 3, p)

	require.Empty(t, m.DCS(2, 1))
	require.Equal(t, []*passenger.Passenger{p}, m.DCS(2, 3))
}

func TestRemoveDropsWithoutReinserting(t *testing.T) {
	m := floorqueue.NewManager()
	p := newPassenger(1)
	m.EnqueueDirectional(4, hallbutton.Down, p)
	m.Remove(p)

	_, _, _, ok := m.QueueOf(p)
	require.False(t, ok)
	require.Empty(t, m.Directional(4, hallbutton.Down))
}

func TestDirectionalViewSatisfiesDoorQueue(t *testing.T) {
	m := floorqueue.NewManager()
	p1, p2 := newPassenger(1), newPassenger(2)
	m.EnqueueDirectional(1, hallbutton.Up, p1)
	m.EnqueueDirectional(1, hallbutton.Up, p2)

	v := m.DirectionalQueue(1, hallbutton.Up)
	snap := v.Snapshot()
	require.Len(t, snap, 2)

	head, ok := v.Front()
	require.True(t, ok)
	require.Equal(t, p1, head)

	popped, ok := v.PopFront()
	require.True(t, ok)
	require.Equal(t, p1, popped)
}
