// Package floorqueue is the single place that knows whether a floor's
// waiting passengers are queued by direction (Traditional) or by assigned
// car (DCS). It enforces the invariant that a waiting passenger occupies
// exactly one queue at any moment: every insertion removes the passenger
// from wherever it previously sat first.
package floorqueue

import (
	"elevatorsim/hallbutton"
	"elevatorsim/passenger"
)

type dirKey struct {
	floor int
	dir   hallbutton.Direction
}

type carKey struct {
	floor int
	car   int
}

type location struct {
	isDCS bool
	dir   dirKey
	car   carKey
}

// Manager owns every floor's waiting queues, directional and DCS alike.
type Manager struct {
	directional map[dirKey][]*passenger.Passenger
	dcs         map[carKey][]*passenger.Passenger
	at          map[int]location // passenger id -> current queue
}

// NewManager constructs an empty floor queue manager.
func NewManager() *Manager {
	return &Manager{
		directional: make(map[dirKey][]*passenger.Passenger),
		dcs:         make(map[carKey][]*passenger.Passenger),
		at:          make(map[int]location),
	}
}

func (m *Manager) removeFromCurrent(p *passenger.Passenger) {
	loc, ok := m.at[p.ID]
	if !ok {
		return
	}
	if loc.isDCS {
		m.dcs[loc.car] = removePassenger(m.dcs[loc.car], p)
	} else {
		m.directional[loc.dir] = removePassenger(m.directional[loc.dir], p)
	}
	delete(m.at, p.ID)
}

func removePassenger(list []*passenger.Passenger, target *passenger.Passenger) []*passenger.Passenger {
	for i, p := range list {
		if p == target {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// EnqueueDirectional places p in floor's direction queue (Traditional),
// first removing it from wherever it previously waited.
func (m *Manager) EnqueueDirectional(floor int, dir hallbutton.Direction, p *passenger.Passenger) {
	m.removeFromCurrent(p)
	k := dirKey{floor, dir}
	m.directional[k] = append(m.directional[k], p)
	m.at[p.ID] = location{isDCS: false, dir: k}
}

// EnqueueDCS places p in car's DCS queue at floor, first removing it from
// wherever it previously waited. This is the move-then-insert operation
// DCS reassignment relies on.
func (m *Manager) EnqueueDCS(floor, car int, p *passenger.Passenger) {
	m.removeFromCurrent(p)
	k := carKey{floor, car}
	m.dcs[k] = append(m.dcs[k], p)
	m.at[p.ID] = location{isDCS: true, car: k}
}

// MoveToCarQueue reassigns p from its current DCS queue (if any) to a
// different car's queue at the same floor, preserving the one-queue
// invariant via remove-before-insert.
func (m *Manager) MoveToCarQueue(floor, newCar int, p *passenger.Passenger) {
	m.EnqueueDCS(floor, newCar, p)
}

// Remove drops p from whatever queue currently holds it, without
// re-inserting it anywhere (used when a passenger boards or is otherwise
// no longer waiting).
func (m *Manager) Remove(p *passenger.Passenger) {
	m.removeFromCurrent(p)
}

// Directional returns a live view of floor's directional queue. Callers
// must not retain the slice past further mutation of the manager.
func (m *Manager) Directional(floor int, dir hallbutton.Direction) []*passenger.Passenger {
	return m.directional[dirKey{floor, dir}]
}

// DCS returns a live view of car's DCS queue at floor.
func (m *Manager) DCS(floor, car int) []*passenger.Passenger {
	return m.dcs[carKey{floor, car}]
}

// PopFrontDirectional removes and returns the head of floor's directional
// queue, or (nil, false) if empty.
func (m *Manager) PopFrontDirectional(floor int, dir hallbutton.Direction) (*passenger.Passenger, bool) {
	k := dirKey{floor, dir}
	q := m.directional[k]
	if len(q) == 0 {
		return nil, false
	}
	head := q[0]
	m.directional[k] = q[1:]
	delete(m.at, head.ID)
	return head, true
}

// PopFrontDCS removes and returns the head of car's DCS queue at floor, or
// (nil, false) if empty.
func (m *Manager) PopFrontDCS(floor, car int) (*passenger.Passenger, bool) {
	k := carKey{floor, car}
	q := m.dcs[k]
	if len(q) == 0 {
		return nil, false
	}
	head := q[0]
	m.dcs[k] = q[1:]
	delete(m.at, head.ID)
	return head, true
}

// DirectionalView is a live handle onto one (floor, direction) queue, drained
// in presented order by the door's boarding loop. It satisfies door.Queue
// structurally without floorqueue importing door.
type DirectionalView struct {
	m    *Manager
	k    dirKey
}

// DirectionalQueue returns a view of floor's direction queue.
func (m *Manager) DirectionalQueue(floor int, dir hallbutton.Direction) DirectionalView {
	return DirectionalView{m: m, k: dirKey{floor, dir}}
}

// Front returns the head of the queue without removing it.
func (v DirectionalView) Front() (*passenger.Passenger, bool) {
	q := v.m.directional[v.k]
	if len(q) == 0 {
		return nil, false
	}
	return q[0], true
}

// PopFront removes and returns the head of the queue.
func (v DirectionalView) PopFront() (*passenger.Passenger, bool) {
	return v.m.PopFrontDirectional(v.k.floor, v.k.dir)
}

// Snapshot returns a copy of the queue's current contents.
func (v DirectionalView) Snapshot() []*passenger.Passenger {
	src := v.m.directional[v.k]
	return append([]*passenger.Passenger(nil), src...)
}

// DCSView is the DCS-queue analogue of DirectionalView, one per (floor, car).
type DCSView struct {
	m *Manager
	k carKey
}

// DCSQueue returns a view of car's DCS queue at floor.
func (m *Manager) DCSQueue(floor, car int) DCSView {
	return DCSView{m: m, k: carKey{floor, car}}
}

// Front returns the head of the queue without removing it.
func (v DCSView) Front() (*passenger.Passenger, bool) {
	q := v.m.dcs[v.k]
	if len(q) == 0 {
		return nil, false
	}
	return q[0], true
}

// PopFront removes and returns the head of the queue.
func (v DCSView) PopFront() (*passenger.Passenger, bool) {
	return v.m.PopFrontDCS(v.k.floor, v.k.car)
}

// Snapshot returns a copy of the queue's current contents.
func (v DCSView) Snapshot() []*passenger.Passenger {
	src := v.m.dcs[v.k]
	return append([]*passenger.Passenger(nil), src...)
}

// QueueOf reports which queue (if any) currently holds p, for diagnostics
// and the invariant tests in spec section 8 ("p appears in exactly one
// queue of floor f").
func (m *Manager) QueueOf(p *passenger.Passenger) (floor int, isDCS bool, dirOrCar int, ok bool) {
	loc, ok := m.at[p.ID]
	if !ok {
		return 0, false, 0, false
	}
	if loc.isDCS {
		return loc.car.floor, true, loc.car.car, true
	}
	return loc.dir.floor, false, int(loc.dir.dir), true
}
