// Package passenger defines the per-traveller data carried for the whole
// simulation: immutable trip plan plus the mutable timestamps recorded
// against whichever journey is currently in progress. All timestamps are
// virtual-clock offsets (kernel.Kernel.Now()), not wall-clock time.
package passenger

import "time"

// Journey is one origin/destination leg of a passenger's trip plan.
type Journey struct {
	ArrivalFloor     int
	DestinationFloor int
}

// unset is the sentinel for "not yet recorded": a negative duration, since a
// virtual-clock offset of exactly 0 is a legitimate timestamp for the very
// first event of a run.
const unset time.Duration = -1

// Passenger is owned by the kernel for the whole run and by exactly one
// queue at any moment while waiting (floorqueue.Manager enforces that
// invariant via its move-then-insert operations).
type Passenger struct {
	ID        int
	Name      string
	MoveSpeed time.Duration // time to physically step through the doorway

	Journeys     []Journey
	JourneyIndex int

	// Mutable per-journey bookkeeping, reset by BeginJourney. unset until
	// recorded.
	WaitingStart time.Duration
	DoorOpenTime time.Duration
	BoardingTime time.Duration
	Alighting    time.Duration
	BoardedCar   int // 0 if not yet boarded
	AssignedCar  int // DCS only; 0 if unassigned or not applicable

	FailedBoardCount int
}

// New constructs a passenger with the given trip plan. moveSpeed is the
// per-passenger boarding/alighting walk time.
func New(id int, name string, moveSpeed time.Duration, journeys []Journey) *Passenger {
	p := &Passenger{ID: id, Name: name, MoveSpeed: moveSpeed, Journeys: journeys}
	p.resetTimestamps()
	return p
}

func (p *Passenger) resetTimestamps() {
	p.WaitingStart = unset
	p.DoorOpenTime = unset
	p.BoardingTime = unset
	p.Alighting = unset
}

// CurrentJourney returns the journey in progress, or false if the
// passenger has completed every leg.
func (p *Passenger) CurrentJourney() (Journey, bool) {
	if p.JourneyIndex >= len(p.Journeys) {
		return Journey{}, false
	}
	return p.Journeys[p.JourneyIndex], true
}

// BeginJourney resets per-journey state and records the wait-start
// timestamp for the journey now in progress.
func (p *Passenger) BeginJourney(now time.Duration) {
	p.resetTimestamps()
	p.WaitingStart = now
	p.BoardedCar = 0
	p.AssignedCar = 0
}

// MarkDoorOpen records the first door-open observed while this passenger
// waits at the origin floor.
func (p *Passenger) MarkDoorOpen(now time.Duration) {
	if p.DoorOpenTime == unset {
		p.DoorOpenTime = now
	}
}

// MarkBoarded records boarding onto carID.
func (p *Passenger) MarkBoarded(now time.Duration, carID int) {
	p.BoardingTime = now
	p.BoardedCar = carID
}

// MarkAlighted records alighting and advances to the next journey leg.
func (p *Passenger) MarkAlighted(now time.Duration) {
	p.Alighting = now
	p.JourneyIndex++
}

// WaitToBoarding is the duration between wait-start and boarding.
func (p *Passenger) WaitToBoarding() time.Duration {
	if p.BoardingTime == unset {
		return 0
	}
	return p.BoardingTime - p.WaitingStart
}

// WaitToDoorOpen is max(0, door_open - wait_start).
func (p *Passenger) WaitToDoorOpen() time.Duration {
	if p.DoorOpenTime == unset {
		return 0
	}
	d := p.DoorOpenTime - p.WaitingStart
	if d < 0 {
		return 0
	}
	return d
}

// Riding is the duration spent onboard, boarding to alighting.
func (p *Passenger) Riding() time.Duration {
	if p.BoardingTime == unset || p.Alighting == unset {
		return 0
	}
	return p.Alighting - p.BoardingTime
}

// TotalJourney is the duration from wait-start to alighting.
func (p *Passenger) TotalJourney() time.Duration {
	if p.Alighting == unset {
		return 0
	}
	return p.Alighting - p.WaitingStart
}
