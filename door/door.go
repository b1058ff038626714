// Package door implements the open/close/reopen state machine and the
// boarding/alighting protocol that coordinates a car, its passengers, and
// the hall signals at a stop, grounded in the original simulator's
// handle_boarding_and_alighting sequencing (door.py) and in the teacher's
// dwell-phase event emission style (sim/runner.go).
package door

import (
	"fmt"
	"time"

	"elevatorsim/kernel"
	"elevatorsim/msgbus"
	"elevatorsim/passenger"
)

// State names a position in the door's state machine.
type State int

const (
	Idle State = iota
	Opening
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Opening:
		return "OPENING"
	case Open:
		return "OPEN"
	case Closing:
		return "CLOSING"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Queue is the minimal view a door needs onto one boarding queue: peek,
// drain, and snapshot for failure broadcast and DCS bookkeeping.
// floorqueue.DirectionalView and floorqueue.DCSView both satisfy it.
type Queue interface {
	Front() (*passenger.Passenger, bool)
	PopFront() (*passenger.Passenger, bool)
	Snapshot() []*passenger.Passenger
}

// Car is the subset of car state the door protocol needs to read and
// mutate. The onboard list remains owned by the car task at all times: the
// door only ever touches it through these calls, made from the car's own
// task, never from a separate goroutine.
type Car interface {
	RemainingCapacity() int
	Board(p *passenger.Passenger)
	Alight(p *passenger.Passenger)
	RegisterCarCall(floor int)
	PublishStatus()
}

// Report is returned once a stop's door cycle has fully closed.
type Report struct {
	Boarded            []*passenger.Passenger
	FailedToBoard      []*passenger.Passenger
	ReopenLimitReached bool
}

// PermissionKind distinguishes the two one-shot handshakes a door grants.
type PermissionKind int

const (
	PermissionExit PermissionKind = iota
	PermissionBoard
)

// Permission is handed to exactly one passenger at a time, addressed to
// that passenger's own topic. The passenger signals completion back on
// CompletionTopic, a fresh topic minted for this occasion only — permission
// objects are never reused across stops.
type Permission struct {
	Kind            PermissionKind
	Floor           int
	CarID           int
	CompletionTopic string
}

// BoardingFailed is published to every passenger left behind in a queue
// that ran out of capacity. A photocell timeout on an empty queue sends
// nothing.
type BoardingFailed struct {
	Floor  int
	Reason string
}

// OpeningStart, OpeningComplete, ClosingStart, ClosingComplete, CarCallOff
// and DCSAutoRegister are the typed events a Door publishes to its own
// events topic; the event logger demultiplexes them off the bus's
// broadcast mirror.
type OpeningStart struct {
	DoorID  int
	Floor   int
	Waiting []int // passenger ids waiting in all boarding queues, pre-open
}

type OpeningComplete struct {
	DoorID int
	Floor  int
}

type ClosingStart struct {
	DoorID int
	Floor  int
}

type ClosingComplete struct {
	DoorID int
	Floor  int
}

// Reopening and ReopenComplete mark a reopen cycle triggered by
// RequestReopen between ClosingStart and ClosingComplete — distinct from
// the stop's initial OpeningStart/OpeningComplete pair per section 8's
// door-event-ordering invariant.
type Reopening struct {
	DoorID int
	Floor  int
}

type ReopenComplete struct {
	DoorID int
	Floor  int
}

type CarCallOff struct {
	DoorID int
	Floor  int
}

type DCSAutoRegister struct {
	DoorID      int
	Floor       int
	Destination int
}

// PassengerTopic is the stable address a passenger listens on for
// permissions granted by any door it is currently interacting with.
func PassengerTopic(passengerID int) string {
	return fmt.Sprintf("passenger/%d/door-permission", passengerID)
}

func (d *Door) eventsTopic() string {
	return fmt.Sprintf("door/%d/events", d.ID)
}

// Door is bound to exactly one car for the whole run. Its reopen counter
// resets on every new stop.
type Door struct {
	ID                int
	OpenTime          time.Duration
	CloseTime         time.Duration
	SensorTimeout     time.Duration
	MaxReopensPerStop int // negative means unlimited

	bus     *msgbus.Bus
	carTask *kernel.Task

	state         State
	reopenCount   int
	limitReached  bool
	completionSeq uint64
}

// New constructs a door bound to bus. Call Bind once the owning car's task
// exists so RequestReopen can interrupt it.
func New(id int, openTime, closeTime, sensorTimeout time.Duration, maxReopensPerStop int, bus *msgbus.Bus) *Door {
	return &Door{
		ID:                id,
		OpenTime:          openTime,
		CloseTime:         closeTime,
		SensorTimeout:     sensorTimeout,
		MaxReopensPerStop: maxReopensPerStop,
		bus:               bus,
		state:             Idle,
	}
}

// Bind records the task of the car this door belongs to.
func (d *Door) Bind(carTask *kernel.Task) { d.carTask = carTask }

// State returns the door's current position in its state machine.
func (d *Door) State() State { return d.state }

// RequestReopen is the only externally triggered transition: it succeeds
// only while the door is CLOSING and the per-stop reopen budget is not yet
// exhausted. On success it interrupts the car task's close-timer sleep and
// increments the counter; on failure due to the budget being exhausted it
// also flags the stop's eventual report.
func (d *Door) RequestReopen(requester *kernel.Task) bool {
	if d.state != Closing {
		return false
	}
	if d.MaxReopensPerStop >= 0 && d.reopenCount >= d.MaxReopensPerStop {
		d.limitReached = true
		return false
	}
	d.reopenCount++
	requester.Interrupt(d.carTask)
	return true
}

func (d *Door) nextCompletionTopic() string {
	d.completionSeq++
	return fmt.Sprintf("door/%d/completion/%d", d.ID, d.completionSeq)
}

// HandleBoardingAndAlighting runs the full stop sequence: open, exit every
// passenger in exitList (already reverse boarding order), drain
// boardingQueues in the order given, then close (reopening as requested up
// to the per-stop budget). t must be the owning car's own task — the door
// has no goroutine of its own, it executes on the car's.
func (d *Door) HandleBoardingAndAlighting(t *kernel.Task, floor int, car Car, exitList []*passenger.Passenger, boardingQueues []Queue, hasCarCallHere, isDCSFloor bool) Report {
	d.reopenCount = 0
	d.limitReached = false

	dcsSnapshot := make([]*passenger.Passenger, 0)
	waitingIDs := make([]int, 0)
	for _, q := range boardingQueues {
		for _, p := range q.Snapshot() {
			dcsSnapshot = append(dcsSnapshot, p)
			waitingIDs = append(waitingIDs, p.ID)
		}
	}

	d.state = Opening
	d.bus.Publish(t, d.eventsTopic(), OpeningStart{DoorID: d.ID, Floor: floor, Waiting: waitingIDs})

	if hasCarCallHere {
		d.bus.Publish(t, d.eventsTopic(), CarCallOff{DoorID: d.ID, Floor: floor})
	}

	t.Sleep(d.OpenTime)
	d.state = Open
	d.bus.Publish(t, d.eventsTopic(), OpeningComplete{DoorID: d.ID, Floor: floor})

	for _, p := range exitList {
		topic := d.nextCompletionTopic()
		d.bus.Publish(t, PassengerTopic(p.ID), Permission{Kind: PermissionExit, Floor: floor, CarID: d.ID, CompletionTopic: topic})
		d.bus.Receive(t, topic)
		car.Alight(p)
		car.PublishStatus()
	}

	boarded, failed := d.runBoardingQueues(t, floor, car, boardingQueues, isDCSFloor, dcsSnapshot)

	for {
		d.state = Closing
		d.bus.Publish(t, d.eventsTopic(), ClosingStart{DoorID: d.ID, Floor: floor})
		sig := t.Sleep(d.CloseTime)
		if sig != kernel.SignalInterrupted {
			break
		}
		d.state = Opening
		d.bus.Publish(t, d.eventsTopic(), Reopening{DoorID: d.ID, Floor: floor})
		t.Sleep(d.OpenTime)
		d.state = Open
		d.bus.Publish(t, d.eventsTopic(), ReopenComplete{DoorID: d.ID, Floor: floor})
		moreBoarded, moreFailed := d.runBoardingQueues(t, floor, car, boardingQueues, isDCSFloor, dcsSnapshot)
		boarded = append(boarded, moreBoarded...)
		failed = append(failed, moreFailed...)
	}

	d.state = Closed
	d.bus.Publish(t, d.eventsTopic(), ClosingComplete{DoorID: d.ID, Floor: floor})

	return Report{Boarded: boarded, FailedToBoard: failed, ReopenLimitReached: d.limitReached}
}

// runBoardingQueues drains every queue in presented order once: per queue,
// it dequeues and grants boarding permission while capacity remains,
// refusing the whole remaining queue on a capacity miss, and tolerating one
// photocell-timeout empty-queue check before giving up on that queue.
// dcsSnapshot is the set of passengers waiting across all queues before the
// door first opened at this stop, consulted for DCS auto-registration.
func (d *Door) runBoardingQueues(t *kernel.Task, floor int, car Car, boardingQueues []Queue, isDCSFloor bool, dcsSnapshot []*passenger.Passenger) (boarded, failed []*passenger.Passenger) {
	for _, q := range boardingQueues {
		for {
			_, ok := q.Front()
			if !ok {
				t.Sleep(d.SensorTimeout)
				if _, ok2 := q.Front(); !ok2 {
					break
				}
				continue
			}

			if car.RemainingCapacity() <= 0 {
				for _, p := range q.Snapshot() {
					d.bus.Publish(t, PassengerTopic(p.ID), BoardingFailed{Floor: floor, Reason: "capacity"})
					failed = append(failed, p)
				}
				break
			}

			p, _ := q.PopFront()
			topic := d.nextCompletionTopic()
			d.bus.Publish(t, PassengerTopic(p.ID), Permission{Kind: PermissionBoard, Floor: floor, CarID: d.ID, CompletionTopic: topic})
			d.bus.Receive(t, topic)
			car.Board(p)
			boarded = append(boarded, p)
			car.PublishStatus()

			if isDCSFloor && len(boarded) == 1 {
				destinations := make(map[int]bool)
				var order []int
				add := func(dest int) {
					if dest == floor || destinations[dest] {
						return
					}
					destinations[dest] = true
					order = append(order, dest)
				}
				if j, ok := p.CurrentJourney(); ok {
					add(j.DestinationFloor)
				}
				for _, wp := range dcsSnapshot {
					if j, ok := wp.CurrentJourney(); ok {
						add(j.DestinationFloor)
					}
				}
				for _, dest := range order {
					car.RegisterCarCall(dest)
					d.bus.Publish(t, d.eventsTopic(), DCSAutoRegister{DoorID: d.ID, Floor: floor, Destination: dest})
				}
			}
		}
	}
	return boarded, failed
}
