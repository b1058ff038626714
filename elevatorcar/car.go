// Package elevatorcar implements the car main actor: it owns position,
// direction and call sets, runs the interruptible S-curve motion model,
// and orchestrates the door at every stop. It is the largest single
// component of the simulation core, grounded in the cadence of the
// teacher's per-bus run loop (sim/runner.go) generalized from a linear bus
// route to bidirectional floor service with selective-collective dispatch.
package elevatorcar

import (
	"fmt"
	"log"
	"time"

	"elevatorsim/building"
	"elevatorsim/callsystem"
	"elevatorsim/door"
	"elevatorsim/floorqueue"
	"elevatorsim/hallbutton"
	"elevatorsim/kernel"
	"elevatorsim/msgbus"
	"elevatorsim/passenger"
	"elevatorsim/physics"
)

// Direction is the car's current travel direction.
type Direction int

const (
	NoDirection Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "NO_DIRECTION"
	}
}

// State is the car's high-level motion state.
type State int

const (
	Idle State = iota
	Moving
	Decelerating
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Moving:
		return "MOVING"
	case Decelerating:
		return "DECELERATING"
	case Stopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// ElevatorStatus is the car's shadow-table status update, consumed by the
// dispatcher's repositioning strategy and by the visualizer/log.
type ElevatorStatus struct {
	Car              int
	CurrentFloor     int
	AdvancedPosition int
	Direction        Direction
	State            State
	Onboard          int
	Time             time.Duration
}

// AssignHallCall is sent by the dispatcher to a car's task-topic once the
// allocation strategy has chosen it.
type AssignHallCall struct {
	Floor       int
	Direction   hallbutton.Direction // Traditional calls only
	Destination int                  // DCS calls only (0 if not applicable)
	IsDCS       bool
}

// RegisterCarCallMsg is published by a Traditional passenger once aboard,
// declaring its destination.
type RegisterCarCallMsg struct {
	Floor int
}

type CarCallRegistered struct {
	Car   int
	Floor int
}

type CarCallOff struct {
	Car   int
	Floor int
}

type HallCallOff struct {
	Car       int
	Floor     int
	Direction hallbutton.Direction
}

// ForcedMove is the dispatcher's repositioning command: visit floor
// regardless of any passenger demand. The car treats it exactly like a car
// call so it participates in the ordinary direction/stop logic rather than
// bypassing it.
type ForcedMove struct {
	Floor int
	Dir   Direction
}

type BypassEvent struct {
	Car   int
	Floor int
}

type SafetyViolation struct {
	Car     int
	Message string
}

// ReopenLimitReached is published once a stop exhausts its per-stop reopen
// budget, for the diagnostics summary named in section 7.
type ReopenLimitReached struct {
	Car   int
	Floor int
}

type moveResult struct {
	aborted bool
}

// Car is the main elevator actor.
type Car struct {
	ID             int
	Capacity       int
	HomeFloor      int
	MainDirection  Direction
	ServiceFloors  map[int]bool // nil means unrestricted
	FullLoadBypass bool

	building *building.Building
	calls    *callsystem.CallSystem
	phys     physics.Provider
	floors   *floorqueue.Manager
	hall     *hallbutton.Panel
	bus      *msgbus.Bus
	door     *door.Door
	logger   *log.Logger

	CurrentFloor     int
	AdvancedPosition int
	Direction        Direction
	State            State

	onboard  []*passenger.Passenger
	carCalls map[int]bool
	hallUp   map[int]bool
	hallDown map[int]bool
	// dcsCalls is the DCS analogue of a hall call: a floor where this car
	// specifically has been assigned to pick up a waiting DCS passenger.
	// Unlike hallUp/hallDown it carries no direction — the call is for
	// this car regardless of which way it happens to be travelling when
	// it arrives, so it participates in direction/extreme/distance
	// calculations the same way carCalls does.
	dcsCalls map[int]bool

	task          *kernel.Task
	moveTask      *kernel.Task
	newCallSignal kernel.EventID
	moveDoneID    kernel.EventID
}

// Config bundles a car's static configuration.
type Config struct {
	ID             int
	Capacity       int
	HomeFloor      int
	MainDirection  Direction
	ServiceFloors  []int // nil/empty means unrestricted
	FullLoadBypass bool
}

// New constructs a car bound to the given shared building-wide components.
// Bind is not yet complete until Run is called with a kernel task.
func New(cfg Config, b *building.Building, cs *callsystem.CallSystem, p physics.Provider, floors *floorqueue.Manager, hall *hallbutton.Panel, bus *msgbus.Bus, d *door.Door, logger *log.Logger) *Car {
	var sf map[int]bool
	if len(cfg.ServiceFloors) > 0 {
		sf = make(map[int]bool, len(cfg.ServiceFloors))
		for _, f := range cfg.ServiceFloors {
			sf[f] = true
		}
	}
	return &Car{
		ID:             cfg.ID,
		Capacity:       cfg.Capacity,
		HomeFloor:      cfg.HomeFloor,
		MainDirection:  cfg.MainDirection,
		ServiceFloors:  sf,
		FullLoadBypass: cfg.FullLoadBypass,
		building:       b,
		calls:          cs,
		phys:           p,
		floors:         floors,
		hall:           hall,
		bus:            bus,
		door:           d,
		logger:         logger,
		CurrentFloor:   cfg.HomeFloor,
		AdvancedPosition: cfg.HomeFloor,
		carCalls:       make(map[int]bool),
		hallUp:         make(map[int]bool),
		hallDown:       make(map[int]bool),
		dcsCalls:       make(map[int]bool),
	}
}

// CarCallTopicFor is the stable topic a boarded passenger (or the door's
// own DCS auto-registration path, in-process) publishes a destination
// request to for carID.
func CarCallTopicFor(carID int) string { return fmt.Sprintf("car/%d/car-call", carID) }

// TaskTopicFor is the stable topic the dispatcher addresses assignments
// and repositioning commands to for carID.
func TaskTopicFor(carID int) string { return fmt.Sprintf("car/%d/assign", carID) }

func (c *Car) taskTopic() string    { return TaskTopicFor(c.ID) }
func (c *Car) carCallTopic() string { return CarCallTopicFor(c.ID) }
func (c *Car) eventsTopic() string  { return fmt.Sprintf("car/%d/events", c.ID) }

// StatusTopic is the topic the dispatcher's shadow table listens on.
func (c *Car) StatusTopic() string { return fmt.Sprintf("car/%d/status", c.ID) }

// TaskTopic is the topic the dispatcher sends assignments/repositioning to.
func (c *Car) TaskTopic() string { return c.taskTopic() }

// CarCallTopic is the topic a boarded passenger publishes its destination
// to.
func (c *Car) CarCallTopic() string { return c.carCallTopic() }

// door.Car implementation. -----------------------------------------------

// RemainingCapacity implements door.Car.
func (c *Car) RemainingCapacity() int { return c.Capacity - len(c.onboard) }

// Board implements door.Car.
func (c *Car) Board(p *passenger.Passenger) {
	c.onboard = append(c.onboard, p)
	p.MarkBoarded(c.task.Now(), c.ID)
}

// Alight implements door.Car.
func (c *Car) Alight(p *passenger.Passenger) {
	for i, q := range c.onboard {
		if q == p {
			c.onboard = append(c.onboard[:i:i], c.onboard[i+1:]...)
			break
		}
	}
	p.MarkAlighted(c.task.Now())
}

// RegisterCarCall implements door.Car: it is the entry point for both the
// in-car destination panel (Traditional/LobbyDCS) and the door's own DCS
// auto-registration, and silently drops a duplicate for an already
// registered destination.
func (c *Car) RegisterCarCall(floor int) {
	if floor == c.CurrentFloor || c.carCalls[floor] {
		return
	}
	c.carCalls[floor] = true
	c.bus.Publish(c.task, c.eventsTopic(), CarCallRegistered{Car: c.ID, Floor: floor})
	c.notifyNewCall()
}

// PublishStatus implements door.Car.
func (c *Car) PublishStatus() {
	c.bus.Publish(c.task, c.StatusTopic(), ElevatorStatus{
		Car:              c.ID,
		CurrentFloor:     c.CurrentFloor,
		AdvancedPosition: c.AdvancedPosition,
		Direction:        c.Direction,
		State:            c.State,
		Onboard:          len(c.onboard),
		Time:             c.task.Now(),
	})
}

func (c *Car) notifyNewCall() {
	if c.moveTask != nil {
		c.task.Interrupt(c.moveTask)
		return
	}
	c.task.Signal(c.newCallSignal, nil)
}

// Run starts the car's three concurrent sub-tasks (hall-call listener,
// car-call listener, main loop) on k and returns once the main loop task
// has been spawned. The main loop never finishes on its own; the
// simulation ends when the kernel quiesces (Kernel.Run), typically because
// every car is parked on its new-call event with no timers pending.
func (c *Car) Run(k *kernel.Kernel) {
	c.newCallSignal = k.NewEventID()
	c.moveDoneID = k.NewEventID()

	k.Spawn(func(t *kernel.Task) {
		c.task = t
		c.door.Bind(t)
		c.mainLoop(t)
	})
	k.Spawn(c.hallCallListener)
	k.Spawn(c.carCallListener)
}

func (c *Car) hallCallListener(t *kernel.Task) {
	for {
		msg := c.bus.Receive(t, c.taskTopic())
		if msg == nil {
			return
		}
		if forced, ok := msg.(ForcedMove); ok {
			c.RegisterCarCall(forced.Floor)
			continue
		}
		if regCall, ok := msg.(RegisterCarCallMsg); ok {
			c.RegisterCarCall(regCall.Floor)
			continue
		}
		assign, ok := msg.(AssignHallCall)
		if !ok {
			c.logSafetyViolation(t, "hall-call listener: unexpected message shape")
			continue
		}
		if assign.IsDCS {
			if !c.dcsCalls[assign.Floor] {
				c.dcsCalls[assign.Floor] = true
				c.notifyNewCall()
			}
			continue
		}
		switch assign.Direction {
		case hallbutton.Up:
			if !c.hallUp[assign.Floor] {
				c.hallUp[assign.Floor] = true
				c.notifyNewCall()
			}
		case hallbutton.Down:
			if !c.hallDown[assign.Floor] {
				c.hallDown[assign.Floor] = true
				c.notifyNewCall()
			}
		}
	}
}

func (c *Car) carCallListener(t *kernel.Task) {
	for {
		msg := c.bus.Receive(t, c.carCallTopic())
		if msg == nil {
			return
		}
		reg, ok := msg.(RegisterCarCallMsg)
		if !ok {
			c.logSafetyViolation(t, "car-call listener: unexpected message shape")
			continue
		}
		c.RegisterCarCall(reg.Floor)
	}
}

func (c *Car) logSafetyViolation(t *kernel.Task, msg string) {
	c.logger.Printf("car %d: safety violation: %s", c.ID, msg)
	c.bus.Publish(t, c.eventsTopic(), SafetyViolation{Car: c.ID, Message: msg})
}

// mainLoop implements section 4.5's per-iteration contract.
func (c *Car) mainLoop(t *kernel.Task) {
	c.Direction = c.MainDirection
	c.State = Idle
	c.PublishStatus()

	for {
		if c.shouldStopHere(t) {
			c.State = Stopping
			c.runStop(t)
		}

		c.recomputeDirection()
		dest := c.computeDestination()
		// A bypassed call can leave a floor lit with nothing reachable from
		// here in any direction; computeDestination then degenerates to the
		// current floor rather than real progress. Treat that the same as
		// having no outstanding calls at all: park until a fresh call or
		// reassignment wakes the car, instead of spinning in place.
		if dest == c.CurrentFloor {
			c.State = Idle
			c.PublishStatus()
			t.Await(c.newCallSignal)
			continue
		}

		c.State = Moving
		c.PublishStatus()

		var result moveResult
		c.moveTask = t.Spawn(func(mt *kernel.Task) {
			result = c.runMove(mt, c.CurrentFloor, dest)
		})
		t.Await(c.moveDoneID)
		c.moveTask = nil
		_ = result // abort vs normal completion both simply re-iterate
	}
}

// runStop opens the door, drains the relevant boarding queues, and applies
// the post-stop call-clearing rules.
func (c *Car) runStop(t *kernel.Task) {
	floor := c.CurrentFloor
	hasCarCallHere := c.carCalls[floor]
	isDCS := c.calls.IsDCSFloor(floor)

	preUp := append([]*passenger.Passenger(nil), c.floors.Directional(floor, hallbutton.Up)...)
	preDown := append([]*passenger.Passenger(nil), c.floors.Directional(floor, hallbutton.Down)...)

	var queues []door.Queue
	var exitList []*passenger.Passenger
	for i := len(c.onboard) - 1; i >= 0; i-- {
		if j, ok := c.onboard[i].CurrentJourney(); ok && j.DestinationFloor == floor {
			exitList = append(exitList, c.onboard[i])
		}
	}

	if isDCS {
		queues = append(queues, c.floors.DCSQueue(floor, c.ID))
	} else {
		// Which queues open here depends on direction, with a turnaround
		// exception: a car travelling Up with nothing left above also opens
		// the Down queue at this stop instead of leaving it for a future
		// pass, since shouldStopHere already decided this is the turnaround
		// floor. Mirrors the original's _handle_boarding_and_alighting.
		switch c.Direction {
		case Up:
			if c.hallUp[floor] {
				queues = append(queues, c.floors.DirectionalQueue(floor, hallbutton.Up))
			} else if c.hallDown[floor] && !c.hasCallAbove(floor) {
				queues = append(queues, c.floors.DirectionalQueue(floor, hallbutton.Down))
			}
		case Down:
			if c.hallDown[floor] {
				queues = append(queues, c.floors.DirectionalQueue(floor, hallbutton.Down))
			} else if c.hallUp[floor] && !c.hasCallBelow(floor) {
				queues = append(queues, c.floors.DirectionalQueue(floor, hallbutton.Up))
			}
		default: // NoDirection
			hasAbove, hasBelow := c.hasCallAbove(floor), c.hasCallBelow(floor)
			switch {
			case hasAbove && c.hallUp[floor]:
				queues = append(queues, c.floors.DirectionalQueue(floor, hallbutton.Up))
			case hasBelow && c.hallDown[floor]:
				queues = append(queues, c.floors.DirectionalQueue(floor, hallbutton.Down))
			case c.hallUp[floor]:
				queues = append(queues, c.floors.DirectionalQueue(floor, hallbutton.Up))
			case c.hallDown[floor]:
				queues = append(queues, c.floors.DirectionalQueue(floor, hallbutton.Down))
			}
		}
	}

	report := c.door.HandleBoardingAndAlighting(t, floor, c, exitList, queues, hasCarCallHere, isDCS)

	delete(c.carCalls, floor)
	if hasCarCallHere {
		c.bus.Publish(t, c.eventsTopic(), CarCallOff{Car: c.ID, Floor: floor})
	}
	if isDCS {
		delete(c.dcsCalls, floor)
	}

	if !isDCS {
		boardedFromUp, boardedFromDown := false, false
		inSet := func(list []*passenger.Passenger, p *passenger.Passenger) bool {
			for _, q := range list {
				if q == p {
					return true
				}
			}
			return false
		}
		for _, p := range report.Boarded {
			if inSet(preUp, p) {
				boardedFromUp = true
			}
			if inSet(preDown, p) {
				boardedFromDown = true
			}
		}
		if boardedFromUp && c.hall.Serve(floor, hallbutton.Up) {
			delete(c.hallUp, floor)
			c.bus.Publish(t, c.eventsTopic(), HallCallOff{Car: c.ID, Floor: floor, Direction: hallbutton.Up})
		}
		if boardedFromDown && c.hall.Serve(floor, hallbutton.Down) {
			delete(c.hallDown, floor)
			c.bus.Publish(t, c.eventsTopic(), HallCallOff{Car: c.ID, Floor: floor, Direction: hallbutton.Down})
		}
	}

	if report.ReopenLimitReached {
		c.logger.Printf("car %d: reopen limit reached at floor %d", c.ID, floor)
		c.bus.Publish(t, c.eventsTopic(), ReopenLimitReached{Car: c.ID, Floor: floor})
	}
}

// shouldStopHere implements section 4.5's stop predicate, including the
// turnaround-extreme rule and the full-load bypass.
func (c *Car) shouldStopHere(t *kernel.Task) bool {
	floor := c.CurrentFloor
	if c.carCalls[floor] || c.dcsCalls[floor] {
		return true
	}

	hallHere := (c.Direction == Up && c.hallUp[floor]) || (c.Direction == Down && c.hallDown[floor])
	turnaround := false
	if !hallHere {
		if c.Direction == Up && !c.hasCallAbove(floor) && c.isExtreme(floor, Up) && c.hallDown[floor] {
			turnaround = true
		}
		if c.Direction == Down && !c.hasCallBelow(floor) && c.isExtreme(floor, Down) && c.hallUp[floor] {
			turnaround = true
		}
	}
	if !hallHere && !turnaround {
		return false
	}

	if c.FullLoadBypass && c.RemainingCapacity() <= 0 {
		c.bus.Publish(t, c.eventsTopic(), BypassEvent{Car: c.ID, Floor: floor})
		return false
	}
	return true
}

// hasCallAbove reports whether any outstanding call — car, DCS, or hall
// call in either direction — sits strictly above floor. A hall call's own
// direction never limits which floors are worth continuing toward: a car
// travelling up still has to account for a down call registered ahead of
// it, the wrap-around case allocation.go's "Moving UP otherwise" branch
// relies on being assignable in the first place.
func (c *Car) hasCallAbove(floor int) bool {
	return c.nearestCallDistance(floor, Up) >= 0
}

func (c *Car) hasCallBelow(floor int) bool {
	return c.nearestCallDistance(floor, Down) >= 0
}

// isExtreme reports whether floor is the farthest outstanding call — car,
// DCS, or hall call in either direction — in dir.
func (c *Car) isExtreme(floor int, dir Direction) bool {
	return c.farthestCall(floor, dir) == floor
}

// farthestCall returns the farthest outstanding call position in dir,
// pooling car calls, DCS calls, and hall calls of both directions by floor
// position only, or floor itself if nothing lies beyond it.
func (c *Car) farthestCall(floor int, dir Direction) int {
	extreme := floor
	consider := func(f int) {
		if dir == Up && f > extreme {
			extreme = f
		}
		if dir == Down && f < extreme {
			extreme = f
		}
	}
	for f := range c.carCalls {
		consider(f)
	}
	for f := range c.dcsCalls {
		consider(f)
	}
	for f := range c.hallUp {
		consider(f)
	}
	for f := range c.hallDown {
		consider(f)
	}
	return extreme
}

func (c *Car) hasOutstandingCalls() bool {
	return len(c.carCalls) > 0 || len(c.hallUp) > 0 || len(c.hallDown) > 0 || len(c.dcsCalls) > 0
}

// recomputeDirection implements the selective-collective direction
// decision of section 4.5.
func (c *Car) recomputeDirection() {
	floor := c.CurrentFloor
	switch c.Direction {
	case Up:
		if c.hasCallAbove(floor) {
			return
		}
		if c.isExtreme(floor, Up) && c.hallDown[floor] {
			c.Direction = Down
			return
		}
		if !c.hasCallAbove(floor) {
			if c.hasCallBelow(floor) {
				c.Direction = Down
			} else {
				c.Direction = NoDirection
			}
		}
		return
	case Down:
		if c.hasCallBelow(floor) {
			return
		}
		if c.isExtreme(floor, Down) && c.hallUp[floor] {
			c.Direction = Up
			return
		}
		if !c.hasCallBelow(floor) {
			if c.hasCallAbove(floor) {
				c.Direction = Up
			} else {
				c.Direction = NoDirection
			}
		}
		return
	default: // NoDirection
		above := c.nearestCallDistance(floor, Up)
		below := c.nearestCallDistance(floor, Down)
		switch {
		case above < 0 && below < 0:
			c.Direction = NoDirection
		case above < 0:
			c.Direction = Down
		case below < 0:
			c.Direction = Up
		case above <= below:
			c.Direction = Up
		default:
			c.Direction = Down
		}
	}
}

// nearestCallDistance returns the distance to the nearest outstanding call
// strictly ahead of floor in dir, or -1 if there is none. A call sitting at
// floor itself is never "ahead" — it was already resolved (served or
// bypassed) by the current iteration's shouldStopHere, and treating it as a
// zero-distance destination would send the car nowhere and recompute the
// same non-decision forever.
func (c *Car) nearestCallDistance(floor int, dir Direction) int {
	best := -1
	consider := func(f int) {
		var d int
		if dir == Up {
			if f <= floor {
				return
			}
			d = f - floor
		} else {
			if f >= floor {
				return
			}
			d = floor - f
		}
		if best < 0 || d < best {
			best = d
		}
	}
	for f := range c.carCalls {
		consider(f)
	}
	for f := range c.dcsCalls {
		consider(f)
	}
	for f := range c.hallUp {
		consider(f)
	}
	for f := range c.hallDown {
		consider(f)
	}
	return best
}

// computeDestination picks the nearest call in the current direction, or
// the farthest call in the opposite direction if none remain ahead.
func (c *Car) computeDestination() int {
	floor := c.CurrentFloor
	if d := c.nearestCallDistance(floor, c.Direction); d >= 0 {
		if c.Direction == Up {
			return floor + d
		}
		return floor - d
	}
	opposite := Down
	if c.Direction == Down {
		opposite = Up
	}
	return c.farthestCall(floor, opposite)
}

// runMove drives the car one control floor at a time from `from` to `dest`,
// re-evaluating direction once entering the final brake segment, and
// signals completion to the main loop via moveDoneID. An interrupted sleep
// aborts cleanly without emitting an arrival, per section 4.5 and 5.
func (c *Car) runMove(mt *kernel.Task, from, dest int) moveResult {
	step := 1
	if dest < from {
		step = -1
	}
	floor := from
	for floor != dest {
		next := floor + step
		final := next == dest
		if final {
			c.State = Decelerating
			c.recomputeDirection()
			committed := Up
			if step < 0 {
				committed = Down
			}
			if c.Direction != NoDirection && c.Direction != committed {
				mt.Signal(c.moveDoneID, moveResult{aborted: true})
				return moveResult{aborted: true}
			}
		}

		var dur time.Duration
		if final {
			dur = c.phys.BrakeTime(from, dest)
		} else {
			dur = c.phys.CruiseTime(from, next)
		}
		sig := mt.Sleep(dur)
		if sig == kernel.SignalInterrupted {
			mt.Signal(c.moveDoneID, moveResult{aborted: true})
			return moveResult{aborted: true}
		}

		floor = next
		c.CurrentFloor = floor
		c.AdvancedPosition = floor
		c.PublishStatus()
	}
	mt.Signal(c.moveDoneID, moveResult{})
	return moveResult{}
}
