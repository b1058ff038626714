// Package workflow implements the passenger-side interaction sequences of
// section 4.6: the Traditional up/down-button polling loop and the DCS
// destination-panel registration loop, sharing a common terminal sequence
// (await exit permission, walk for move-speed, signal completion, record
// alighting). Grounded in the teacher's boarding/alighting bookkeeping
// (model/passenger.go, model/stop.go) generalized from a single bus stop
// to a multi-car building with two distinct call regimes.
package workflow

import (
	"time"

	"elevatorsim/callsystem"
	"elevatorsim/dispatcher"
	"elevatorsim/door"
	"elevatorsim/elevatorcar"
	"elevatorsim/floorqueue"
	"elevatorsim/hallbutton"
	"elevatorsim/kernel"
	"elevatorsim/msgbus"
	"elevatorsim/passenger"
)

// PollInterval is the default Traditional polling cadence.
const PollInterval = 100 * time.Millisecond

type PassengerWaiting struct {
	PassengerID int
	Floor       int
}

type PassengerBoarding struct {
	PassengerID int
	Car         int
	Floor       int
}

type PassengerAlighting struct {
	PassengerID int
	Car         int
	Floor       int
}

// Runner drives a single passenger through every journey in its plan.
type Runner struct {
	bus    *msgbus.Bus
	calls  *callsystem.CallSystem
	hall   *hallbutton.Panel
	floors *floorqueue.Manager

	hallCallTopic func() string // topic the dispatcher listens on for new directional/DCS calls
}

// New constructs a workflow runner bound to the shared building-wide
// components and the dispatcher's inbound hall-call topic.
func New(bus *msgbus.Bus, calls *callsystem.CallSystem, hall *hallbutton.Panel, floors *floorqueue.Manager, hallCallTopic func() string) *Runner {
	return &Runner{bus: bus, calls: calls, hall: hall, floors: floors, hallCallTopic: hallCallTopic}
}

// Run executes every journey in p's plan to completion on task t.
func (r *Runner) Run(t *kernel.Task, p *passenger.Passenger) {
	for {
		j, ok := p.CurrentJourney()
		if !ok {
			return
		}
		p.BeginJourney(t.Now())
		r.bus.Publish(t, r.eventsTopic(), PassengerWaiting{PassengerID: p.ID, Floor: j.ArrivalFloor})

		var carID int
		if r.calls.IsDCSFloor(j.ArrivalFloor) {
			carID = r.runDCS(t, p, j.ArrivalFloor, j.DestinationFloor)
		} else {
			carID = r.runTraditional(t, p, j.ArrivalFloor, j.DestinationFloor)
		}

		p.MarkDoorOpen(t.Now())
		r.bus.Publish(t, r.eventsTopic(), PassengerBoarding{PassengerID: p.ID, Car: carID, Floor: j.ArrivalFloor})

		r.awaitExitAndAlight(t, p, carID, j.DestinationFloor)
	}
}

func (r *Runner) eventsTopic() string { return "workflow/events" }

func (r *Runner) registerDirectionalCall(t *kernel.Task, floor int, dir hallbutton.Direction) {
	if r.hall.Press(floor, dir) {
		r.bus.Publish(t, r.hallCallTopic(), dispatcher.CallData{Floor: floor, Direction: dir, Type: dispatcher.Directional, Time: t.Now()})
	}
}

// runTraditional implements section 4.6(i)-(iii). The floor-queue manager
// is the single owner of queue order: the door itself dequeues the head
// and addresses the permission directly to that passenger, so polling here
// only needs to watch this passenger's own topic, never the queue itself.
func (r *Runner) runTraditional(t *kernel.Task, p *passenger.Passenger, floor, destination int) int {
	dir := hallbutton.Up
	if destination < floor {
		dir = hallbutton.Down
	}

	r.registerDirectionalCall(t, floor, dir)
	r.floors.EnqueueDirectional(floor, dir, p)

	for {
		if msg, ok := r.bus.TryReceive(t, door.PassengerTopic(p.ID)); ok {
			switch m := msg.(type) {
			case door.Permission:
				if m.Kind == door.PermissionBoard {
					t.Sleep(p.MoveSpeed)
					r.publishCarCall(t, m.CarID, destination)
					r.bus.Publish(t, m.CompletionTopic, struct{}{})
					return m.CarID
				}
			case door.BoardingFailed:
				p.FailedBoardCount++
				r.registerDirectionalCall(t, floor, dir)
				r.floors.EnqueueDirectional(floor, dir, p)
			}
		}
		if t.Sleep(PollInterval) == kernel.SignalInterrupted {
			return 0
		}
	}
}

// publishCarCall declares a destination once boarded, matching section
// 4.6's "only if the call system reports car buttons exist" rule. DCS
// passengers never call this: the door auto-registers their destination
// on first-boarder detection instead.
func (r *Runner) publishCarCall(t *kernel.Task, carID, destination int) {
	if !r.calls.HasCarButtons() {
		return
	}
	r.bus.Publish(t, elevatorcar.CarCallTopicFor(carID), elevatorcar.RegisterCarCallMsg{Floor: destination})
}

// runDCS implements section 4.6's DCS sequence: register at the panel,
// wait for an assignment addressed to this passenger specifically on its
// own topic (resolving the design note's open question about filtering a
// shared assignment topic), queue at the assigned car, and poll for
// boarding, re-registering on boarding-failed.
func (r *Runner) runDCS(t *kernel.Task, p *passenger.Passenger, floor, destination int) int {
	r.publishDCSCall(t, floor, destination, p.ID, "")

	for {
		assignMsg := r.bus.Receive(t, dispatcher.AssignmentTopic(p.ID))
		assign, ok := assignMsg.(dispatcher.HallCallAssignment)
		if !ok {
			continue
		}
		p.AssignedCar = assign.Car
		r.floors.EnqueueDCS(floor, assign.Car, p)

		leftBehind := false
		for !leftBehind {
			msg := r.bus.Receive(t, door.PassengerTopic(p.ID))
			switch m := msg.(type) {
			case door.Permission:
				if m.Kind == door.PermissionBoard {
					t.Sleep(p.MoveSpeed)
					r.bus.Publish(t, m.CompletionTopic, struct{}{})
					return m.CarID
				}
			case door.BoardingFailed:
				p.FailedBoardCount++
				r.publishDCSCall(t, floor, destination, p.ID, "left-behind")
				leftBehind = true
			}
		}
	}
}

// publishDCSCall registers a DCS destination call, unless the call
// system's zoning rejects it — a ZonedDCS panel only accepts destinations
// in the origin floor's configured service-floor zone, mirroring the
// boundary rule that rejects direction-button presses at the call-system
// layer.
func (r *Runner) publishDCSCall(t *kernel.Task, floor, destination, passengerID int, reason string) {
	if !r.calls.ValidateDestination(floor, destination) {
		return
	}
	r.bus.Publish(t, r.hallCallTopic(), dispatcher.CallData{
		Floor: floor, Destination: destination, PassengerID: passengerID, Type: dispatcher.DCS, Time: t.Now(),
		Reason: reason,
	})
}

func (r *Runner) awaitExitAndAlight(t *kernel.Task, p *passenger.Passenger, carID, destination int) {
	msg := r.bus.Receive(t, door.PassengerTopic(p.ID))
	perm, ok := msg.(door.Permission)
	if !ok || perm.Kind != door.PermissionExit {
		return
	}
	t.Sleep(p.MoveSpeed)
	r.bus.Publish(t, perm.CompletionTopic, struct{}{})
	r.bus.Publish(t, r.eventsTopic(), PassengerAlighting{PassengerID: p.ID, Car: carID, Floor: destination})
}
