// Package dispatcher implements the group-control system: it owns the
// registry of cars and a shadow status table, assigns hall calls to a car
// via a pluggable allocation strategy, and drives a pluggable repositioning
// strategy off every status update. Grounded in the teacher's event-driven
// status-update handling (sim/runner.go's status broadcast consumption),
// generalized from one bus route to N elevator cars.
package dispatcher

import (
	"fmt"
	"log"
	"time"

	"elevatorsim/elevatorcar"
	"elevatorsim/hallbutton"
	"elevatorsim/kernel"
	"elevatorsim/msgbus"
)

// CallType distinguishes a Traditional directional call from a DCS
// destination call.
type CallType int

const (
	Directional CallType = iota
	DCS
)

// CallData is the pure-function input an allocation strategy consumes.
type CallData struct {
	Floor       int
	Direction   hallbutton.Direction // Directional only
	Destination int                  // DCS only
	PassengerID int                  // DCS only
	Type        CallType
	Time        time.Duration

	// Reason distinguishes a re-registration from a first-time call, e.g.
	// "left-behind" when a DCS passenger re-registers after a
	// boarding-failed. Empty on a first-time registration.
	Reason string
}

// CarStatus is a snapshot row of the dispatcher's shadow table.
type CarStatus struct {
	Car              int
	CurrentFloor     int
	AdvancedPosition int
	Direction        elevatorcar.Direction
	State            elevatorcar.State
	Onboard          int
	Capacity         int
	Time             time.Duration
}

// AllocationStrategy is a pure function of (call, status snapshot) to the
// chosen car id. Implementations must never mutate their inputs and must
// never return a car id absent from the snapshot.
type AllocationStrategy interface {
	Allocate(call CallData, statuses []CarStatus) (carID int, ok bool)
}

// RepositionCommand is one action the repositioning strategy asks the
// dispatcher to forward to a car.
type RepositionCommand struct {
	Car    int
	Floor  int
	Forced bool
	Dir    elevatorcar.Direction // Forced moves only
}

// RepositioningStrategy reacts to every status update and may emit zero or
// more commands. It owns any memory it needs (e.g. previously sent
// commands) explicitly in its own state, per the "no hidden state" design
// note.
type RepositioningStrategy interface {
	OnStatusUpdate(status CarStatus, allStatuses []CarStatus) []RepositionCommand
}

// HallCallRegistered and HallCallAssignment are the event-log records this
// package is responsible for emitting.
type HallCallRegistered struct {
	Floor     int
	Direction hallbutton.Direction
	Type      CallType
	Reason    string
}

type HallCallAssignment struct {
	Floor       int
	Destination int
	PassengerID int
	Car         int
	Type        CallType
}

// AssignmentTopic is the stable per-passenger address a DCS passenger
// polls for its assignment, avoiding the requeue idiom the source's shared
// assignment topic would otherwise need (see design notes: an
// implementation should consider a per-passenger topic instead).
func AssignmentTopic(passengerID int) string {
	return fmt.Sprintf("passenger/%d/assignment", passengerID)
}

type carEntry struct {
	capacity int
	status   CarStatus
}

// Dispatcher owns the registry of cars and the shadow status table.
type Dispatcher struct {
	bus          *msgbus.Bus
	logger       *log.Logger
	allocation   AllocationStrategy
	reposition   RepositioningStrategy
	cars         []int
	statuses     map[int]CarStatus
	capacities   map[int]int
	carCallTopic func(car int) string
	assignTopic  func(car int) string
	hallPanel    hallPanel
}

type hallPanel interface {
	Press(floor int, dir hallbutton.Direction) bool
}

// New constructs a dispatcher. assignTopic/carCallTopic translate a car id
// to its task-topic / car-call-topic (elevatorcar.Car.TaskTopic /
// CarCallTopic), kept as functions rather than direct car references so
// the dispatcher only ever talks to cars through the bus.
func New(bus *msgbus.Bus, logger *log.Logger, alloc AllocationStrategy, repo RepositioningStrategy, panel hallPanel, assignTopic, carCallTopic func(car int) string) *Dispatcher {
	return &Dispatcher{
		bus:          bus,
		logger:       logger,
		allocation:   alloc,
		reposition:   repo,
		statuses:     make(map[int]CarStatus),
		capacities:   make(map[int]int),
		carCallTopic: carCallTopic,
		assignTopic:  assignTopic,
		hallPanel:    panel,
	}
}

// RegisterCar adds a car to the registry, listened to on statusTopic.
func (d *Dispatcher) RegisterCar(k *kernel.Kernel, carID, capacity int, statusTopic string) {
	d.cars = append(d.cars, carID)
	d.capacities[carID] = capacity
	k.Spawn(func(t *kernel.Task) {
		for {
			msg := d.bus.Receive(t, statusTopic)
			if msg == nil {
				return
			}
			es, ok := msg.(elevatorcar.ElevatorStatus)
			if !ok {
				continue
			}
			status := CarStatus{
				Car:              es.Car,
				CurrentFloor:     es.CurrentFloor,
				AdvancedPosition: es.AdvancedPosition,
				Direction:        es.Direction,
				State:            es.State,
				Onboard:          es.Onboard,
				Capacity:         d.capacities[es.Car],
				Time:             es.Time,
			}
			d.statuses[es.Car] = status
			d.runRepositioning(t, status)
		}
	})
}

func (d *Dispatcher) snapshot() []CarStatus {
	out := make([]CarStatus, 0, len(d.statuses))
	for _, id := range d.cars {
		if s, ok := d.statuses[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *Dispatcher) runRepositioning(t *kernel.Task, status CarStatus) {
	if d.reposition == nil {
		return
	}
	cmds := d.reposition.OnStatusUpdate(status, d.snapshot())
	for _, cmd := range cmds {
		if cmd.Forced {
			d.bus.Publish(t, d.assignTopic(cmd.Car), elevatorcar.ForcedMove{Floor: cmd.Floor, Dir: cmd.Dir})
		} else {
			d.bus.Publish(t, d.assignTopic(cmd.Car), elevatorcar.RegisterCarCallMsg{Floor: cmd.Floor})
		}
	}
}

// HallCallListener listens on topic for new hall calls (Traditional
// direction presses or DCS destination registrations) and assigns each to
// a car via the allocation strategy, falling back to the first registered
// car if the strategy returns nothing.
func (d *Dispatcher) HallCallListener(t *kernel.Task, topic string) {
	for {
		msg := d.bus.Receive(t, topic)
		if msg == nil {
			return
		}
		call, ok := msg.(CallData)
		if !ok {
			continue
		}

		if call.Type == Directional {
			if d.hallPanel.Press(call.Floor, call.Direction) {
				d.bus.Publish(t, d.eventsTopic(), HallCallRegistered{Floor: call.Floor, Direction: call.Direction, Type: call.Type, Reason: call.Reason})
			}
		} else {
			d.bus.Publish(t, d.eventsTopic(), HallCallRegistered{Floor: call.Floor, Direction: call.Direction, Type: call.Type, Reason: call.Reason})
		}

		carID, ok := d.allocation.Allocate(call, d.snapshot())
		if !ok {
			if len(d.cars) == 0 {
				continue
			}
			carID = d.cars[0]
		}

		d.bus.Publish(t, d.eventsTopic(), HallCallAssignment{
			Floor:       call.Floor,
			Destination: call.Destination,
			PassengerID: call.PassengerID,
			Car:         carID,
			Type:        call.Type,
		})

		if call.Type == Directional {
			d.bus.Publish(t, d.assignTopic(carID), elevatorcar.AssignHallCall{Floor: call.Floor, Direction: call.Direction})
		} else {
			d.bus.Publish(t, d.assignTopic(carID), elevatorcar.AssignHallCall{Floor: call.Floor, Destination: call.Destination, IsDCS: true})
			d.bus.Publish(t, AssignmentTopic(call.PassengerID), HallCallAssignment{
				Floor: call.Floor, Destination: call.Destination, PassengerID: call.PassengerID, Car: carID, Type: call.Type,
			})
		}
	}
}

func (d *Dispatcher) eventsTopic() string { return "dispatcher/events" }
