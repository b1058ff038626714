package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"elevatorsim/building"
	"elevatorsim/callsystem"
	"elevatorsim/dispatcher"
	"elevatorsim/door"
	"elevatorsim/elevatorcar"
	"elevatorsim/floorqueue"
	"elevatorsim/hallbutton"
	"elevatorsim/kernel"
	"elevatorsim/msgbus"
	"elevatorsim/passenger"
	"elevatorsim/workflow"
)

func testBuilding(t *testing.T) *building.Building {
	t.Helper()
	floors := []building.Floor{{ControlFloor: 1}, {ControlFloor: 2}, {ControlFloor: 3}}
	b, err := building.New(floors, 1)
	require.NoError(t, err)
	return b
}

const hallCallsTopic = "hallcalls"

func TestRunTraditionalRegistersCallBoardsAndAlights(t *testing.T) {
	k := kernel.New(0, nil)
	bus := msgbus.New(k, 64)
	b := testBuilding(t)
	cs := callsystem.New(callsystem.Traditional, 1, nil, nil)
	hall := hallbutton.NewPanel(b)
	fq := floorqueue.NewManager()
	r := workflow.New(bus, cs, hall, fq, func() string { return hallCallsTopic })

	p := passenger.New(1, "rider", time.Millisecond, []passenger.Journey{{ArrivalFloor: 1, DestinationFloor: 3}})

	var registeredCall dispatcher.CallData
	var carCallFloor int

	k.Spawn(func(tk *kernel.Task) { r.Run(tk, p) })

	k.Spawn(func(tk *kernel.Task) {
		registeredCall = bus.Receive(tk, hallCallsTopic).(dispatcher.CallData)

		completion := "door/completion/board"
		bus.Publish(tk, door.PassengerTopic(p.ID), door.Permission{Kind: door.PermissionBoard, Floor: 1, CarID: 1, CompletionTopic: completion})
		msg := bus.Receive(tk, elevatorcar.CarCallTopicFor(1))
		carCallFloor = msg.(elevatorcar.RegisterCarCallMsg).Floor
		bus.Receive(tk, completion)

		exitCompletion := "door/completion/exit"
		bus.Publish(tk, door.PassengerTopic(p.ID), door.Permission{Kind: door.PermissionExit, Floor: 3, CarID: 1, CompletionTopic: exitCompletion})
		bus.Receive(tk, exitCompletion)
	})

	k.Run()

	require.Equal(t, 1, registeredCall.Floor)
	require.Equal(t, hallbutton.Up, registeredCall.Direction)
	require.Equal(t, 3, carCallFloor)
	require.Equal(t, 1, p.BoardedCar)
}

func TestRunTraditionalBoardingFailedReregisters(t *testing.T) {
	k := kernel.New(0, nil)
	bus := msgbus.New(k, 64)
	b := testBuilding(t)
	cs := callsystem.New(callsystem.Traditional, 1, nil, nil)
	hall := hallbutton.NewPanel(b)
	fq := floorqueue.NewManager()
	r := workflow.New(bus, cs, hall, fq, func() string { return hallCallsTopic })

	p := passenger.New(2, "rider", time.Millisecond, []passenger.Journey{{ArrivalFloor: 1, DestinationFloor: 2}})

	k.Spawn(func(tk *kernel.Task) { r.Run(tk, p) })

	k.Spawn(func(tk *kernel.Task) {
		bus.Receive(tk, hallCallsTopic) // first registration, consumed and ignored
		// The refusing car boarded others from this queue and cleared the
		// button, so the left-behind passenger's retry press lights it again.
		hall.Serve(1, hallbutton.Up)
		bus.Publish(tk, door.PassengerTopic(p.ID), door.BoardingFailed{Floor: 1, Reason: "capacity"})

		bus.Receive(tk, hallCallsTopic) // re-registration after the failure

		completion := "door/completion/board2"
		bus.Publish(tk, door.PassengerTopic(p.ID), door.Permission{Kind: door.PermissionBoard, Floor: 1, CarID: 5, CompletionTopic: completion})
		bus.Receive(tk, elevatorcar.CarCallTopicFor(5))
		bus.Receive(tk, completion)

		exitCompletion := "door/completion/exit2"
		bus.Publish(tk, door.PassengerTopic(p.ID), door.Permission{Kind: door.PermissionExit, Floor: 2, CarID: 5, CompletionTopic: exitCompletion})
		bus.Receive(tk, exitCompletion)
	})

	k.Run()

	require.Equal(t, 1, p.FailedBoardCount)
	require.Equal(t, 5, p.BoardedCar)
}

func TestRunDCSWaitsForAddressedAssignment(t *testing.T) {
	k := kernel.New(0, nil)
	bus := msgbus.New(k, 64)
	b := testBuilding(t)
	cs := callsystem.New(callsystem.FullDCS, 1, nil, nil)
	hall := hallbutton.NewPanel(b)
	fq := floorqueue.NewManager()
	r := workflow.New(bus, cs, hall, fq, func() string { return hallCallsTopic })

	p := passenger.New(3, "rider", time.Millisecond, []passenger.Journey{{ArrivalFloor: 1, DestinationFloor: 3}})

	var dcsCall dispatcher.CallData

	k.Spawn(func(tk *kernel.Task) { r.Run(tk, p) })

	k.Spawn(func(tk *kernel.Task) {
		dcsCall = bus.Receive(tk, hallCallsTopic).(dispatcher.CallData)

		bus.Publish(tk, dispatcher.AssignmentTopic(p.ID), dispatcher.HallCallAssignment{Car: 2, Destination: dcsCall.Destination})

		completion := "door/completion/dcs-board"
		bus.Publish(tk, door.PassengerTopic(p.ID), door.Permission{Kind: door.PermissionBoard, Floor: 1, CarID: 2, CompletionTopic: completion})
		bus.Receive(tk, completion)

		exitCompletion := "door/completion/dcs-exit"
		bus.Publish(tk, door.PassengerTopic(p.ID), door.Permission{Kind: door.PermissionExit, Floor: 3, CarID: 2, CompletionTopic: exitCompletion})
		bus.Receive(tk, exitCompletion)
	})

	k.Run()

	require.Equal(t, 3, dcsCall.Destination)
	require.Equal(t, 2, p.AssignedCar)
	require.Equal(t, 2, p.BoardedCar)
}

func TestRunDCSRejectsDestinationOutsideZone(t *testing.T) {
	k := kernel.New(0, nil)
	bus := msgbus.New(k, 64)
	b := testBuilding(t)
	cs := callsystem.New(callsystem.ZonedDCS, 1, []int{1}, map[int][]int{1: {2}})
	hall := hallbutton.NewPanel(b)
	fq := floorqueue.NewManager()
	r := workflow.New(bus, cs, hall, fq, func() string { return hallCallsTopic })

	p := passenger.New(5, "rider", time.Millisecond, []passenger.Journey{{ArrivalFloor: 1, DestinationFloor: 3}})

	k.Spawn(func(tk *kernel.Task) { r.Run(tk, p) })

	sawCall := false
	k.Spawn(func(tk *kernel.Task) {
		if _, ok := bus.TryReceive(tk, hallCallsTopic); ok {
			sawCall = true
		}
	})

	k.Run()
	require.False(t, sawCall)
}

func TestRunDCSBoardingFailedReregistersWithReason(t *testing.T) {
	k := kernel.New(0, nil)
	bus := msgbus.New(k, 64)
	b := testBuilding(t)
	cs := callsystem.New(callsystem.FullDCS, 1, nil, nil)
	hall := hallbutton.NewPanel(b)
	fq := floorqueue.NewManager()
	r := workflow.New(bus, cs, hall, fq, func() string { return hallCallsTopic })

	p := passenger.New(4, "rider", time.Millisecond, []passenger.Journey{{ArrivalFloor: 1, DestinationFloor: 3}})

	var firstCall, secondCall dispatcher.CallData

	k.Spawn(func(tk *kernel.Task) { r.Run(tk, p) })

	k.Spawn(func(tk *kernel.Task) {
		firstCall = bus.Receive(tk, hallCallsTopic).(dispatcher.CallData)
		bus.Publish(tk, dispatcher.AssignmentTopic(p.ID), dispatcher.HallCallAssignment{Car: 2, Destination: firstCall.Destination})

		bus.Publish(tk, door.PassengerTopic(p.ID), door.BoardingFailed{Floor: 1, Reason: "capacity"})

		secondCall = bus.Receive(tk, hallCallsTopic).(dispatcher.CallData)
		bus.Publish(tk, dispatcher.AssignmentTopic(p.ID), dispatcher.HallCallAssignment{Car: 6, Destination: secondCall.Destination})

		completion := "door/completion/dcs-board2"
		bus.Publish(tk, door.PassengerTopic(p.ID), door.Permission{Kind: door.PermissionBoard, Floor: 1, CarID: 6, CompletionTopic: completion})
		bus.Receive(tk, completion)

		exitCompletion := "door/completion/dcs-exit2"
		bus.Publish(tk, door.PassengerTopic(p.ID), door.Permission{Kind: door.PermissionExit, Floor: 3, CarID: 6, CompletionTopic: exitCompletion})
		bus.Receive(tk, exitCompletion)
	})

	k.Run()

	require.Empty(t, firstCall.Reason)
	require.Equal(t, "left-behind", secondCall.Reason)
	require.Equal(t, 1, p.FailedBoardCount)
	require.Equal(t, 6, p.BoardedCar)
}
