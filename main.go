// Command elevatorsim runs a single simulation: two positional arguments
// name the simulation and group-control YAML configs, per section 6's CLI
// contract. Grounded in the teacher's flag-driven entry point (main.go),
// generalized from a single HTTP-served bus corridor to a batch elevator
// run with an optional live-stream server.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"elevatorsim/allocation"
	"elevatorsim/building"
	"elevatorsim/callsystem"
	"elevatorsim/config"
	"elevatorsim/diagnostics"
	"elevatorsim/dispatcher"
	"elevatorsim/door"
	"elevatorsim/elevatorcar"
	"elevatorsim/eventlog"
	"elevatorsim/floorqueue"
	"elevatorsim/hallbutton"
	"elevatorsim/kernel"
	"elevatorsim/msgbus"
	"elevatorsim/physics"
	"elevatorsim/reposition"
	"elevatorsim/stats"
	"elevatorsim/trafficsource"
	"elevatorsim/workflow"
	"elevatorsim/wsserver"
)

func main() {
	logPath := flag.String("log", "", "event log output path (default: stdout)")
	wsAddr := flag.String("ws-addr", "", "if set, serve the live event stream on this address (e.g. :8080)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: elevatorsim <simulation-config-path> <group-control-config-path>")
		os.Exit(1)
	}

	simCfg, err := config.LoadSimulation(args[0])
	if err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
	gcCfg, err := config.LoadGroupControl(args[1])
	if err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			log.Printf("fatal: cannot create log file: %v", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := run(simCfg, gcCfg, out, *wsAddr); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(simCfg *config.Simulation, gcCfg *config.GroupControl, out *os.File, wsAddr string) error {
	seed := int64(1)
	if simCfg.RandomSeed != nil {
		seed = *simCfg.RandomSeed
	}
	rng := rand.New(rand.NewSource(seed))

	b, err := newBuilding(simCfg)
	if err != nil {
		return fmt.Errorf("building setup: %w", err)
	}
	cs := newCallSystem(simCfg)
	phys, err := physics.NewSCurveProvider(b.NumFloors(), avgFloorHeight(simCfg), simCfg.Elevator.RatedSpeed, simCfg.Elevator.Acceleration, simCfg.Elevator.Jerk)
	if err != nil {
		return fmt.Errorf("physics setup: %w", err)
	}

	kernelLogger := log.New(out, "[kernel] ", log.LstdFlags)
	k := kernel.New(simCfg.RealtimeFactor, kernelLogger)
	bus := msgbus.New(k, 1024)

	hallPanel := hallbutton.NewPanel(b)
	floors := floorqueue.NewManager()

	// gcCfg.ReassignmentPolicy is validated by config but not read here
	// or anywhere else: a DCS passenger left behind by a capacity refusal
	// always re-runs allocation through workflow.runDCS's
	// re-publish-and-retry loop, and no code path pins it to its
	// originally assigned car.
	alloc, err := newAllocationStrategy(gcCfg.AllocationStrategy, b.NumFloors())
	if err != nil {
		return fmt.Errorf("allocation strategy: %w", err)
	}
	homeFloors := make(map[int]int, simCfg.Elevator.NumElevators)

	carCallTopic := func(car int) string { return elevatorcar.CarCallTopicFor(car) }
	assignTopic := func(car int) string { return elevatorcar.TaskTopicFor(car) }

	dispatcherLogger := log.New(out, "[dispatcher] ", log.LstdFlags)
	repo, err := newRepositioningStrategy(gcCfg.RepositioningStrategy, homeFloors)
	if err != nil {
		return fmt.Errorf("repositioning strategy: %w", err)
	}
	disp := dispatcher.New(bus, dispatcherLogger, alloc, repo, hallPanel, assignTopic, carCallTopic)

	cars := make([]*elevatorcar.Car, 0, simCfg.Elevator.NumElevators)
	for i := 0; i < simCfg.Elevator.NumElevators; i++ {
		carID := i + 1
		elevCfg := resolveElevatorConfig(simCfg, carID)
		homeFloors[carID] = elevCfg.HomeFloor

		d := door.New(carID, toDuration(simCfg.Door.OpenTimeSeconds), toDuration(simCfg.Door.CloseTimeSeconds), toDuration(simCfg.Door.SensorTimeoutSeconds), simCfg.Door.MaxReopensPerStop, bus)

		carLogger := log.New(out, fmt.Sprintf("[car %d] ", carID), log.LstdFlags)
		c := elevatorcar.New(elevCfg, b, cs, phys, floors, hallPanel, bus, d, carLogger)
		cars = append(cars, c)
	}

	for _, c := range cars {
		c.Run(k)
		disp.RegisterCar(k, c.ID, c.Capacity, c.StatusTopic())
	}
	k.Spawn(func(t *kernel.Task) { disp.HallCallListener(t, hallCallTopic()) })

	runner := workflow.New(bus, cs, hallPanel, floors, hallCallTopic)
	src := trafficsource.New(trafficsource.Config{
		Pattern:            trafficsource.ParsePattern(simCfg.Traffic.Pattern),
		NumFloors:          b.NumFloors(),
		LobbyFloor:         b.LobbyFloor(),
		GenerationRate:     simCfg.Traffic.PassengerGenerationRate,
		ODMatrix:           simCfg.Traffic.ODMatrix,
		AvgBoardingSpeed:   toDuration(simCfg.Traffic.AvgBoardingSeconds),
		AvgAlightingSpeed:  toDuration(simCfg.Traffic.AvgAlightingSeconds),
		SimulationDuration: toDuration(simCfg.Traffic.SimulationDurationSecs),
	}, rng, runner)
	k.Spawn(func(t *kernel.Task) { src.Run(t, k) })

	logWriter := eventlog.New(out, log.New(out, "[eventlog] ", log.LstdFlags))
	if err := logWriter.WriteMetadata(seed); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	collector := stats.NewCollector()
	for _, c := range cars {
		collector.RegisterCar(c.ID, c.Capacity)
	}
	diag := diagnostics.NewCollector()

	statsPipe := make(chan msgbus.Envelope, 1024)
	diagPipe := make(chan msgbus.Envelope, 1024)

	done := make(chan struct{}, 2)
	go func() { collector.Run(statsPipe); done <- struct{}{} }()
	go func() { diag.Run(diagPipe); done <- struct{}{} }()

	if wsAddr != "" {
		ws := wsserver.New(log.New(out, "[wsserver] ", log.LstdFlags))
		tee := make(chan eventlog.Record, 256)
		logWriter.Tee = tee
		go ws.Feed(tee)
		mux := http.NewServeMux()
		mux.HandleFunc("/stream", ws.Handler)
		go http.ListenAndServe(wsAddr, mux)
	}

	// msgbus.Bus exposes one mirror channel per bus (BroadcastPipe): a
	// single goroutine drains it and fans each envelope out to the event
	// log plus the stats/diagnostics collectors, since a Go channel
	// splits deliveries across readers rather than broadcasting to all of
	// them.
	fanoutDone := make(chan struct{})
	go func() {
		for env := range bus.BroadcastPipe() {
			logWriter.WriteEnvelope(env)
			select {
			case statsPipe <- env:
			default:
			}
			select {
			case diagPipe <- env:
			default:
			}
		}
		close(statsPipe)
		close(diagPipe)
		close(fanoutDone)
	}()

	k.Run()
	bus.Close()
	<-fanoutDone
	<-done
	<-done

	summary := collector.Summarize(toDuration(simCfg.Traffic.SimulationDurationSecs))
	stats.PrintConsoleReport(summary)
	diagnostics.Print(diag.Summary())
	return nil
}

func hallCallTopic() string { return "dispatcher/hall-calls" }

// newAllocationStrategy resolves the configured allocation_strategy.name
// to a concrete dispatcher.AllocationStrategy. "nearest_car" is the only
// one shipped; an unrecognized name is a configuration error rather than
// a silent fallback.
func newAllocationStrategy(spec config.StrategySpec, numFloors int) (dispatcher.AllocationStrategy, error) {
	switch spec.Name {
	case "", "nearest_car":
		return allocation.New(numFloors), nil
	default:
		return nil, fmt.Errorf("unknown allocation_strategy %q", spec.Name)
	}
}

// newRepositioningStrategy resolves the configured
// repositioning_strategy.name. "home_floor_return" is the only one
// shipped; "none" disables repositioning entirely.
func newRepositioningStrategy(spec config.StrategySpec, homeFloors map[int]int) (dispatcher.RepositioningStrategy, error) {
	switch spec.Name {
	case "", "home_floor_return":
		return reposition.New(homeFloors), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown repositioning_strategy %q", spec.Name)
	}
}

func newBuilding(simCfg *config.Simulation) (*building.Building, error) {
	floors := simCfg.Building.Floors
	if len(floors) == 0 {
		floors = make([]config.FloorSpec, simCfg.Building.NumFloors)
		for i := range floors {
			floors[i] = config.FloorSpec{ControlFloor: i + 1, FloorHeight: 3.5}
		}
	}
	bf := make([]building.Floor, len(floors))
	for i, f := range floors {
		bf[i] = building.Floor{ControlFloor: f.ControlFloor, DisplayName: f.DisplayName, HeightMeters: f.FloorHeight}
	}
	return building.New(bf, simCfg.Building.LobbyFloor)
}

func avgFloorHeight(simCfg *config.Simulation) float64 {
	if len(simCfg.Building.Floors) == 0 {
		return 3.5
	}
	sum := 0.0
	for _, f := range simCfg.Building.Floors {
		sum += f.FloorHeight
	}
	return sum / float64(len(simCfg.Building.Floors))
}

func newCallSystem(simCfg *config.Simulation) *callsystem.CallSystem {
	var typ callsystem.Type
	switch simCfg.CallSystem.Type {
	case "FULL_DCS":
		typ = callsystem.FullDCS
	case "LOBBY_DCS":
		typ = callsystem.LobbyDCS
	case "ZONED_DCS":
		typ = callsystem.ZonedDCS
	default:
		typ = callsystem.Traditional
	}
	lobby := simCfg.CallSystem.LobbyFloor
	if lobby == 0 {
		lobby = simCfg.Building.LobbyFloor
	}
	var zones map[int][]int
	if len(simCfg.CallSystem.Zones) > 0 {
		zones = make(map[int][]int, len(simCfg.CallSystem.Zones))
		for _, z := range simCfg.CallSystem.Zones {
			zones[z.Floor] = z.ServiceFloors
		}
	}
	return callsystem.New(typ, lobby, simCfg.CallSystem.DCSFloors, zones)
}

func resolveElevatorConfig(simCfg *config.Simulation, carID int) elevatorcar.Config {
	e := simCfg.Elevator
	cfg := elevatorcar.Config{
		ID:             carID,
		Capacity:       e.MaxCapacity,
		HomeFloor:      e.HomeFloor,
		MainDirection:  parseDirection(e.MainDirection),
		ServiceFloors:  e.ServiceFloors,
		FullLoadBypass: e.FullLoadBypass,
	}
	idx := carID - 1
	if idx >= 0 && idx < len(e.PerElevator) {
		ov := e.PerElevator[idx]
		if ov.HomeFloor != 0 {
			cfg.HomeFloor = ov.HomeFloor
		}
		if ov.MainDirection != "" {
			cfg.MainDirection = parseDirection(ov.MainDirection)
		}
		if len(ov.ServiceFloors) > 0 {
			cfg.ServiceFloors = ov.ServiceFloors
		}
		if ov.FullLoadBypass != nil {
			cfg.FullLoadBypass = *ov.FullLoadBypass
		}
		if ov.Capacity != 0 {
			cfg.Capacity = ov.Capacity
		}
	}
	return cfg
}

func parseDirection(s string) elevatorcar.Direction {
	if s == "DOWN" {
		return elevatorcar.Down
	}
	return elevatorcar.Up
}

func toDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
