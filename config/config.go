// Package config loads and validates the two YAML documents that drive a
// run: the simulation configuration (building geometry, elevator bank,
// door timings, traffic source, call-system regime) and the group-control
// configuration (allocation strategy, repositioning strategy, reassignment
// policy). Grounded in the teacher's flag-driven Options struct
// (server/server.go's Options) generalized from CLI flags to a validated
// YAML schema, per section 6's external-interfaces requirement.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FloorSpec is one entry of building.floors in the simulation document.
type FloorSpec struct {
	ControlFloor int     `yaml:"control_floor"`
	DisplayName  string  `yaml:"display_name"`
	FloorHeight  float64 `yaml:"floor_height"`
}

// BuildingSpec is the building{} block of simulation.yaml.
type BuildingSpec struct {
	NumFloors  int         `yaml:"num_floors"`
	LobbyFloor int         `yaml:"lobby_floor"`
	Floors     []FloorSpec `yaml:"floors"`
}

// PerElevatorSpec overrides bank-wide elevator defaults for one car.
type PerElevatorSpec struct {
	HomeFloor      int      `yaml:"home_floor"`
	MainDirection  string   `yaml:"main_direction"`
	ServiceFloors  []int    `yaml:"service_floors"`
	FullLoadBypass *bool    `yaml:"full_load_bypass"`
	Capacity       int      `yaml:"max_capacity"`
}

// ElevatorSpec is the elevator{} block of simulation.yaml.
type ElevatorSpec struct {
	NumElevators   int               `yaml:"num_elevators"`
	MaxCapacity    int               `yaml:"max_capacity"`
	RatedSpeed     float64           `yaml:"rated_speed"`
	Acceleration   float64           `yaml:"acceleration"`
	Jerk           float64           `yaml:"jerk"`
	FullLoadBypass bool              `yaml:"full_load_bypass"`
	HomeFloor      int               `yaml:"home_floor"`
	MainDirection  string            `yaml:"main_direction"`
	ServiceFloors  []int             `yaml:"service_floors"`
	PerElevator    []PerElevatorSpec `yaml:"per_elevator"`
}

// DoorSpec is the door{} block of simulation.yaml.
type DoorSpec struct {
	OpenTimeSeconds      float64 `yaml:"open_time"`
	CloseTimeSeconds     float64 `yaml:"close_time"`
	SensorTimeoutSeconds float64 `yaml:"sensor_timeout"`
	MaxReopensPerStop    int     `yaml:"max_reopens_per_stop"`
}

// TrafficSpec is the traffic{} block of simulation.yaml.
type TrafficSpec struct {
	Pattern                 string      `yaml:"pattern"`
	SimulationDurationSecs  float64     `yaml:"simulation_duration"`
	PassengerGenerationRate float64     `yaml:"passenger_generation_rate"`
	ODMatrix                [][]float64 `yaml:"od_matrix"`
	AvgBoardingSeconds      float64     `yaml:"avg_boarding"`
	AvgAlightingSeconds     float64     `yaml:"avg_alighting"`
}

// ZoneSpec names the destinations a ZonedDCS origin floor's panel may
// dispatch to.
type ZoneSpec struct {
	Floor         int   `yaml:"floor"`
	ServiceFloors []int `yaml:"service_floors"`
}

// CallSystemSpec is the call_system{} block of simulation.yaml.
type CallSystemSpec struct {
	Type       string     `yaml:"type"`
	LobbyFloor int        `yaml:"lobby_floor"`
	DCSFloors  []int      `yaml:"dcs_floors"`
	Zones      []ZoneSpec `yaml:"zones"` // ZonedDCS only
}

// Simulation is the root document of simulation.yaml.
type Simulation struct {
	Building       BuildingSpec   `yaml:"building"`
	Elevator       ElevatorSpec   `yaml:"elevator"`
	Door           DoorSpec       `yaml:"door"`
	Traffic        TrafficSpec    `yaml:"traffic"`
	CallSystem     CallSystemSpec `yaml:"call_system"`
	RandomSeed     *int64         `yaml:"random_seed"`
	RealtimeFactor float64        `yaml:"realtime_factor"`
}

// StrategySpec names a pluggable strategy and its free-form parameters.
type StrategySpec struct {
	Name       string                 `yaml:"name"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// ReassignmentPolicySpec is the reassignment_policy{} block of
// group_control.yaml, per SPEC_FULL.md's supplemented reassignment-policy
// feature.
type ReassignmentPolicySpec struct {
	Enabled    bool                   `yaml:"enabled"`
	Name       string                 `yaml:"name"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// GroupControl is the root document of group_control.yaml.
type GroupControl struct {
	AllocationStrategy    StrategySpec           `yaml:"allocation_strategy"`
	RepositioningStrategy StrategySpec           `yaml:"repositioning_strategy"`
	ReassignmentPolicy    ReassignmentPolicySpec `yaml:"reassignment_policy"`
}

// LoadSimulation reads and validates the simulation document at path.
func LoadSimulation(path string) (*Simulation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read simulation config: %w", err)
	}
	var s Simulation
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("config: parse simulation config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid simulation config: %w", err)
	}
	return &s, nil
}

// LoadGroupControl reads and validates the group-control document at path.
func LoadGroupControl(path string) (*GroupControl, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read group-control config: %w", err)
	}
	var g GroupControl
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("config: parse group-control config: %w", err)
	}
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid group-control config: %w", err)
	}
	return &g, nil
}

func (s *Simulation) validate() error {
	if s.Building.NumFloors < 2 {
		return fmt.Errorf("building.num_floors must be >= 2, got %d", s.Building.NumFloors)
	}
	if s.Building.LobbyFloor < 1 || s.Building.LobbyFloor > s.Building.NumFloors {
		return fmt.Errorf("building.lobby_floor %d out of range [1,%d]", s.Building.LobbyFloor, s.Building.NumFloors)
	}
	if len(s.Building.Floors) != 0 && len(s.Building.Floors) != s.Building.NumFloors {
		return fmt.Errorf("building.floors has %d entries, want %d", len(s.Building.Floors), s.Building.NumFloors)
	}
	if s.Elevator.NumElevators < 1 {
		return fmt.Errorf("elevator.num_elevators must be >= 1, got %d", s.Elevator.NumElevators)
	}
	if s.Elevator.MaxCapacity < 1 {
		return fmt.Errorf("elevator.max_capacity must be >= 1, got %d", s.Elevator.MaxCapacity)
	}
	if s.Elevator.RatedSpeed <= 0 || s.Elevator.Acceleration <= 0 {
		return fmt.Errorf("elevator.rated_speed and elevator.acceleration must be positive")
	}
	switch s.Elevator.MainDirection {
	case "UP", "DOWN", "":
	default:
		return fmt.Errorf("elevator.main_direction must be UP or DOWN, got %q", s.Elevator.MainDirection)
	}
	switch s.CallSystem.Type {
	case "TRADITIONAL", "FULL_DCS", "LOBBY_DCS", "ZONED_DCS":
	default:
		return fmt.Errorf("call_system.type must be one of TRADITIONAL, FULL_DCS, LOBBY_DCS, ZONED_DCS, got %q", s.CallSystem.Type)
	}
	if (s.CallSystem.Type == "LOBBY_DCS") && s.CallSystem.LobbyFloor == 0 {
		s.CallSystem.LobbyFloor = s.Building.LobbyFloor
	}
	if s.Door.OpenTimeSeconds <= 0 || s.Door.CloseTimeSeconds <= 0 {
		return fmt.Errorf("door.open_time and door.close_time must be positive")
	}
	if s.Door.SensorTimeoutSeconds <= 0 {
		s.Door.SensorTimeoutSeconds = 1.0
	}
	if s.Traffic.SimulationDurationSecs <= 0 {
		return fmt.Errorf("traffic.simulation_duration must be positive")
	}
	if s.RealtimeFactor < 0 {
		return fmt.Errorf("realtime_factor must be >= 0")
	}
	return nil
}

func (g *GroupControl) validate() error {
	if g.AllocationStrategy.Name == "" {
		return fmt.Errorf("allocation_strategy.name is required")
	}
	if g.RepositioningStrategy.Name == "" {
		return fmt.Errorf("repositioning_strategy.name is required")
	}
	return nil
}
