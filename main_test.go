package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"elevatorsim/callsystem"
	"elevatorsim/config"
	"elevatorsim/elevatorcar"
)

func TestNewAllocationStrategyDefaultsToNearestCar(t *testing.T) {
	_, err := newAllocationStrategy(config.StrategySpec{}, 5)
	require.NoError(t, err)

	_, err = newAllocationStrategy(config.StrategySpec{Name: "nearest_car"}, 5)
	require.NoError(t, err)
}

func TestNewAllocationStrategyRejectsUnknownName(t *testing.T) {
	_, err := newAllocationStrategy(config.StrategySpec{Name: "bogus"}, 5)
	require.Error(t, err)
}

func TestNewRepositioningStrategyNoneDisablesRepositioning(t *testing.T) {
	strat, err := newRepositioningStrategy(config.StrategySpec{Name: "none"}, map[int]int{1: 1})
	require.NoError(t, err)
	require.Nil(t, strat)
}

func TestNewRepositioningStrategyDefaultsToHomeFloorReturn(t *testing.T) {
	strat, err := newRepositioningStrategy(config.StrategySpec{}, map[int]int{1: 1})
	require.NoError(t, err)
	require.NotNil(t, strat)
}

func TestNewRepositioningStrategyRejectsUnknownName(t *testing.T) {
	_, err := newRepositioningStrategy(config.StrategySpec{Name: "bogus"}, nil)
	require.Error(t, err)
}

func TestNewCallSystemMapsConfiguredTypes(t *testing.T) {
	cases := []struct {
		in   string
		want callsystem.Type
	}{
		{"", callsystem.Traditional},
		{"FULL_DCS", callsystem.FullDCS},
		{"LOBBY_DCS", callsystem.LobbyDCS},
		{"ZONED_DCS", callsystem.ZonedDCS},
		{"not_a_real_type", callsystem.Traditional},
	}
	for _, c := range cases {
		simCfg := &config.Simulation{CallSystem: config.CallSystemSpec{Type: c.in}}
		cs := newCallSystem(simCfg)
		require.Equal(t, c.want, cs.Type())
	}
}

func TestNewCallSystemThreadsZonesForZonedDCS(t *testing.T) {
	simCfg := &config.Simulation{
		CallSystem: config.CallSystemSpec{
			Type:      "ZONED_DCS",
			DCSFloors: []int{1},
			Zones:     []config.ZoneSpec{{Floor: 1, ServiceFloors: []int{5, 6}}},
		},
	}
	cs := newCallSystem(simCfg)
	require.True(t, cs.ValidateDestination(1, 5))
	require.False(t, cs.ValidateDestination(1, 9))
}

func TestNewCallSystemLobbyFloorFallsBackToBuildingLobby(t *testing.T) {
	simCfg := &config.Simulation{
		Building:   config.BuildingSpec{LobbyFloor: 2},
		CallSystem: config.CallSystemSpec{Type: "LOBBY_DCS"},
	}
	cs := newCallSystem(simCfg)
	require.True(t, cs.HasDestinationPanel(2))
	require.False(t, cs.HasDestinationPanel(1))
}

func TestParseDirection(t *testing.T) {
	require.Equal(t, elevatorcar.Down, parseDirection("DOWN"))
	require.Equal(t, elevatorcar.Up, parseDirection("UP"))
	require.Equal(t, elevatorcar.Up, parseDirection(""))
}

func TestResolveElevatorConfigAppliesBankDefaults(t *testing.T) {
	simCfg := &config.Simulation{
		Elevator: config.ElevatorSpec{
			MaxCapacity:    10,
			HomeFloor:      1,
			MainDirection:  "UP",
			FullLoadBypass: true,
		},
	}
	cfg := resolveElevatorConfig(simCfg, 1)
	require.Equal(t, 1, cfg.ID)
	require.Equal(t, 10, cfg.Capacity)
	require.Equal(t, 1, cfg.HomeFloor)
	require.Equal(t, elevatorcar.Up, cfg.MainDirection)
	require.True(t, cfg.FullLoadBypass)
}

func TestResolveElevatorConfigAppliesPerElevatorOverride(t *testing.T) {
	noBypass := false
	simCfg := &config.Simulation{
		Elevator: config.ElevatorSpec{
			MaxCapacity:    10,
			HomeFloor:      1,
			MainDirection:  "UP",
			FullLoadBypass: true,
			PerElevator: []config.PerElevatorSpec{
				{HomeFloor: 5, MainDirection: "DOWN", Capacity: 6, FullLoadBypass: &noBypass, ServiceFloors: []int{3, 4, 5}},
			},
		},
	}
	cfg := resolveElevatorConfig(simCfg, 1)
	require.Equal(t, 5, cfg.HomeFloor)
	require.Equal(t, elevatorcar.Down, cfg.MainDirection)
	require.Equal(t, 6, cfg.Capacity)
	require.False(t, cfg.FullLoadBypass)
	require.Equal(t, []int{3, 4, 5}, cfg.ServiceFloors)
}

func TestResolveElevatorConfigIgnoresOverrideForUnlistedCar(t *testing.T) {
	simCfg := &config.Simulation{
		Elevator: config.ElevatorSpec{
			MaxCapacity: 8,
			HomeFloor:   1,
			PerElevator: []config.PerElevatorSpec{{HomeFloor: 9}},
		},
	}
	cfg := resolveElevatorConfig(simCfg, 2)
	require.Equal(t, 1, cfg.HomeFloor)
	require.Equal(t, 8, cfg.Capacity)
}

func TestAvgFloorHeightDefaultsWhenNoExplicitFloors(t *testing.T) {
	simCfg := &config.Simulation{Building: config.BuildingSpec{NumFloors: 3}}
	require.Equal(t, 3.5, avgFloorHeight(simCfg))
}

func TestAvgFloorHeightAveragesExplicitFloors(t *testing.T) {
	simCfg := &config.Simulation{Building: config.BuildingSpec{Floors: []config.FloorSpec{
		{ControlFloor: 1, FloorHeight: 3},
		{ControlFloor: 2, FloorHeight: 5},
	}}}
	require.Equal(t, 4.0, avgFloorHeight(simCfg))
}

func TestToDurationConvertsSecondsToNanoseconds(t *testing.T) {
	require.Equal(t, int64(1500000000), toDuration(1.5).Nanoseconds())
}
