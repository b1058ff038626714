package callsystem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"elevatorsim/callsystem"
)

func TestTraditionalHasHallAndCarButtonsEverywhere(t *testing.T) {
	cs := callsystem.New(callsystem.Traditional, 1, nil, nil)
	require.False(t, cs.IsDCSFloor(1))
	require.True(t, cs.HasDirectionButtons(5))
	require.True(t, cs.HasCarButtons())
}

func TestFullDCSHasNoHallOrCarButtons(t *testing.T) {
	cs := callsystem.New(callsystem.FullDCS, 1, nil, nil)
	require.True(t, cs.IsDCSFloor(1))
	require.True(t, cs.IsDCSFloor(9))
	require.False(t, cs.HasDirectionButtons(1))
	require.False(t, cs.HasCarButtons())
}

func TestLobbyDCSOnlyLobbyFloorIsDCS(t *testing.T) {
	cs := callsystem.New(callsystem.LobbyDCS, 1, nil, nil)
	require.True(t, cs.IsDCSFloor(1))
	require.False(t, cs.IsDCSFloor(2))
	require.True(t, cs.HasCarButtons())
}

func TestZonedDCSRestrictsDestinations(t *testing.T) {
	zones := map[int][]int{1: {5, 6}}
	cs := callsystem.New(callsystem.ZonedDCS, 1, []int{1}, zones)
	require.True(t, cs.IsDCSFloor(1))
	require.ElementsMatch(t, []int{5, 6}, cs.AllowedDestinations(1))
	require.True(t, cs.ValidateDestination(1, 5))
	require.False(t, cs.ValidateDestination(1, 7))
}

func TestValidateDestinationUnrestrictedOutsideZonedDCS(t *testing.T) {
	cs := callsystem.New(callsystem.Traditional, 1, nil, nil)
	require.True(t, cs.ValidateDestination(1, 99))
}
