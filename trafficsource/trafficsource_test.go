package trafficsource

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	require.Equal(t, UpPeak, ParsePattern("UP_PEAK"))
	require.Equal(t, UpPeak, ParsePattern("up_peak"))
	require.Equal(t, DownPeak, ParsePattern("DOWN_PEAK"))
	require.Equal(t, Balanced, ParsePattern("TRADITIONAL"))
	require.Equal(t, Balanced, ParsePattern(""))
}

func TestDrawODPairUpPeakOriginatesAtLobby(t *testing.T) {
	s := New(Config{Pattern: UpPeak, NumFloors: 10, LobbyFloor: 1}, rand.New(rand.NewSource(1)), nil)
	for i := 0; i < 20; i++ {
		origin, dest := s.drawODPair()
		require.Equal(t, 1, origin)
		require.NotEqual(t, origin, dest)
	}
}

func TestDrawODPairDownPeakEndsAtLobby(t *testing.T) {
	s := New(Config{Pattern: DownPeak, NumFloors: 10, LobbyFloor: 1}, rand.New(rand.NewSource(2)), nil)
	for i := 0; i < 20; i++ {
		origin, dest := s.drawODPair()
		require.Equal(t, 1, dest)
		require.NotEqual(t, origin, dest)
	}
}

func TestDrawODPairBalancedNeverSelfTrip(t *testing.T) {
	s := New(Config{Pattern: Balanced, NumFloors: 6, LobbyFloor: 1}, rand.New(rand.NewSource(3)), nil)
	for i := 0; i < 50; i++ {
		origin, dest := s.drawODPair()
		require.NotEqual(t, origin, dest)
		require.GreaterOrEqual(t, origin, 1)
		require.LessOrEqual(t, origin, 6)
	}
}

func TestDrawFromMatrixHonorsWeights(t *testing.T) {
	matrix := [][]float64{
		{0, 1, 0},
		{0, 0, 0},
		{0, 0, 0},
	}
	s := New(Config{NumFloors: 3, ODMatrix: matrix}, rand.New(rand.NewSource(4)), nil)
	for i := 0; i < 10; i++ {
		origin, dest := s.drawFromMatrix()
		if origin == 1 {
			require.Equal(t, 2, dest)
		}
	}
}

func TestDrawFromMatrixFallsBackToUniformOnZeroRow(t *testing.T) {
	matrix := [][]float64{
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
	}
	s := New(Config{NumFloors: 3, ODMatrix: matrix}, rand.New(rand.NewSource(5)), nil)
	for i := 0; i < 10; i++ {
		origin, dest := s.drawFromMatrix()
		require.NotEqual(t, origin, dest)
	}
}

func TestNextInterArrivalPositive(t *testing.T) {
	s := New(Config{GenerationRate: 0.1}, rand.New(rand.NewSource(6)), nil)
	for i := 0; i < 20; i++ {
		require.Greater(t, s.nextInterArrival(), time.Duration(0))
	}
}
