package hallbutton_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"elevatorsim/building"
	"elevatorsim/hallbutton"
)

func testBuilding(t *testing.T) *building.Building {
	t.Helper()
	b, err := building.New([]building.Floor{
		{ControlFloor: 1}, {ControlFloor: 2}, {ControlFloor: 3},
	}, 1)
	require.NoError(t, err)
	return b
}

func TestGroundFloorOnlyHasUp(t *testing.T) {
	p := hallbutton.NewPanel(testBuilding(t))
	require.True(t, p.Allowed(1, hallbutton.Up))
	require.False(t, p.Allowed(1, hallbutton.Down))
}

func TestTopFloorOnlyHasDown(t *testing.T) {
	p := hallbutton.NewPanel(testBuilding(t))
	require.False(t, p.Allowed(3, hallbutton.Up))
	require.True(t, p.Allowed(3, hallbutton.Down))
}

func TestPressIsEdgeTriggered(t *testing.T) {
	p := hallbutton.NewPanel(testBuilding(t))
	require.True(t, p.Press(2, hallbutton.Up))
	require.False(t, p.Press(2, hallbutton.Up)) // already lit
	require.True(t, p.Lit(2, hallbutton.Up))
}

func TestServeIsEdgeTriggered(t *testing.T) {
	p := hallbutton.NewPanel(testBuilding(t))
	require.False(t, p.Serve(2, hallbutton.Up)) // not lit yet
	p.Press(2, hallbutton.Up)
	require.True(t, p.Serve(2, hallbutton.Up))
	require.False(t, p.Lit(2, hallbutton.Up))
}

func TestPressRejectsDisallowedButton(t *testing.T) {
	p := hallbutton.NewPanel(testBuilding(t))
	require.False(t, p.Press(1, hallbutton.Down))
	require.False(t, p.Lit(1, hallbutton.Down))
}
