// Package reposition implements a reference repositioning strategy: send
// any car that has gone idle away from its configured home floor back to
// it, deduplicating so the same forced move is never issued twice in a
// row for the same car. Grounded in the teacher's idle/layover handling
// style (sim/runner.go's LayoverEvent bookkeeping), adapted from a bus
// layover to an elevator home-floor return.
package reposition

import (
	"elevatorsim/dispatcher"
	"elevatorsim/elevatorcar"
)

// HomeFloorReturn sends an idle car back to its home floor, once, until
// the car becomes idle again somewhere else.
type HomeFloorReturn struct {
	HomeFloor map[int]int // car id -> home floor
	sent      map[int]int // car id -> floor last commanded, to dedupe
}

// New constructs a HomeFloorReturn strategy.
func New(homeFloor map[int]int) *HomeFloorReturn {
	return &HomeFloorReturn{HomeFloor: homeFloor, sent: make(map[int]int)}
}

// OnStatusUpdate implements dispatcher.RepositioningStrategy.
func (h *HomeFloorReturn) OnStatusUpdate(status dispatcher.CarStatus, _ []dispatcher.CarStatus) []dispatcher.RepositionCommand {
	home, ok := h.HomeFloor[status.Car]
	if !ok {
		return nil
	}
	if status.State != elevatorcar.Idle || status.CurrentFloor == home {
		delete(h.sent, status.Car)
		return nil
	}
	if h.sent[status.Car] == home {
		return nil
	}
	h.sent[status.Car] = home
	return []dispatcher.RepositionCommand{{Car: status.Car, Floor: home, Forced: true, Dir: elevatorcar.NoDirection}}
}
