// Package allocation implements the reference "nearest car" allocation
// strategy per section 4.7's circular-distance scoring rule.
package allocation

import (
	"elevatorsim/dispatcher"
	"elevatorsim/elevatorcar"
	"elevatorsim/hallbutton"
)

// NearestCar scores every car by a circular-distance heuristic and picks
// the lowest score, breaking ties by iteration (registry) order.
type NearestCar struct {
	NumFloors      int
	CapacityPenalty float64
}

// New constructs a NearestCar strategy for a building with numFloors
// floors.
func New(numFloors int) *NearestCar {
	return &NearestCar{NumFloors: numFloors, CapacityPenalty: 1000}
}

// Allocate implements dispatcher.AllocationStrategy.
func (n *NearestCar) Allocate(call dispatcher.CallData, statuses []dispatcher.CarStatus) (int, bool) {
	if len(statuses) == 0 {
		return 0, false
	}
	best := -1
	bestScore := 0.0
	for _, s := range statuses {
		score := n.score(call, s)
		if best == -1 || score < bestScore {
			best = s.Car
			bestScore = score
		}
	}
	return best, best != -1
}

func (n *NearestCar) score(call dispatcher.CallData, s dispatcher.CarStatus) float64 {
	var score float64
	switch s.Direction {
	case elevatorcar.Up:
		if call.Type == dispatcher.Directional && call.Direction == hallbutton.Up && call.Floor >= s.CurrentFloor {
			score = float64(call.Floor - s.CurrentFloor)
		} else {
			score = float64((n.NumFloors - s.CurrentFloor) + (n.NumFloors - call.Floor))
		}
	case elevatorcar.Down:
		if call.Type == dispatcher.Directional && call.Direction == hallbutton.Down && call.Floor <= s.CurrentFloor {
			score = float64(s.CurrentFloor - call.Floor)
		} else {
			score = float64(s.CurrentFloor + call.Floor)
		}
	default: // NoDirection / idle
		diff := call.Floor - s.CurrentFloor
		if diff < 0 {
			diff = -diff
		}
		score = float64(diff)
	}
	if s.Onboard >= s.Capacity {
		score += n.CapacityPenalty
	}
	return score
}
