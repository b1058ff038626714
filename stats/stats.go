// Package stats is the aggregate-statistics collaborator named in section
// 1: it consumes the same broadcast pipe the event logger does and
// produces per-passenger and per-car summary metrics, printed at the end
// of a run. Grounded directly in the teacher's sim/report.go
// (ReportSummary, WriteCSVReport, PrintConsoleReport), generalized from a
// bus fleet's distance/cost accounting to elevator wait/ride times and car
// utilization.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"elevatorsim/elevatorcar"
	"elevatorsim/msgbus"
	"elevatorsim/workflow"
)

// CarUtilization accumulates one car's observed onboard counts, sampled at
// every status publish, to approximate time-weighted average occupancy.
type CarUtilization struct {
	Car              int
	Capacity         int
	weightedOccupied float64
	lastTime         time.Duration
	lastOnboard      int
	haveLast         bool
}

// Collector drains the broadcast pipe and accumulates per-passenger wait
// and ride times plus per-car utilization, exactly like the teacher's
// Simulator accumulates BusDistance/Generated/Served incrementally as
// events arrive rather than via a post-hoc pass.
type Collector struct {
	waitTimes  []time.Duration
	rideTimes  []time.Duration
	served     int
	cars       map[int]*CarUtilization
	waitStart  map[int]time.Duration
	boardTime  map[int]time.Duration
}

// NewCollector constructs an empty collector.
func NewCollector() *Collector {
	return &Collector{
		cars:      make(map[int]*CarUtilization),
		waitStart: make(map[int]time.Duration),
		boardTime: make(map[int]time.Duration),
	}
}

// RegisterCar seeds a car's utilization row so a car with no onboard
// passengers for the entire run still appears in the summary.
func (c *Collector) RegisterCar(carID, capacity int) {
	c.cars[carID] = &CarUtilization{Car: carID, Capacity: capacity}
}

// Run drains pipe until it closes, updating running totals from the same
// envelope types eventlog.Writer demultiplexes.
func (c *Collector) Run(pipe <-chan msgbus.Envelope) {
	for env := range pipe {
		switch m := env.Msg.(type) {
		case workflow.PassengerWaiting:
			c.waitStart[m.PassengerID] = env.Time
		case workflow.PassengerBoarding:
			if start, ok := c.waitStart[m.PassengerID]; ok {
				c.waitTimes = append(c.waitTimes, env.Time-start)
			}
			c.boardTime[m.PassengerID] = env.Time
		case workflow.PassengerAlighting:
			if start, ok := c.boardTime[m.PassengerID]; ok {
				c.rideTimes = append(c.rideTimes, env.Time-start)
			}
			c.served++
		case elevatorcar.ElevatorStatus:
			c.observeStatus(m, env.Time)
		}
	}
}

func (c *Collector) observeStatus(m elevatorcar.ElevatorStatus, at time.Duration) {
	u, ok := c.cars[m.Car]
	if !ok {
		u = &CarUtilization{Car: m.Car}
		c.cars[m.Car] = u
	}
	if u.haveLast {
		elapsed := at - u.lastTime
		if elapsed > 0 {
			u.weightedOccupied += float64(u.lastOnboard) * elapsed.Seconds()
		}
	}
	u.lastTime = at
	u.lastOnboard = m.Onboard
	u.haveLast = true
}

// Summary is the end-of-run report.
type Summary struct {
	PassengersServed int
	MeanWait         time.Duration
	P90Wait          time.Duration
	MeanRide         time.Duration
	CarUtilization   map[int]float64 // mean onboard count over Summarize's totalDuration, per car
}

// Summarize finalizes the collector's running totals into a Summary.
// totalDuration is the run's simulated length, used to normalize car
// utilization.
func (c *Collector) Summarize(totalDuration time.Duration) Summary {
	util := make(map[int]float64, len(c.cars))
	for id, u := range c.cars {
		if totalDuration > 0 {
			util[id] = u.weightedOccupied / totalDuration.Seconds()
		}
	}
	return Summary{
		PassengersServed: c.served,
		MeanWait:         mean(c.waitTimes),
		P90Wait:          percentile(c.waitTimes, 0.90),
		MeanRide:         mean(c.rideTimes),
		CarUtilization:   util,
	}
}

func mean(xs []time.Duration) time.Duration {
	if len(xs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, x := range xs {
		sum += x
	}
	return sum / time.Duration(len(xs))
}

func percentile(xs []time.Duration, p float64) time.Duration {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), xs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// PrintConsoleReport prints a human-readable summary, in the teacher's
// PrintConsoleReport style.
func PrintConsoleReport(s Summary) {
	fmt.Println("=== Simulation Report ===")
	fmt.Printf("Passengers served: %d\n", s.PassengersServed)
	fmt.Printf("Mean wait: %s\n", s.MeanWait)
	fmt.Printf("P90 wait: %s\n", s.P90Wait)
	fmt.Printf("Mean ride: %s\n", s.MeanRide)
	ids := make([]int, 0, len(s.CarUtilization))
	for id := range s.CarUtilization {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Printf("Car %d utilization: %.2f avg onboard\n", id, s.CarUtilization[id])
	}
}
