// Package eventlog drains the message bus's broadcast mirror and renders it
// as the newline-delimited JSON record stream required by section 6,
// tagging every run with a stable correlation id so multiple runs' logs
// can be told apart downstream. Grounded in the teacher's CSV/console
// reporting (sim/report.go) generalized from an end-of-run summary to a
// streaming per-event writer, and in its log.Printf prefixing convention.
package eventlog

import (
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"elevatorsim/dispatcher"
	"elevatorsim/door"
	"elevatorsim/elevatorcar"
	"elevatorsim/msgbus"
	"elevatorsim/workflow"
)

// Record is one line of the NDJSON stream.
type Record struct {
	Type  string        `json:"type"`
	Time  time.Duration `json:"time"`
	RunID string        `json:"run_id"`
	Data  interface{}   `json:"data"`
}

// Metadata is the required first line of every log.
type Metadata struct {
	RunID      string `json:"run_id"`
	RandomSeed int64  `json:"random_seed"`
	StartedAt  string `json:"started_at"`
}

// Writer drains bus's broadcast pipe and writes one JSON record per line
// to w. Construct it, write the metadata record, then call Run (typically
// in its own goroutine): the mirror channel crosses from simulated actors'
// goroutines to this independent consumer, exactly the role
// msgbus.BroadcastPipe documents for the logger.
type Writer struct {
	enc    *json.Encoder
	runID  string
	logger *log.Logger
	lastTS time.Duration

	// Tee, if set, also receives every record this writer emits — used to
	// feed the optional live-stream transport (wsserver.Server.Feed)
	// without a second broadcast-pipe subscriber. Sends are dropped if
	// the channel is full rather than stalling the log writer.
	Tee chan<- Record
}

// New constructs a log writer, minting a fresh run id so concurrent or
// successive runs' streams can be told apart downstream.
func New(w io.Writer, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{enc: json.NewEncoder(w), runID: uuid.NewString(), logger: logger}
}

// RunID returns the correlation id minted for this writer's run.
func (wr *Writer) RunID() string { return wr.runID }

// WriteMetadata emits the required first metadata line.
func (wr *Writer) WriteMetadata(seed int64) error {
	return wr.enc.Encode(Record{
		Type:  "metadata",
		RunID: wr.runID,
		Data:  Metadata{RunID: wr.runID, RandomSeed: seed, StartedAt: time.Now().UTC().Format(time.RFC3339)},
	})
}

// Run drains pipe until it closes (the bus closes it once the kernel
// quiesces), writing one envelope at a time via WriteEnvelope. Use this
// when eventlog is the only broadcast-pipe consumer; when other consumers
// (stats, diagnostics) also need every envelope, drain the pipe once at
// the call site and call WriteEnvelope directly instead, since a Go
// channel splits its deliveries across readers rather than fanning out.
func (wr *Writer) Run(pipe <-chan msgbus.Envelope) {
	for env := range pipe {
		wr.WriteEnvelope(env)
	}
}

// WriteEnvelope translates and writes a single envelope, if it maps onto
// one of section 6's record types. Unrecognized payloads are skipped;
// they are internal bookkeeping messages (e.g. door permissions, car-call
// registration requests addressed to a single car) the log does not need
// to surface.
func (wr *Writer) WriteEnvelope(env msgbus.Envelope) {
	rec, ok := wr.translate(env)
	if !ok {
		return
	}
	if rec.Time < wr.lastTS {
		wr.logger.Printf("eventlog: out-of-order timestamp on %s (%s < %s), clamping", rec.Type, rec.Time, wr.lastTS)
		rec.Time = wr.lastTS
	}
	wr.lastTS = rec.Time
	rec.RunID = wr.runID
	if err := wr.enc.Encode(rec); err != nil {
		wr.logger.Printf("eventlog: write failed: %v", err)
	}
	if wr.Tee != nil {
		select {
		case wr.Tee <- rec:
		default:
		}
	}
}

func (wr *Writer) translate(env msgbus.Envelope) (Record, bool) {
	switch m := env.Msg.(type) {
	case elevatorcar.ElevatorStatus:
		return Record{Type: "elevator_status", Time: env.Time, Data: m}, true
	case elevatorcar.CarCallRegistered:
		return Record{Type: "car_call_registered", Time: env.Time, Data: m}, true
	case elevatorcar.CarCallOff:
		return Record{Type: "car_call_off", Time: env.Time, Data: m}, true
	case elevatorcar.HallCallOff:
		return Record{Type: "hall_call_off", Time: env.Time, Data: m}, true
	case dispatcher.HallCallRegistered:
		return Record{Type: "hall_call_registered", Time: env.Time, Data: m}, true
	case dispatcher.HallCallAssignment:
		return Record{Type: "hall_call_assignment", Time: env.Time, Data: m}, true
	case door.OpeningStart:
		return Record{Type: "door_event", Time: env.Time, Data: doorEventData("OPENING_START", m.DoorID, m.Floor)}, true
	case door.OpeningComplete:
		return Record{Type: "door_event", Time: env.Time, Data: doorEventData("OPENING_COMPLETE", m.DoorID, m.Floor)}, true
	case door.ClosingStart:
		return Record{Type: "door_event", Time: env.Time, Data: doorEventData("CLOSING_START", m.DoorID, m.Floor)}, true
	case door.ClosingComplete:
		return Record{Type: "door_event", Time: env.Time, Data: doorEventData("CLOSING_COMPLETE", m.DoorID, m.Floor)}, true
	case door.Reopening:
		return Record{Type: "door_event", Time: env.Time, Data: doorEventData("REOPENING", m.DoorID, m.Floor)}, true
	case door.ReopenComplete:
		return Record{Type: "door_event", Time: env.Time, Data: doorEventData("REOPEN_COMPLETE", m.DoorID, m.Floor)}, true
	case workflow.PassengerWaiting:
		return Record{Type: "passenger_waiting", Time: env.Time, Data: m}, true
	case workflow.PassengerBoarding:
		return Record{Type: "passenger_boarding", Time: env.Time, Data: m}, true
	case workflow.PassengerAlighting:
		return Record{Type: "passenger_alighting", Time: env.Time, Data: m}, true
	default:
		return Record{}, false
	}
}

// doorEventData wraps a door state transition into the door_event record's
// data payload, shared by every door_event kind.
func doorEventData(kind string, doorID, floor int) map[string]interface{} {
	return map[string]interface{}{
		"event": kind,
		"door":  doorID,
		"floor": floor,
	}
}
