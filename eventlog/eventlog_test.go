package eventlog_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"elevatorsim/door"
	"elevatorsim/eventlog"
	"elevatorsim/msgbus"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestWriteMetadataIsFirstRecord(t *testing.T) {
	var buf bytes.Buffer
	w := eventlog.New(&buf, nil)
	require.NoError(t, w.WriteMetadata(42))

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	require.Equal(t, "metadata", recs[0]["type"])
	require.Equal(t, w.RunID(), recs[0]["run_id"])
}

func TestTranslatesDoorReopenEventsDistinctly(t *testing.T) {
	var buf bytes.Buffer
	w := eventlog.New(&buf, nil)

	w.WriteEnvelope(msgbus.Envelope{Topic: "door/1/events", Time: time.Second, Msg: door.Reopening{DoorID: 1, Floor: 3}})
	w.WriteEnvelope(msgbus.Envelope{Topic: "door/1/events", Time: 2 * time.Second, Msg: door.ReopenComplete{DoorID: 1, Floor: 3}})

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	data0 := recs[0]["data"].(map[string]interface{})
	require.Equal(t, "REOPENING", data0["event"])
	data1 := recs[1]["data"].(map[string]interface{})
	require.Equal(t, "REOPEN_COMPLETE", data1["event"])
}

func TestUnrecognizedPayloadIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	w := eventlog.New(&buf, nil)
	w.WriteEnvelope(msgbus.Envelope{Topic: "internal", Time: time.Second, Msg: "opaque internal message"})
	require.Equal(t, 0, buf.Len())
}

func TestOutOfOrderTimestampIsClamped(t *testing.T) {
	var buf bytes.Buffer
	w := eventlog.New(&buf, nil)
	w.WriteEnvelope(msgbus.Envelope{Topic: "door/1/events", Time: 5 * time.Second, Msg: door.OpeningStart{DoorID: 1, Floor: 1}})
	w.WriteEnvelope(msgbus.Envelope{Topic: "door/1/events", Time: 2 * time.Second, Msg: door.OpeningComplete{DoorID: 1, Floor: 1}})

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	require.Equal(t, float64(5*time.Second), recs[1]["time"])
}

func TestTeeReceivesEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	w := eventlog.New(&buf, nil)
	tee := make(chan eventlog.Record, 4)
	w.Tee = tee

	w.WriteEnvelope(msgbus.Envelope{Topic: "door/1/events", Time: time.Second, Msg: door.OpeningStart{DoorID: 1, Floor: 1}})

	select {
	case rec := <-tee:
		require.Equal(t, "door_event", rec.Type)
	default:
		t.Fatal("expected a record on the tee channel")
	}
}
