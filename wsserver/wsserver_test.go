package wsserver_test

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"elevatorsim/eventlog"
	"elevatorsim/wsserver"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandlerBroadcastsRecordToConnectedClient(t *testing.T) {
	s := wsserver.New(testLogger())
	srv := httptest.NewServer(http.HandlerFunc(s.Handler))
	defer srv.Close()

	conn := dial(t, srv)

	rec := eventlog.Record{Type: "car.status", Time: 42 * time.Millisecond, RunID: "run-1"}

	// Broadcast races the client's registration in Handler; retry until the
	// write loop has a chance to pick the connection up.
	require.Eventually(t, func() bool {
		s.Broadcast(rec)
		conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		var got eventlog.Record
		return conn.ReadJSON(&got) == nil && got.Type == "car.status"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFeedDrainsChannelUntilClosed(t *testing.T) {
	s := wsserver.New(testLogger())
	srv := httptest.NewServer(http.HandlerFunc(s.Handler))
	defer srv.Close()

	conn := dial(t, srv)

	ch := make(chan eventlog.Record, 1)
	done := make(chan struct{})
	go func() {
		s.Feed(ch)
		close(done)
	}()

	// Give the server a moment to register the client before publishing.
	require.Eventually(t, func() bool {
		ch <- eventlog.Record{Type: "sim.tick", RunID: "run-2"}
		conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		var got eventlog.Record
		return conn.ReadJSON(&got) == nil && got.Type == "sim.tick"
	}, 2*time.Second, 10*time.Millisecond)

	close(ch)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Feed did not return after channel close")
	}
}

func TestMultipleClientsEachReceiveBroadcast(t *testing.T) {
	s := wsserver.New(testLogger())
	srv := httptest.NewServer(http.HandlerFunc(s.Handler))
	defer srv.Close()

	connA := dial(t, srv)
	connB := dial(t, srv)

	rec := eventlog.Record{Type: "car.arrived", RunID: "run-3"}

	readOne := func(conn *websocket.Conn) bool {
		conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		var got eventlog.Record
		return conn.ReadJSON(&got) == nil && got.Type == "car.arrived"
	}

	require.Eventually(t, func() bool {
		s.Broadcast(rec)
		return readOne(connA) && readOne(connB)
	}, 2*time.Second, 10*time.Millisecond)
}
