package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker()
	id, _ := b.Subscribe()
	defer b.Unsubscribe(id)

	for i := 0; i < subscriberBufSize+5; i++ {
		b.Publish(Event{Feed: "pane", Payload: "{}"})
	}
	published, dropped := b.Stats()
	if published != int64(subscriberBufSize+5) {
		t.Fatalf("published = %d", published)
	}
	if dropped != 5 {
		t.Fatalf("dropped = %d, want 5", dropped)
	}
}

func TestSSEHandlerFiltersFeeds(t *testing.T) {
	b := NewBroker()
	srv := httptest.NewServer(SSEHandler(b))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?feeds=notifications")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	b.Publish(Event{Feed: "pane", Payload: `{"op":"resize"}`})
	b.Publish(Event{Feed: "notifications", Payload: `{"op":"show"}`})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if got, want := strings.TrimSpace(line), "event: notifications"; got != want {
		t.Fatalf("first line = %q, want %q", got, want)
	}
}

func TestWSHandlerStreamsEventsAndAcceptsMessages(t *testing.T) {
	b := NewBroker()
	received := make(chan string, 1)
	inbound := func(_ context.Context, data []byte) error {
		received <- string(data)
		if strings.Contains(string(data), "bad") {
			return errors.New("unknown pane")
		}
		return nil
	}
	srv := httptest.NewServer(WSHandler(b, inbound))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	b.Publish(Event{Feed: "pane", Payload: `{"pane_id":"w1/price"}`})

	data, err := wsutil.ReadServerText(conn)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	var msg struct {
		Feed    string          `json:"feed"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if msg.Feed != "pane" || !strings.Contains(string(msg.Payload), "w1/price") {
		t.Fatalf("message = %s", data)
	}

	if err := wsutil.WriteClientText(conn, []byte(`{"type":"bad"}`)); err != nil {
		t.Fatalf("write error = %v", err)
	}
	select {
	case got := <-received:
		if got != `{"type":"bad"}` {
			t.Fatalf("inbound = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inbound handler not called")
	}
	reply, err := wsutil.ReadServerText(conn)
	if err != nil {
		t.Fatalf("read reply error = %v", err)
	}
	if !strings.Contains(string(reply), "unknown pane") {
		t.Fatalf("reply = %s", reply)
	}
}
