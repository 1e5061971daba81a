package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

// InboundFunc handles one text message received from a browser client.
type InboundFunc func(ctx context.Context, data []byte) error

type outbound struct {
	Feed    string          `json:"feed"`
	Payload json.RawMessage `json:"payload"`
}

type errorReply struct {
	Feed    string `json:"feed"`
	Message string `json:"message"`
}

// WSHandler upgrades to a WebSocket that streams broker events to the client
// and passes client messages to inbound. Clients may filter feeds with
// ?feeds=name1,name2 as with SSE.
func WSHandler(broker *Broker, inbound InboundFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feedFilter := parseFeedFilter(r.URL.Query().Get("feeds"))

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("relay: ws upgrade failed", "error", err)
			return
		}
		clientID := uuid.NewString()
		slog.Info("relay: ws client connected", "client_id", clientID, "remote", r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var writeMu sync.Mutex
		write := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			return wsutil.WriteServerText(conn, data)
		}

		id, ch := broker.Subscribe()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case evt, ok := <-ch:
					if !ok {
						return
					}
					if feedFilter != nil && !feedFilter[evt.Feed] {
						continue
					}
					if err := write(outbound{Feed: evt.Feed, Payload: json.RawMessage(evt.Payload)}); err != nil {
						slog.Debug("relay: ws write failed", "client_id", clientID, "error", err)
						cancel()
						return
					}
				}
			}
		}()

		for {
			data, err := wsutil.ReadClientText(conn)
			if err != nil {
				slog.Debug("relay: ws read loop exit", "client_id", clientID, "error", err)
				break
			}
			if inbound == nil {
				continue
			}
			if err := inbound(ctx, data); err != nil {
				if werr := write(errorReply{Feed: "error", Message: err.Error()}); werr != nil {
					break
				}
			}
		}

		cancel()
		broker.Unsubscribe(id)
		wg.Wait()
		_ = conn.Close()
		slog.Info("relay: ws client disconnected", "client_id", clientID)
	}
}

func parseFeedFilter(q string) map[string]bool {
	if q == "" {
		return nil
	}
	filter := make(map[string]bool)
	for _, f := range strings.Split(q, ",") {
		if f = strings.TrimSpace(f); f != "" {
			filter[f] = true
		}
	}
	return filter
}
