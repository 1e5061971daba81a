// Package journal records the relay event stream (pane mutations and
// notifications) to date-organized JSON-lines files.
package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dgnsrekt/chartdeck/internal/relay"
)

// DefaultMaxPayload bounds the payload bytes kept per record. Series payloads
// for long date ranges can be large.
const DefaultMaxPayload = 64 << 10

// Record is one journal line. Payloads over the limit are kept as a string
// prefix together with the full size and digest.
type Record struct {
	Time      time.Time       `json:"time"`
	Feed      string          `json:"feed"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Prefix    string          `json:"prefix,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
	Size      int             `json:"size"`
	SHA256    string          `json:"sha256,omitempty"`
}

func truncateBytes(in []byte, maxBytes int) ([]byte, bool, string) {
	if maxBytes <= 0 || len(in) <= maxBytes {
		return in, false, ""
	}
	sum := sha256.Sum256(in)
	return in[:maxBytes], true, hex.EncodeToString(sum[:])
}

func newRecord(evt relay.Event, at time.Time, maxPayload int) Record {
	raw := []byte(evt.Payload)
	rec := Record{Time: at.UTC(), Feed: evt.Feed, Size: len(raw)}
	kept, truncated, digest := truncateBytes(raw, maxPayload)
	switch {
	case truncated:
		rec.Prefix = string(kept)
		rec.Truncated = true
		rec.SHA256 = digest
	case json.Valid(raw):
		rec.Payload = json.RawMessage(raw)
	default:
		rec.Prefix = string(raw)
	}
	return rec
}

// Recorder copies broker events into a Registry.
type Recorder struct {
	broker     *relay.Broker
	registry   *Registry
	maxPayload int
	now        func() time.Time
}

func NewRecorder(broker *relay.Broker, registry *Registry, maxPayload int) *Recorder {
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Recorder{broker: broker, registry: registry, maxPayload: maxPayload, now: time.Now}
}

// Run records until ctx is done. Events the broker drops for a slow
// subscriber are missing from the journal.
func (r *Recorder) Run(ctx context.Context) {
	id, ch := r.broker.Subscribe()
	defer r.broker.Unsubscribe(id)
	slog.Info("journal recording", "subscriber", id)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			r.record(evt)
		}
	}
}

func (r *Recorder) record(evt relay.Event) {
	if err := r.registry.Writer(evt.Feed).Write(newRecord(evt, r.now(), r.maxPayload)); err != nil {
		slog.Debug("journal record skipped", "feed", evt.Feed, "error", err)
	}
}
