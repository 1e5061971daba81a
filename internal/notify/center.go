// Package notify manages the transient messages shown to dashboard users and
// optionally forwards errors to an ntfy topic.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/relay"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 3 * time.Second

// FeedNotifications is the relay feed carrying show/dismiss events.
const FeedNotifications = "notifications"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Publisher interface {
	Publish(evt relay.Event)
}

type Options struct {
	TTL       time.Duration
	Publisher Publisher
	// NtfyEndpoint, when set, receives every error-level message.
	NtfyEndpoint string
	HTTPClient   *http.Client
	Now          func() time.Time
}

// Center holds the currently visible notifications. Each one is dismissed
// automatically after the TTL.
type Center struct {
	sched frame.Scheduler
	opts  Options

	mu     sync.Mutex
	active []Notification
}

func NewCenter(sched frame.Scheduler, opts Options) *Center {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Center{sched: sched, opts: opts}
}

func (c *Center) Info(msg string)    { c.Notify(LevelInfo, msg) }
func (c *Center) Success(msg string) { c.Notify(LevelSuccess, msg) }
func (c *Center) Error(msg string)   { c.Notify(LevelError, msg) }

// Notify shows msg and schedules its dismissal.
func (c *Center) Notify(level Level, msg string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   msg,
		CreatedAt: c.opts.Now(),
	}
	c.mu.Lock()
	c.active = append(c.active, n)
	c.mu.Unlock()

	c.publish("show", n)
	c.sched.AfterFunc(c.opts.TTL, func() { c.Dismiss(n.ID) })

	if level == LevelError && c.opts.NtfyEndpoint != "" {
		c.forward(msg)
	}
	slog.Debug("notification shown", "id", n.ID, "level", level, "message", msg)
	return n
}

// Dismiss removes a notification. It reports whether it was still visible.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	var removed *Notification
	for i, n := range c.active {
		if n.ID == id {
			removed = &n
			c.active = append(c.active[:i:i], c.active[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	if removed == nil {
		return false
	}
	c.publish("dismiss", *removed)
	return true
}

// Active returns visible notifications, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.active...)
}

func (c *Center) publish(op string, n Notification) {
	if c.opts.Publisher == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Op string `json:"op"`
		Notification
	}{Op: op, Notification: n})
	if err != nil {
		return
	}
	c.opts.Publisher.Publish(relay.Event{Feed: FeedNotifications, Payload: string(payload)})
}

func (c *Center) forward(msg string) {
	var err error
	c.sched.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = Send(ctx, c.opts.HTTPClient, c.opts.NtfyEndpoint, msg)
	}, func() {
		if err != nil {
			slog.Warn("ntfy forward failed", "error", err)
		}
	})
}
