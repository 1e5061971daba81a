package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/chart"
)

// Inbound message types accepted over the WebSocket.
const (
	MsgRange     = "range"
	MsgCrosshair = "crosshair"
	MsgLayout    = "layout"
	MsgViewport  = "viewport"
)

// InboundMessage is a client-to-engine WebSocket message. Range and Time are
// nullable: null means "no valid range" and "cursor left" respectively.
type InboundMessage struct {
	Type   string       `json:"type"`
	Pane   string       `json:"pane,omitempty"`
	Range  *chart.Range `json:"range,omitempty"`
	Time   *chart.Time  `json:"time,omitempty"`
	Layout string       `json:"layout,omitempty"`
	Width  int          `json:"width,omitempty"`
	Height int          `json:"height,omitempty"`
}

// HandleInbound applies one WebSocket message. It matches relay.InboundFunc.
func (s *Session) HandleInbound(ctx context.Context, data []byte) error {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return apperr.New(apperr.CodeValidation, "malformed message", err)
	}
	switch msg.Type {
	case MsgRange:
		return s.InjectRange(ctx, msg.Pane, msg.Range)
	case MsgCrosshair:
		return s.InjectCrosshair(ctx, msg.Pane, msg.Time)
	case MsgLayout:
		if err := s.requireNonEmpty(msg.Layout, "layout"); err != nil {
			return err
		}
		_, err := s.ApplyLayout(ctx, msg.Layout)
		return err
	case MsgViewport:
		_, err := s.SetViewport(ctx, msg.Width, msg.Height)
		return err
	default:
		return apperr.Validation(fmt.Sprintf("unknown message type %q", msg.Type))
	}
}
