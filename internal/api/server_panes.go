package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdeck/internal/chart"
)

// paneID decodes a pane id passed with its slash escaped, as in w1%2Fprice.
func paneID(raw string) string {
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

// The inject endpoints stand in for user interaction on a pane and feed the
// same sync path as events from a rendered chart.
func registerPaneHandlers(api huma.API, svc Service) {
	type paneOutput struct {
		Body chart.PaneInfo
	}
	huma.Register(api, huma.Operation{OperationID: "get-pane", Method: http.MethodGet, Path: "/api/v1/panes/{pane_id}", Summary: "Get pane series, visible range and crosshair", Tags: []string{"Panes"}},
		func(ctx context.Context, input *paneIDInput) (*paneOutput, error) {
			info, err := svc.Pane(ctx, paneID(input.PaneID))
			if err != nil {
				return nil, mapErr(err)
			}
			return &paneOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "inject-range", Method: http.MethodPost, Path: "/api/v1/panes/{pane_id}/range", Summary: "Simulate a user scroll or zoom to a visible range", Tags: []string{"Panes"}},
		func(ctx context.Context, input *struct {
			PaneID string `path:"pane_id"`
			Body   struct {
				From int64 `json:"from" doc:"Epoch seconds"`
				To   int64 `json:"to" doc:"Epoch seconds"`
			}
		}) (*statusOutput, error) {
			r := chart.Range{From: chart.Time(input.Body.From), To: chart.Time(input.Body.To)}
			if err := svc.InjectRange(ctx, paneID(input.PaneID), &r); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "clear-range", Method: http.MethodDelete, Path: "/api/v1/panes/{pane_id}/range", Summary: "Simulate the chart reporting no valid range", Tags: []string{"Panes"}},
		func(ctx context.Context, input *paneIDInput) (*statusOutput, error) {
			if err := svc.InjectRange(ctx, paneID(input.PaneID), nil); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "inject-crosshair", Method: http.MethodPost, Path: "/api/v1/panes/{pane_id}/crosshair", Summary: "Simulate the cursor hovering a time", Tags: []string{"Panes"}},
		func(ctx context.Context, input *struct {
			PaneID string `path:"pane_id"`
			Body   struct {
				Time int64 `json:"time" doc:"Epoch seconds"`
			}
		}) (*statusOutput, error) {
			t := chart.Time(input.Body.Time)
			if err := svc.InjectCrosshair(ctx, paneID(input.PaneID), &t); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "clear-crosshair", Method: http.MethodDelete, Path: "/api/v1/panes/{pane_id}/crosshair", Summary: "Simulate the cursor leaving the pane", Tags: []string{"Panes"}},
		func(ctx context.Context, input *paneIDInput) (*statusOutput, error) {
			if err := svc.InjectCrosshair(ctx, paneID(input.PaneID), nil); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})
}
