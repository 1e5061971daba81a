package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdeck/internal/controller"
	"github.com/dgnsrekt/chartdeck/internal/layout"
)

func registerLayoutHandlers(api huma.API, svc Service) {
	type layoutOutput struct {
		Body controller.LayoutInfo
	}
	huma.Register(api, huma.Operation{OperationID: "get-layout", Method: http.MethodGet, Path: "/api/v1/layout", Summary: "Get the current grid layout and window geometry", Tags: []string{"Layout"}},
		func(ctx context.Context, input *struct{}) (*layoutOutput, error) {
			info, err := svc.Layout(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &layoutOutput{Body: info}, nil
		})

	type applyLayoutOutput struct {
		Body layout.Result
	}
	huma.Register(api, huma.Operation{OperationID: "apply-layout", Method: http.MethodPut, Path: "/api/v1/layout", Summary: "Apply a grid layout, creating or destroying windows to fit", Tags: []string{"Layout"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Layout string `json:"layout" required:"true" doc:"single, double, quad or six-pane (grid aliases 1x1, 1x2, 2x2 and 2x3 are accepted). Unknown names fall back to single."`
			}
		}) (*applyLayoutOutput, error) {
			result, err := svc.ApplyLayout(ctx, input.Body.Layout)
			if err != nil {
				return nil, mapErr(err)
			}
			return &applyLayoutOutput{Body: result}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-viewport", Method: http.MethodPut, Path: "/api/v1/viewport", Summary: "Report the browser viewport size and relayout", Tags: []string{"Layout"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Width  int `json:"width" minimum:"1"`
				Height int `json:"height" minimum:"1"`
			}
		}) (*layoutOutput, error) {
			info, err := svc.SetViewport(ctx, input.Body.Width, input.Body.Height)
			if err != nil {
				return nil, mapErr(err)
			}
			return &layoutOutput{Body: info}, nil
		})
}
