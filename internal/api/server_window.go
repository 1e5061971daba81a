package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdeck/internal/workspace"
)

func registerWindowHandlers(api huma.API, svc Service) {
	type listWindowsOutput struct {
		Body struct {
			Windows []workspace.WindowInfo `json:"windows"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-windows", Method: http.MethodGet, Path: "/api/v1/windows", Summary: "List open chart windows in creation order", Tags: []string{"Windows"}},
		func(ctx context.Context, input *struct{}) (*listWindowsOutput, error) {
			windows, err := svc.Windows(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listWindowsOutput{}
			out.Body.Windows = windows
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "create-window", Method: http.MethodPost, Path: "/api/v1/windows", Summary: "Create a chart window", DefaultStatus: http.StatusCreated, Tags: []string{"Windows"}},
		func(ctx context.Context, input *struct {
			Body *struct {
				Timeframe string `json:"timeframe,omitempty" doc:"1m, 5m or 1d. Defaults to 1d."`
			}
		}) (*windowOutput, error) {
			var timeframe string
			if input.Body != nil {
				timeframe = input.Body.Timeframe
			}
			info, err := svc.CreateWindow(ctx, timeframe)
			if err != nil {
				return nil, mapErr(err)
			}
			return &windowOutput{Body: info}, nil
		})

	type reloadOutput struct {
		Body struct {
			Reloaded int `json:"reloaded"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "reload-windows", Method: http.MethodPost, Path: "/api/v1/windows/reload", Summary: "Reload every window with a symbol over a new date range", Tags: []string{"Windows"}},
		func(ctx context.Context, input *struct {
			Body struct {
				StartDate string `json:"start_date" doc:"YYYY-MM-DD"`
				EndDate   string `json:"end_date" doc:"YYYY-MM-DD"`
			}
		}) (*reloadOutput, error) {
			n, err := svc.ReloadAll(ctx, input.Body.StartDate, input.Body.EndDate)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &reloadOutput{}
			out.Body.Reloaded = n
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-window", Method: http.MethodGet, Path: "/api/v1/windows/{window_id}", Summary: "Get window state", Tags: []string{"Windows"}},
		func(ctx context.Context, input *windowIDInput) (*windowOutput, error) {
			info, err := svc.Window(ctx, input.WindowID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &windowOutput{Body: info}, nil
		})

	type destroyOutput struct {
		Body struct {
			ID        int  `json:"id"`
			Destroyed bool `json:"destroyed"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "destroy-window", Method: http.MethodDelete, Path: "/api/v1/windows/{window_id}", Summary: "Destroy a window and release its panes", Tags: []string{"Windows"}},
		func(ctx context.Context, input *windowIDInput) (*destroyOutput, error) {
			destroyed, err := svc.DestroyWindow(ctx, input.WindowID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &destroyOutput{}
			out.Body.ID = input.WindowID
			out.Body.Destroyed = destroyed
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "load-window-data", Method: http.MethodPost, Path: "/api/v1/windows/{window_id}/load", Summary: "Load bars for a symbol and date range", Tags: []string{"Windows"}},
		func(ctx context.Context, input *struct {
			WindowID int `path:"window_id"`
			Body     struct {
				Symbol    string `json:"symbol" required:"true"`
				StartDate string `json:"start_date" doc:"YYYY-MM-DD"`
				EndDate   string `json:"end_date" doc:"YYYY-MM-DD"`
			}
		}) (*windowOutput, error) {
			info, err := svc.LoadData(ctx, input.WindowID, input.Body.Symbol, input.Body.StartDate, input.Body.EndDate)
			if err != nil {
				return nil, mapErr(err)
			}
			return &windowOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-window-asset-type", Method: http.MethodPost, Path: "/api/v1/windows/{window_id}/asset-type", Summary: "Switch asset type and refresh the symbol list", Tags: []string{"Windows"}},
		func(ctx context.Context, input *struct {
			WindowID int `path:"window_id"`
			Body     struct {
				AssetType string `json:"asset_type" required:"true"`
			}
		}) (*windowOutput, error) {
			info, err := svc.ChangeAssetType(ctx, input.WindowID, input.Body.AssetType)
			if err != nil {
				return nil, mapErr(err)
			}
			return &windowOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-window-timeframe", Method: http.MethodPost, Path: "/api/v1/windows/{window_id}/timeframe", Summary: "Change the bar timeframe used by the next load", Tags: []string{"Windows"}},
		func(ctx context.Context, input *struct {
			WindowID int `path:"window_id"`
			Body     struct {
				Timeframe string `json:"timeframe" required:"true"`
			}
		}) (*windowOutput, error) {
			info, err := svc.ChangeTimeframe(ctx, input.WindowID, input.Body.Timeframe)
			if err != nil {
				return nil, mapErr(err)
			}
			return &windowOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-window-indicator", Method: http.MethodPost, Path: "/api/v1/windows/{window_id}/indicator", Summary: "Replace the indicator pane content", Tags: []string{"Windows"}},
		func(ctx context.Context, input *struct {
			WindowID int `path:"window_id"`
			Body     struct {
				Indicator string `json:"indicator" required:"true" doc:"all_ma (moving averages), rsi or macd."`
			}
		}) (*windowOutput, error) {
			info, err := svc.SetIndicator(ctx, input.WindowID, input.Body.Indicator)
			if err != nil {
				return nil, mapErr(err)
			}
			return &windowOutput{Body: info}, nil
		})
}
