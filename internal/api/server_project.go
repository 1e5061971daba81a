package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdeck/internal/notify"
)

func registerHealthHandlers(api huma.API) {
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			return okStatus(), nil
		})
}

func registerProjectHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "get-project-panel", Method: http.MethodGet, Path: "/api/v1/project", Summary: "Get the project performance panel", Tags: []string{"Projects"}},
		func(ctx context.Context, input *struct{}) (*panelOutput, error) {
			info, err := svc.Panel(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &panelOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "open-project", Method: http.MethodPut, Path: "/api/v1/project", Summary: "Open a project and load its strategy curves", Tags: []string{"Projects"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Name string `json:"name" required:"true"`
			}
		}) (*panelOutput, error) {
			info, err := svc.OpenProject(ctx, input.Body.Name)
			if err != nil {
				return nil, mapErr(err)
			}
			return &panelOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "select-traded-symbol", Method: http.MethodPost, Path: "/api/v1/project/symbol", Summary: "Show bars and trade markers for a traded symbol", Tags: []string{"Projects"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Symbol string `json:"symbol" required:"true"`
			}
		}) (*panelOutput, error) {
			info, err := svc.SelectTradedSymbol(ctx, input.Body.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			return &panelOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-project-panel-visible", Method: http.MethodPut, Path: "/api/v1/project/visible", Summary: "Show or hide the project panel", Tags: []string{"Projects"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Visible bool `json:"visible"`
			}
		}) (*panelOutput, error) {
			info, err := svc.SetPanelVisible(ctx, input.Body.Visible)
			if err != nil {
				return nil, mapErr(err)
			}
			return &panelOutput{Body: info}, nil
		})

	type listProjectsOutput struct {
		Body struct {
			Projects []string `json:"projects"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-projects", Method: http.MethodGet, Path: "/api/v1/projects", Summary: "List backtest projects", Tags: []string{"Projects"}},
		func(ctx context.Context, input *struct{}) (*listProjectsOutput, error) {
			projects, err := svc.ListProjects(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listProjectsOutput{}
			out.Body.Projects = projects
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "run-project", Method: http.MethodPost, Path: "/api/v1/projects/run", Summary: "Run a project backtest over a date range", Tags: []string{"Projects"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Name      string `json:"name" required:"true"`
				StartDate string `json:"start_date" doc:"YYYY-MM-DD"`
				EndDate   string `json:"end_date" doc:"YYYY-MM-DD"`
			}
		}) (*statusOutput, error) {
			if err := svc.RunProject(ctx, input.Body.Name, input.Body.StartDate, input.Body.EndDate); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "reload-projects", Method: http.MethodPost, Path: "/api/v1/projects/reload", Summary: "Ask the backend to rescan project definitions", Tags: []string{"Projects"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.ReloadProjects(ctx); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})
}

func registerNotificationHandlers(api huma.API, svc Service) {
	type listNotificationsOutput struct {
		Body struct {
			Notifications []notify.Notification `json:"notifications"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-notifications", Method: http.MethodGet, Path: "/api/v1/notifications", Summary: "List notifications still on screen", Tags: []string{"Notifications"}},
		func(ctx context.Context, input *struct{}) (*listNotificationsOutput, error) {
			notes, err := svc.Notifications(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listNotificationsOutput{}
			out.Body.Notifications = notes
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "dismiss-notification", Method: http.MethodDelete, Path: "/api/v1/notifications/{notification_id}", Summary: "Dismiss a notification", Tags: []string{"Notifications"}},
		func(ctx context.Context, input *struct {
			NotificationID string `path:"notification_id"`
		}) (*statusOutput, error) {
			found, err := svc.DismissNotification(ctx, input.NotificationID)
			if err != nil {
				return nil, mapErr(err)
			}
			if !found {
				return nil, huma.Error404NotFound("notification " + input.NotificationID + " not found")
			}
			return okStatus(), nil
		})
}
