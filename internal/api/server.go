package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/cdpsurface"
	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/controller"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/layout"
	"github.com/dgnsrekt/chartdeck/internal/notify"
	"github.com/dgnsrekt/chartdeck/internal/performance"
	"github.com/dgnsrekt/chartdeck/internal/relay"
	"github.com/dgnsrekt/chartdeck/internal/workspace"
)

type Service interface {
	Windows(ctx context.Context) ([]workspace.WindowInfo, error)
	Window(ctx context.Context, id int) (workspace.WindowInfo, error)
	CreateWindow(ctx context.Context, timeframe string) (workspace.WindowInfo, error)
	DestroyWindow(ctx context.Context, id int) (bool, error)
	LoadData(ctx context.Context, id int, symbol, start, end string) (workspace.WindowInfo, error)
	ChangeAssetType(ctx context.Context, id int, assetType string) (workspace.WindowInfo, error)
	ChangeTimeframe(ctx context.Context, id int, timeframe string) (workspace.WindowInfo, error)
	SetIndicator(ctx context.Context, id int, kind string) (workspace.WindowInfo, error)
	ReloadAll(ctx context.Context, start, end string) (int, error)
	Layout(ctx context.Context) (controller.LayoutInfo, error)
	ApplyLayout(ctx context.Context, name string) (layout.Result, error)
	SetViewport(ctx context.Context, width, height int) (controller.LayoutInfo, error)
	Pane(ctx context.Context, id string) (chart.PaneInfo, error)
	InjectRange(ctx context.Context, paneID string, r *chart.Range) error
	InjectCrosshair(ctx context.Context, paneID string, t *chart.Time) error
	Panel(ctx context.Context) (performance.Info, error)
	OpenProject(ctx context.Context, name string) (performance.Info, error)
	SelectTradedSymbol(ctx context.Context, symbol string) (performance.Info, error)
	SetPanelVisible(ctx context.Context, visible bool) (performance.Info, error)
	ListProjects(ctx context.Context) ([]string, error)
	RunProject(ctx context.Context, name, start, end string) error
	ReloadProjects(ctx context.Context) error
	Notifications(ctx context.Context) ([]notify.Notification, error)
	DismissNotification(ctx context.Context, id string) (bool, error)
	HandleInbound(ctx context.Context, data []byte) error
}

type windowIDInput struct {
	WindowID int `path:"window_id" doc:"Window id as returned by create-window."`
}

type paneIDInput struct {
	PaneID string `path:"pane_id" doc:"Pane id such as w1/price or perf/balance."`
}

type windowOutput struct {
	Body workspace.WindowInfo
}

type panelOutput struct {
	Body performance.Info
}

type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func okStatus() *statusOutput {
	out := &statusOutput{}
	out.Body.Status = "ok"
	return out
}

// NewServer builds the HTTP API. The event stream routes are mounted only when
// broker is non-nil.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("chartdeck API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/docs/relay", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(relayDocsHTML)); err != nil {
			slog.Debug("relay docs response write failed", "error", err)
		}
	})
	router.Handle(cdpsurface.PagePath, cdpsurface.PageHandler())
	if broker != nil {
		router.Get("/events", relay.SSEHandler(broker))
		router.Get("/ws", relay.WSHandler(broker, svc.HandleInbound))
	}

	registerHealthHandlers(api)
	registerWindowHandlers(api, svc)
	registerLayoutHandlers(api, svc)
	registerPaneHandlers(api, svc)
	registerProjectHandlers(api, svc)
	registerNotificationHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, frame.ErrStopped) {
		return huma.Error503ServiceUnavailable("engine stopped")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout(err.Error())
	}
	var coded *apperr.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case apperr.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case apperr.CodeWindowNotFound, apperr.CodePaneNotFound:
			return huma.Error404NotFound(coded.Message)
		case apperr.CodeNetwork, apperr.CodeBackend, apperr.CodeDecode:
			return huma.Error502BadGateway(coded.Error())
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
