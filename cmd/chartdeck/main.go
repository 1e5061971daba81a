package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dgnsrekt/chartdeck/internal/api"
	"github.com/dgnsrekt/chartdeck/internal/backend"
	"github.com/dgnsrekt/chartdeck/internal/browser"
	"github.com/dgnsrekt/chartdeck/internal/cdpsurface"
	"github.com/dgnsrekt/chartdeck/internal/config"
	"github.com/dgnsrekt/chartdeck/internal/controller"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/journal"
	"github.com/dgnsrekt/chartdeck/internal/layout"
	"github.com/dgnsrekt/chartdeck/internal/netutil"
	"github.com/dgnsrekt/chartdeck/internal/notify"
	"github.com/dgnsrekt/chartdeck/internal/performance"
	"github.com/dgnsrekt/chartdeck/internal/relay"
	"github.com/dgnsrekt/chartdeck/internal/surface"
	"github.com/dgnsrekt/chartdeck/internal/workspace"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	dash, err := config.LoadDashboardOrDefault(cfg.DashboardPath)
	if err != nil {
		slog.Error("failed to load dashboard", "path", cfg.DashboardPath, "error", err)
		os.Exit(1)
	}

	slog.Info("chartdeck config loaded",
		"bind_addr", cfg.BindAddr,
		"backend_url", cfg.BackendURL,
		"surface", cfg.Surface,
		"cdp_url", cfg.CDPURL(),
		"frame_interval_ms", cfg.FrameIntervalMS,
		"settle_delay_ms", cfg.SettleDelayMS,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
		"dashboard", cfg.DashboardPath,
		"journal_dir", cfg.JournalDir,
		"layout", dash.Layout,
	)

	candidates, err := netutil.Candidates(cfg.BindAddr, cfg.BindPorts)
	if err != nil {
		slog.Error("invalid bind ports", "ports", cfg.BindPorts, "error", err)
		os.Exit(1)
	}
	ln, err := netutil.Listen(cfg.BindAddr, candidates, cfg.BindFallback)
	if err != nil {
		slog.Error("failed to bind", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}
	cfg.BindAddr = ln.Addr().String()

	// Until the session exists only the deck page is served, so a browser tab
	// can load it while the cdp surface connects.
	boot := http.NewServeMux()
	boot.Handle(cdpsurface.PagePath, cdpsurface.PageHandler())
	var current atomic.Pointer[http.Handler]
	var bootHandler http.Handler = boot
	current.Store(&bootHandler)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		(*current.Load()).ServeHTTP(w, r)
	})}
	go func() {
		slog.Info("chartdeck listening", "addr", cfg.BindAddr, "docs", "http://"+cfg.BindAddr+"/docs")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("chartdeck server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := frame.NewLoop(cfg.FrameInterval())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("frame loop stopped", "error", err)
		}
	}()

	broker := relay.NewBroker()
	var journals *journal.Registry
	if cfg.JournalDir != "" {
		journals = journal.NewRegistry(cfg.JournalDir, 1024, cfg.JournalMaxMB)
		go journal.NewRecorder(broker, journals, cfg.JournalMaxPayload).Run(ctx)
	}
	be := backend.New(backend.Options{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.BackendTimeout(),
		RetryCount: cfg.BackendRetries,
	})

	var surfaces workspace.SurfaceFactory = surface.Factory{Publisher: broker}
	var launcher *browser.Launcher
	var page *cdpsurface.Page
	if cfg.Surface == config.SurfaceCDP {
		if cfg.LaunchBrowser {
			launcher = browser.NewLauncher(browser.Config{
				CDPAddress: cfg.CDPAddress,
				CDPPort:    cfg.CDPPort,
				ProfileDir: cfg.ProfileDir,
			})
			if err := launcher.Launch(ctx); err != nil {
				slog.Error("failed to launch browser", "error", err)
				os.Exit(1)
			}
		}
		page, err = cdpsurface.Connect(ctx, loop, cdpsurface.Options{
			CDPURL:      cfg.CDPURL(),
			PageURL:     cfg.DeckURL(cdpsurface.PagePath),
			EvalTimeout: cfg.EvalTimeout(),
		})
		if err != nil {
			slog.Error("failed to connect deck page", "cdp_url", cfg.CDPURL(), "error", err)
			shutdownBrowser(launcher)
			os.Exit(1)
		}
		surfaces = page
	}

	var session *controller.Session
	var newErr error
	err = loop.Do(ctx, func() {
		session, newErr = controller.New(loop, loop, be, surfaces, controller.Options{
			FetchTimeout: cfg.BackendTimeout(),
			Layout: layout.Options{
				SettleDelay:      cfg.SettleDelay(),
				FrameInterval:    cfg.FrameInterval(),
				DefaultTimeframe: workspace.Timeframe(dash.DefaultTimeframe),
				Geometry: layout.Geometry{
					Viewport:     layout.Viewport{Width: dash.Viewport.Width, Height: dash.Viewport.Height},
					HeaderHeight: dash.HeaderHeight,
					StatusHeight: dash.StatusHeight,
					Gap:          dash.Gap,
				},
			},
			Panel: performance.Options{
				TradedAssetType: dash.TradedAssetType,
				PanelWidth:      dash.Panel.Width,
				TradedHeight:    dash.Panel.TradedHeight,
				MetricHeight:    dash.Panel.MetricHeight,
			},
			Notify: notify.Options{
				TTL:          cfg.NotificationTTL(),
				Publisher:    broker,
				NtfyEndpoint: cfg.NtfyEndpoint,
			},
		})
	})
	if err == nil {
		err = newErr
	}
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	var apiHandler http.Handler = api.NewServer(session, broker)
	current.Store(&apiHandler)

	if err := session.ApplyDashboard(ctx, dash); err != nil {
		slog.Warn("dashboard not applied", "error", err)
	}

	<-ctx.Done()
	slog.Info("chartdeck shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("chartdeck shutdown failed", "error", err)
	}
	<-loopDone
	if page != nil {
		if err := page.Close(); err != nil {
			slog.Debug("deck page close failed", "error", err)
		}
	}
	shutdownBrowser(launcher)
	if journals != nil {
		if err := journals.Close(); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}
}

func shutdownBrowser(l *browser.Launcher) {
	if l != nil {
		l.Stop()
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
