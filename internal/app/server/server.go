package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"campaignkit-reference/internal/alert"
	"campaignkit-reference/internal/api"
	"campaignkit-reference/internal/config"
	"campaignkit-reference/internal/kit"
	"campaignkit-reference/internal/kitmgr"
	"campaignkit-reference/internal/listener"
	"campaignkit-reference/internal/platform"
	"campaignkit-reference/internal/registry"
	"campaignkit-reference/internal/screen"
	"campaignkit-reference/internal/storage"
	"campaignkit-reference/internal/uiloop"
	"campaignkit-reference/props"
)

// App owns everything that lives for the whole process.
type App struct {
	Kit    kit.Manager
	Loop   *uiloop.Loop
	Tray   *alert.Tray
	Reg    *registry.Registry
	Main   *screen.Main
	Detail *screen.Detail
}

// New wires the registry as the kit's notifier and builds the screens.
func New(mgr kit.Manager, dev platform.Device, notificationsMax int) *App {
	loop := uiloop.New()
	tray := alert.NewTray(notificationsMax)
	reg := registry.New(mgr, loop, tray)
	mgr.SetNotifier(reg)
	return &App{
		Kit:    mgr,
		Loop:   loop,
		Tray:   tray,
		Reg:    reg,
		Main:   screen.NewMain(reg, mgr, dev, loop),
		Detail: screen.NewDetail(reg),
	}
}

// Start runs the UI loop, starts the kit and brings the entry screen up.
func (a *App) Start(ctx context.Context) error {
	go a.Loop.Run(ctx)
	if err := a.Kit.Start(ctx); err != nil {
		return err
	}
	a.Loop.Post(func() {
		a.Main.OnCreate(false)
		a.Main.OnStart()
	})
	return nil
}

func (a *App) Handler(events func(string)) *api.Handler {
	return &api.Handler{
		Reg:    a.Reg,
		Main:   a.Main,
		Detail: a.Detail,
		Tray:   a.Tray,
		UI:     a.Loop,
		Events: events,
	}
}

func Run(cfg config.Config) {
	config.SetupLogging(cfg.Server.LogLevel)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings, err := props.Load(cfg.Kit.SettingsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load kit settings")
	}

	// Storage
	store, err := storage.New(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	dev := platform.NewSimulatedDevice(platform.DeviceConfig{
		APILevel:         cfg.Device.APILevel,
		LocationGranted:  cfg.Device.LocationGranted,
		PreviouslyDenied: cfg.Device.PreviouslyDenied,
		Bluetooth:        cfg.Device.Bluetooth,
		BluetoothLE:      cfg.Device.BluetoothLE,
		PlayServices:     platform.ParsePlayStatus(cfg.Device.PlayServices),
	})

	// Kit (LISTEN/NOTIFY delivers detections)
	mgr := kitmgr.New(store, dev, settings, kitmgr.Options{
		SyncInterval: cfg.SyncInterval(),
		Listen: func(ctx context.Context, handle func(string)) {
			listener.ListenAndDispatch(ctx, store, cfg.Listener.Channel, cfg.Backoff(), handle)
		},
	})

	app := New(mgr, dev, cfg.Kit.NotificationsMax)
	if err := app.Start(rootCtx); err != nil {
		log.Fatal().Err(err).Msg("start kit")
	}

	// HTTP
	r := api.Router(app.Handler(mgr.HandleEvent))
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	app.Loop.Post(app.Main.OnStop)
	_ = app.Loop.Flush(shCtx)
	cancel() // stop kit, listener and UI loop
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
