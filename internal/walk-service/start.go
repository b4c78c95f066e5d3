package walkservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawwalk/internal/config"
	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/adapters/driven/basemap"
	"pawwalk/internal/walk-service/adapters/driven/bm"
	"pawwalk/internal/walk-service/adapters/driven/db"
	"pawwalk/internal/walk-service/adapters/driven/geolocation"
	"pawwalk/internal/walk-service/adapters/driven/realtime"
	"pawwalk/internal/walk-service/adapters/driven/restapi"
	"pawwalk/internal/walk-service/adapters/driven/snapshot"
	"pawwalk/internal/walk-service/adapters/driver/myhttp"
	"pawwalk/internal/walk-service/core/domain/model"
	websocketdto "pawwalk/internal/walk-service/core/domain/websocket_dto"
	"pawwalk/internal/walk-service/core/ports/driven"
	"pawwalk/internal/walk-service/core/services"
)

const (
	simFixInterval   = time.Second
	simStepMeters    = 4.0
	firstFixTimeout  = 15 * time.Second
	endTimeout       = 60 * time.Second
	mqttDisconnectMs = 250
)

// App is a fully wired walk service with the resources it opened.
type App struct {
	Service *services.WalkService
	Store   *services.BlockStore
	DogID   model.DogID

	log     mylogger.Logger
	closers []func()
}

// Build connects every adapter enabled in cfg. Rabbit and Postgres are
// optional; Redis falls back to the uncached base map when unreachable.
func Build(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) (*App, error) {
	app := &App{log: mylog}
	l := mylog.Action("build_walk_service")

	auth := services.NewAuthService(cfg.API.AccessToken)
	dogID, err := auth.DogID()
	if err != nil {
		return nil, err
	}
	app.DogID = dogID

	api := restapi.New(cfg.API.BaseURL, auth.Token(), cfg.API.Timeout(), mylog)
	store := services.NewBlockStore()
	app.Store = store

	rt := realtime.NewClient(
		realtime.NewWSDialer(cfg.API.Timeout()),
		store,
		dogID,
		realtime.Options{
			URL:            cfg.Realtime.URL,
			ReconnectDelay: cfg.Realtime.ReconnectDelay(),
			Heartbeat:      cfg.Realtime.Heartbeat(),
		},
		mylog,
	)
	rt.OnEvent = func(ev websocketdto.Inbound) {
		mylog.Action("realtime_event").Debug("server message", "type", ev.MessageType())
	}
	rt.OnError = func(err error) {
		mylog.Action("realtime_event").Warn("realtime error", "error", err.Error())
	}

	deps := services.WalkDeps{
		API:       api,
		Uploader:  api,
		Realtime:  rt,
		Renderers: snapshot.Factory(app.baseMapFetcher(ctx, cfg), snapshotOptions(cfg), mylog),
		Store:     store,
		DogID:     dogID,
		Token:     auth.Token(),
	}

	if cfg.RabbitMq.Enabled {
		mb, err := bm.New(ctx, *cfg.RabbitMq, mylog)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		app.closers = append(app.closers, func() { _ = mb.Close() })
		deps.Events = bm.NewPublisher(mb, mylog)
		l.Info("Successful message broker connection")
	}

	if cfg.DB.Enabled {
		conn, err := db.New(ctx, cfg.DB, mylog)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.closers = append(app.closers, func() { _ = conn.Close() })

		repo := db.NewFootprintRepo(conn)
		if err := repo.EnsureSchema(ctx); err != nil {
			app.Close()
			return nil, err
		}
		deps.Journal = repo
		l.Info("Successful database connection")
	}

	geo, err := app.geolocator(cfg, dogID)
	if err != nil {
		app.Close()
		return nil, err
	}
	deps.Geolocator = geo

	opts := services.DefaultWalkOptions()
	opts.MaxFixAccuracyM = cfg.Walk.MaxFixAccuracyM
	app.Service = services.NewWalkService(deps, opts, mylog)

	return app, nil
}

func (a *App) baseMapFetcher(ctx context.Context, cfg *config.Config) driven.IBaseMapFetcher {
	var fetcher driven.IBaseMapFetcher = basemap.NewFetcher(cfg.Snapshot.BaseMapURL, cfg.Snapshot.BaseMapTimeout())
	if cfg.Redis.Addr == "" {
		return fetcher
	}

	rdb, err := basemap.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		a.log.Action("build_walk_service").Warn("base map cache disabled", "error", err.Error())
		return fetcher
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return basemap.NewCachedFetcher(fetcher, rdb, cfg.Redis.TTL(), a.log)
}

func (a *App) geolocator(cfg *config.Config, dogID model.DogID) (driven.IGeolocator, error) {
	if cfg.MQTT.Broker == "" {
		start := model.GeoPoint{Lat: cfg.Walk.StartLat, Lng: cfg.Walk.StartLng}
		return geolocation.NewSimulator(start, simFixInterval, simStepMeters, time.Now().UnixNano()), nil
	}

	client, err := geolocation.NewMQTTClient(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { client.Disconnect(mqttDisconnectMs) })
	return geolocation.NewCollarFeed(client, dogID, a.log), nil
}

func snapshotOptions(cfg *config.Config) snapshot.Options {
	opts := snapshot.DefaultOptions()
	opts.CanvasSize = cfg.Snapshot.CanvasSize
	opts.CellSizeDeg = cfg.Grid.CellSizeDeg
	opts.BaseMapTimeout = cfg.Snapshot.BaseMapTimeout()
	return opts
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// RunWalk walks for d (or until a signal), then ends and persists the walk.
func RunWalk(ctx context.Context, mylog mylogger.Logger, cfg *config.Config, d time.Duration) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Build(newCtx, mylog, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	stopWatch, err := app.Service.Watch(newCtx)
	if err != nil {
		return err
	}
	defer stopWatch()

	if err := waitForFix(newCtx, app.Service, firstFixTimeout); err != nil {
		return err
	}

	walkID, err := app.Service.Start(newCtx)
	if err != nil {
		return err
	}
	l := mylog.Action("walk").With("walk_id", walkID)
	l.Info("walk started", "duration", d.String())

	select {
	case <-newCtx.Done():
		l.Info("walk interrupted, ending early")
	case <-time.After(d):
	}

	return endWalk(app.Service, l)
}

// Serve runs the overlay server until a signal arrives. A walk still in
// progress at shutdown is ended.
func Serve(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Build(newCtx, mylog, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	stopWatch, err := app.Service.Watch(newCtx)
	if err != nil {
		return err
	}
	defer stopWatch()

	server := myhttp.NewServer(app.Service, cfg.Overlay.Port, cfg.Overlay.Token, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run(newCtx)
	}()

	var runErr error
	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
	case runErr = <-runErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			mylog.Action("overlay_failed").Error("Overlay server failed unexpectedly", runErr)
		}
	}

	if app.Service.Status().Mode == model.ModeWalking {
		_ = endWalk(app.Service, mylog.Action("walk"))
	}
	if err := server.Stop(context.Background()); err != nil {
		return err
	}
	return runErr
}

// RenderSnapshot renders a SnapshotInput JSON file to a PNG without any
// walk backend.
func RenderSnapshot(ctx context.Context, mylog mylogger.Logger, cfg *config.Config, inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read snapshot input: %w", err)
	}
	var input model.SnapshotInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse snapshot input: %w", err)
	}

	app := &App{log: mylog}
	defer app.Close()

	renderer := snapshot.New(app.baseMapFetcher(ctx, cfg), snapshotOptions(cfg), mylog)
	renderer.DrawSnapshot(ctx, input)

	opts := services.DefaultWalkOptions()
	png, err := services.WaitForSnapshot(ctx, renderer, opts.SnapshotPoll, opts.SnapshotWait)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, png, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	frame := renderer.Frame()
	mylog.Action("render_snapshot").Info("snapshot written",
		"path", outPath, "bytes", len(png), "zoom", frame.Zoom,
	)
	return nil
}

func waitForFix(ctx context.Context, svc *services.WalkService, timeout time.Duration) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for svc.Status().CurrentFix == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("no position after %s", timeout)
		case <-ticker.C:
		}
	}
	return nil
}

// endWalk persists the walk. When persistence fails the walk is cancelled
// locally so the process can exit.
func endWalk(svc *services.WalkService, l mylogger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), endTimeout)
	defer cancel()

	status := svc.Status()
	if err := svc.End(ctx); err != nil {
		l.Error("walk not persisted, discarding", err)
		if cerr := svc.Cancel(); cerr != nil {
			l.Error("cancel failed", cerr)
		}
		return err
	}

	l.Info("walk ended", "distance_km", status.DistanceKm, "mine", status.MineCount)
	return nil
}
