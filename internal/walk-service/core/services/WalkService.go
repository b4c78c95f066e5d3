package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pawwalk/internal/geogrid"
	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/dto"
	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/myerrors"
	"pawwalk/internal/walk-service/core/ports/driven"
	"pawwalk/internal/walk-service/core/ports/driver"

	"github.com/google/uuid"
)

const (
	EventWalkStarted  = "walk.started"
	EventWalkFinished = "walk.finished"
)

type WalkOptions struct {
	MaxFixAccuracyM float64
	NearbyRadiusM   int
	ConnectTimeout  time.Duration
	SnapshotPoll    time.Duration
	SnapshotWait    time.Duration
}

func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		NearbyRadiusM:  500,
		ConnectTimeout: 10 * time.Second,
		SnapshotPoll:   100 * time.Millisecond,
		SnapshotWait:   15 * time.Second,
	}
}

// WalkDeps are the collaborators of a WalkService. Events and Journal may be nil.
type WalkDeps struct {
	API        driven.IWalkAPI
	Uploader   driven.IFileUploader
	Realtime   driven.IRealtimeClient
	Geolocator driven.IGeolocator
	Renderers  driven.SnapshotRendererFactory
	Events     driven.IWalkEventPublisher
	Journal    driven.IFootprintRepository
	Store      *BlockStore
	DogID      model.DogID
	Token      string
}

// WalkService owns the walk session: Idle -> Walking -> Idle. It is the only
// writer of the session fields; the realtime client only touches the block
// store.
type WalkService struct {
	deps WalkDeps
	opts WalkOptions
	log  mylogger.Logger
	now  func() time.Time
	bg   sync.WaitGroup

	mu          sync.Mutex
	mode        model.WalkMode
	starting    bool
	abortStart  bool
	ending      bool
	walkID      string
	startedAt   time.Time
	distanceKm  float64
	path        []model.GeoPoint
	current     *model.Fix
	realtimeErr error
}

var _ driver.IWalkService = (*WalkService)(nil)

func NewWalkService(deps WalkDeps, opts WalkOptions, log mylogger.Logger) *WalkService {
	return &WalkService{
		deps: deps,
		opts: opts,
		log:  log,
		now:  time.Now,
	}
}

// Watch routes geolocation fixes into OnFix until the returned cancel is called.
func (s *WalkService) Watch(ctx context.Context) (func(), error) {
	cancel, err := s.deps.Geolocator.Watch(ctx, s.OnFix)
	if err != nil {
		return nil, fmt.Errorf("watch geolocation: %w", err)
	}
	return cancel, nil
}

// OnFix records the latest fix. While walking it also grows the path,
// accumulates great-circle distance and publishes the location.
func (s *WalkService) OnFix(fix model.Fix) {
	s.mu.Lock()
	f := fix
	s.current = &f
	if s.mode != model.ModeWalking {
		s.mu.Unlock()
		return
	}
	if s.opts.MaxFixAccuracyM > 0 && fix.AccuracyM > s.opts.MaxFixAccuracyM {
		s.mu.Unlock()
		s.log.Debug("fix ignored for path", "accuracy_m", fix.AccuracyM)
		return
	}
	if n := len(s.path); n > 0 {
		s.distanceKm += geogrid.HaversineKm(s.path[n-1], fix.Point)
	}
	s.path = append(s.path, fix.Point)
	s.mu.Unlock()

	s.deps.Realtime.SendLocation(fix.Point.Lat, fix.Point.Lng)
}

func (s *WalkService) Start(ctx context.Context) (string, error) {
	l := s.log.Action("start_walk")

	s.mu.Lock()
	if s.mode == model.ModeWalking || s.starting {
		s.mu.Unlock()
		return "", myerrors.ErrAlreadyWalking
	}
	if s.current == nil {
		s.mu.Unlock()
		return "", myerrors.ErrPositionUnavailable
	}
	pos := s.current.Point
	s.starting = true
	s.mu.Unlock()

	resp, err := s.deps.API.StartWalk(ctx, dto.StartWalkRequest{StartLat: pos.Lat, StartLng: pos.Lng})
	if err != nil {
		s.mu.Lock()
		s.starting = false
		s.abortStart = false
		s.mu.Unlock()
		l.Error("walk start rejected", err)
		return "", fmt.Errorf("start walk: %w", err)
	}
	startedAt := s.now()

	// Until the commit below the controller is still Idle: fixes do not
	// grow a path and End is a no-op. Cancel only flags the start as aborted.
	s.deps.Store.Reset()
	s.seedBlocks(ctx, pos)

	if s.startAborted() {
		return "", s.dropStart(resp.WalkID, l)
	}

	s.publish(ctx, dto.WalkLifecycleEvent{
		Event:     EventWalkStarted,
		WalkID:    resp.WalkID,
		DogID:     int64(s.deps.DogID),
		Timestamp: startedAt,
	})

	s.mu.Lock()
	if s.abortStart {
		s.mu.Unlock()
		return "", s.dropStart(resp.WalkID, l)
	}
	s.starting = false
	s.walkID = resp.WalkID
	s.mode = model.ModeWalking
	s.startedAt = startedAt
	s.distanceKm = 0
	s.path = nil
	s.realtimeErr = nil
	s.mu.Unlock()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.connectRealtime(resp.WalkID)
	}()

	l.Info("walk started", "walk_id", resp.WalkID, "lat", pos.Lat, "lng", pos.Lng)
	return resp.WalkID, nil
}

func (s *WalkService) startAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abortStart
}

// dropStart discards a start that was cancelled before it committed.
func (s *WalkService) dropStart(walkID string, l mylogger.Logger) error {
	s.mu.Lock()
	s.starting = false
	s.abortStart = false
	s.mu.Unlock()

	s.deps.Store.Reset()
	l.Info("walk cancelled while starting", "walk_id", walkID)
	return fmt.Errorf("start walk %s: %w", walkID, myerrors.ErrStartAborted)
}

// Cancel drops the walk locally. Nothing is persisted.
func (s *WalkService) Cancel() error {
	s.mu.Lock()
	if s.ending {
		s.mu.Unlock()
		return myerrors.ErrEndInProgress
	}
	if s.starting {
		s.abortStart = true
		s.mu.Unlock()
		return nil
	}
	if s.mode != model.ModeWalking {
		s.mu.Unlock()
		return nil
	}
	walkID := s.walkID
	s.resetLocked()
	s.mu.Unlock()

	s.deps.Realtime.Disconnect()
	s.deps.Store.Reset()
	s.log.Action("cancel_walk").Info("walk cancelled", "walk_id", walkID)
	return nil
}

// SubscribeArea follows the block feed of one area for the current walk.
// Repeating the active key is a no-op; a different key needs UnsubscribeArea
// first.
func (s *WalkService) SubscribeArea(areaKey string) error {
	s.mu.Lock()
	walking := s.mode == model.ModeWalking && !s.ending
	s.mu.Unlock()
	if !walking {
		return myerrors.ErrNotWalking
	}

	switch active := s.deps.Realtime.AreaKey(); active {
	case areaKey:
		return nil
	case "":
		s.deps.Realtime.SubscribeToArea(areaKey)
		return nil
	default:
		return fmt.Errorf("%w: %s", myerrors.ErrAreaActive, active)
	}
}

func (s *WalkService) UnsubscribeArea() {
	s.deps.Realtime.UnsubscribeFromArea()
}

type endingWalk struct {
	walkID     string
	startedAt  time.Time
	duration   time.Duration
	distanceKm float64
	path       []model.GeoPoint
	end        model.GeoPoint
}

// End renders the snapshot, uploads it and closes the walk on the server.
// Any failure leaves the session untouched so the caller can retry; calling
// End while idle does nothing.
func (s *WalkService) End(ctx context.Context) error {
	s.mu.Lock()
	if s.mode != model.ModeWalking {
		s.mu.Unlock()
		return nil
	}
	if s.ending {
		s.mu.Unlock()
		return myerrors.ErrEndInProgress
	}
	if s.current == nil {
		s.mu.Unlock()
		return myerrors.ErrPositionUnavailable
	}
	s.ending = true
	w := endingWalk{
		walkID:     s.walkID,
		startedAt:  s.startedAt,
		duration:   s.now().Sub(s.startedAt),
		distanceKm: s.distanceKm,
		path:       append([]model.GeoPoint(nil), s.path...),
		end:        s.current.Point,
	}
	s.mu.Unlock()

	l := s.log.Action("end_walk").With("walk_id", w.walkID)
	err := s.finish(ctx, w, l)

	s.mu.Lock()
	s.ending = false
	if err != nil {
		s.mu.Unlock()
		l.Error("walk end failed, session kept", err)
		return fmt.Errorf("%w: %w", myerrors.ErrPersistenceFailed, err)
	}
	if s.walkID == w.walkID {
		s.resetLocked()
	}
	s.mu.Unlock()

	s.deps.Store.Reset()
	return nil
}

func (s *WalkService) finish(ctx context.Context, w endingWalk, l mylogger.Logger) error {
	blocks := s.deps.Store.Snapshot()
	end := w.end

	png, err := s.render(ctx, model.SnapshotInput{
		Path:    w.path,
		Mine:    blocks.Mine,
		Others:  blocks.Others,
		Current: &end,
	})
	if err != nil {
		return fmt.Errorf("render snapshot: %w", err)
	}

	fileName := fmt.Sprintf("walk-%s-%s.png", w.walkID, uuid.NewString())
	imageKey, err := s.deps.Uploader.UploadImage(ctx, fileName, "image/png", png)
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	durationSeconds := int(w.duration.Seconds())
	resp, err := s.deps.API.EndWalk(ctx, w.walkID, dto.EndWalkRequest{
		EndLat:          end.Lat,
		EndLng:          end.Lng,
		TotalDistanceKm: w.distanceKm,
		DurationSeconds: durationSeconds,
		Status:          dto.WalkStatusFinished,
		ImageKey:        imageKey,
	})
	if err != nil {
		return fmt.Errorf("end walk: %w", err)
	}

	s.deps.Realtime.Disconnect()

	occupied := resp.OccupiedBlockCount
	if occupied == 0 {
		occupied = len(blocks.Mine)
	}
	endedAt := s.now()

	s.publish(ctx, dto.WalkLifecycleEvent{
		Event:           EventWalkFinished,
		WalkID:          w.walkID,
		DogID:           int64(s.deps.DogID),
		DistanceKm:      w.distanceKm,
		DurationSeconds: durationSeconds,
		OccupiedBlocks:  occupied,
		ImageKey:        imageKey,
		Timestamp:       endedAt,
	})

	if s.deps.Journal != nil {
		fp := model.Footprint{
			WalkID:          w.walkID,
			DogID:           s.deps.DogID,
			StartedAt:       w.startedAt,
			EndedAt:         endedAt,
			DistanceKm:      w.distanceKm,
			DurationSeconds: durationSeconds,
			ImageKey:        imageKey,
			OccupiedBlocks:  occupied,
		}
		if err := s.deps.Journal.Record(ctx, fp); err != nil {
			l.Error("footprint not journaled", err)
		}
	}

	l.Info("walk ended", "distance_km", w.distanceKm, "duration_seconds", durationSeconds, "occupied_blocks", occupied)
	return nil
}

func (s *WalkService) render(ctx context.Context, input model.SnapshotInput) ([]byte, error) {
	r := s.deps.Renderers()
	r.DrawSnapshot(ctx, input)
	return WaitForSnapshot(ctx, r, s.opts.SnapshotPoll, s.opts.SnapshotWait)
}

// WaitForSnapshot polls r until it is ready and returns the exported image.
func WaitForSnapshot(ctx context.Context, r driven.ISnapshotRenderer, poll, wait time.Duration) ([]byte, error) {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if r.IsReady() {
			if png := r.ExportPNG(); png != nil {
				return png, nil
			}
		}
		if err := r.Err(); err != nil {
			return nil, err
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return nil, myerrors.ErrSnapshotNotReady
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Preview renders the walk as it stands without touching the session.
func (s *WalkService) Preview(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	input := model.SnapshotInput{Path: append([]model.GeoPoint(nil), s.path...)}
	if s.current != nil {
		p := s.current.Point
		input.Current = &p
	}
	s.mu.Unlock()

	blocks := s.deps.Store.Snapshot()
	input.Mine, input.Others = blocks.Mine, blocks.Others
	return s.render(ctx, input)
}

func (s *WalkService) Status() model.WalkStatus {
	s.mu.Lock()
	st := model.WalkStatus{
		WalkID:     s.walkID,
		Mode:       s.mode,
		Starting:   s.starting,
		Ending:     s.ending,
		DistanceKm: s.distanceKm,
		PathLength: len(s.path),
	}
	if s.mode == model.ModeWalking {
		startedAt := s.startedAt
		st.StartedAt = &startedAt
		st.ElapsedSeconds = int(s.now().Sub(s.startedAt).Seconds())
	}
	if s.current != nil {
		fix := *s.current
		st.CurrentFix = &fix
	}
	if s.realtimeErr != nil {
		st.RealtimeErr = s.realtimeErr.Error()
	}
	s.mu.Unlock()

	blocks := s.deps.Store.Snapshot()
	st.MineCount = len(blocks.Mine)
	st.OthersCount = len(blocks.Others)
	st.Realtime = s.deps.Realtime.State().String()
	st.AreaKey = s.deps.Realtime.AreaKey()
	return st
}

// Elapsed is recomputed from the wall clock on every call.
func (s *WalkService) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != model.ModeWalking {
		return 0
	}
	return s.now().Sub(s.startedAt)
}

func (s *WalkService) Path() []model.GeoPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.GeoPoint(nil), s.path...)
}

func (s *WalkService) DistanceKm() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distanceKm
}

func (s *WalkService) Blocks() model.BlockSnapshot {
	return s.deps.Store.Snapshot()
}

func (s *WalkService) SubscribeBlocks(fn func(model.BlockSnapshot)) func() {
	return s.deps.Store.Subscribe(fn)
}

func (s *WalkService) Footprints(ctx context.Context, year int, month time.Month) ([]model.Footprint, error) {
	if s.deps.Journal == nil {
		return []model.Footprint{}, nil
	}
	return s.deps.Journal.ListByMonth(ctx, s.deps.DogID, year, month)
}

func (s *WalkService) connectRealtime(walkID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConnectTimeout)
	defer cancel()

	err := s.deps.Realtime.Connect(ctx, walkID, s.deps.Token)

	s.mu.Lock()
	current := s.walkID == walkID && s.mode == model.ModeWalking
	if current {
		s.realtimeErr = err
	}
	s.mu.Unlock()

	l := s.log.Action("realtime_connect").With("walk_id", walkID)
	if err != nil {
		l.Warn("walking without live territory updates", "error", err.Error())
		return
	}
	if !current {
		// the walk ended or was cancelled while connecting
		s.deps.Realtime.Disconnect()
		return
	}
	l.Info("realtime connected")
}

// seedBlocks loads the blocks known before the realtime channel is up.
func (s *WalkService) seedBlocks(ctx context.Context, pos model.GeoPoint) {
	l := s.log.Action("seed_blocks")

	mineDTO, err := s.deps.API.MyBlocks(ctx)
	if err != nil {
		l.Warn("cannot load my blocks", "error", err.Error())
	}
	nearby, err := s.deps.API.NearbyBlocks(ctx, pos, s.opts.NearbyRadiusM)
	if err != nil {
		l.Warn("cannot load nearby blocks", "error", err.Error())
	}

	var mine, others []model.Cell
	for _, b := range append(mineDTO, nearby...) {
		if !geogrid.ValidCellID(b.BlockID) {
			l.Warn("skipping block with invalid id", "block_id", b.BlockID)
			continue
		}
		cell := model.Cell{ID: b.BlockID, OwnerID: model.DogID(b.DogID), OccupiedAt: b.OccupiedAt}
		if cell.OwnerID == s.deps.DogID {
			mine = append(mine, cell)
		} else {
			others = append(others, cell)
		}
	}
	s.deps.Store.Replace(mine, others)
}

func (s *WalkService) publish(ctx context.Context, event dto.WalkLifecycleEvent) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.PublishWalkEvent(ctx, event); err != nil {
		s.log.Action("publish_walk_event").Warn("walk event not published", "event", event.Event, "error", err.Error())
	}
}

func (s *WalkService) resetLocked() {
	s.mode = model.ModeIdle
	s.walkID = ""
	s.startedAt = time.Time{}
	s.distanceKm = 0
	s.path = nil
	s.realtimeErr = nil
}
