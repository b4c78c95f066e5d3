package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/myerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWalkService struct {
	mu        sync.Mutex
	startErr  error
	endErr    error
	cancelErr error
	status    model.WalkStatus
	blocks    model.BlockSnapshot
	png       []byte
	pngErr    error
	listeners []func(model.BlockSnapshot)

	areas   []string
	areaErr error

	footprintCalls []time.Month
	footprintYears []int
}

func (f *fakeWalkService) Start(ctx context.Context) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	return "w-1", nil
}

func (f *fakeWalkService) End(ctx context.Context) error { return f.endErr }
func (f *fakeWalkService) Cancel() error                 { return f.cancelErr }
func (f *fakeWalkService) Status() model.WalkStatus      { return f.status }

func (f *fakeWalkService) SubscribeArea(areaKey string) error {
	f.areas = append(f.areas, areaKey)
	return f.areaErr
}

func (f *fakeWalkService) UnsubscribeArea() { f.areas = append(f.areas, "") }

func (f *fakeWalkService) Blocks() model.BlockSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks
}

func (f *fakeWalkService) SubscribeBlocks(fn func(model.BlockSnapshot)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeWalkService) push(snap model.BlockSnapshot) {
	f.mu.Lock()
	f.blocks = snap
	ls := append([]func(model.BlockSnapshot){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range ls {
		fn(snap)
	}
}

func (f *fakeWalkService) Preview(ctx context.Context) ([]byte, error) {
	return f.png, f.pngErr
}

func (f *fakeWalkService) Footprints(ctx context.Context, year int, month time.Month) ([]model.Footprint, error) {
	f.footprintYears = append(f.footprintYears, year)
	f.footprintCalls = append(f.footprintCalls, month)
	return []model.Footprint{{WalkID: "w-9", DistanceKm: 1.5}}, nil
}

func newTestHandler(svc *fakeWalkService) *WalkHandler {
	h := NewWalkHandler(svc, mylogger.NewNop())
	h.now = func() time.Time { return time.Date(2026, time.May, 20, 9, 0, 0, 0, time.UTC) }
	return h
}

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{myerrors.ErrPositionUnavailable, http.StatusUnprocessableEntity},
		{myerrors.ErrAlreadyWalking, http.StatusConflict},
		{myerrors.ErrEndInProgress, http.StatusConflict},
		{myerrors.ErrSnapshotNotReady, http.StatusServiceUnavailable},
		{errors.Join(myerrors.ErrPersistenceFailed, errors.New("upload")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestStartReturnsWalkID(t *testing.T) {
	h := newTestHandler(&fakeWalkService{})
	rec := httptest.NewRecorder()

	h.Start(rec, httptest.NewRequest(http.MethodPost, "/walk/start", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "w-1", body["walk_id"])
}

func TestStartWithoutPosition(t *testing.T) {
	h := newTestHandler(&fakeWalkService{startErr: myerrors.ErrPositionUnavailable})
	rec := httptest.NewRecorder()

	h.Start(rec, httptest.NewRequest(http.MethodPost, "/walk/start", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, myerrors.ErrPositionUnavailable.Error(), body["error"])
	assert.EqualValues(t, http.StatusUnprocessableEntity, body["code"])
}

func TestCancelDuringEnd(t *testing.T) {
	h := newTestHandler(&fakeWalkService{cancelErr: myerrors.ErrEndInProgress})
	rec := httptest.NewRecorder()

	h.Cancel(rec, httptest.NewRequest(http.MethodPost, "/walk/cancel", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubscribeArea(t *testing.T) {
	svc := &fakeWalkService{}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()

	h.SubscribeArea(rec, httptest.NewRequest(http.MethodPost, "/walk/area", strings.NewReader(`{"area_key":"seoul-12"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"seoul-12"}, svc.areas)
}

func TestSubscribeAreaRejectsBadKey(t *testing.T) {
	svc := &fakeWalkService{}
	h := newTestHandler(svc)

	for _, body := range []string{`{}`, `{"area_key":"a/b"}`, `not json`} {
		rec := httptest.NewRecorder()
		h.SubscribeArea(rec, httptest.NewRequest(http.MethodPost, "/walk/area", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, svc.areas)
}

func TestSubscribeAreaWhileAnotherIsActive(t *testing.T) {
	svc := &fakeWalkService{areaErr: myerrors.ErrAreaActive}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()

	h.SubscribeArea(rec, httptest.NewRequest(http.MethodPost, "/walk/area", strings.NewReader(`{"area_key":"a1"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFootprintsDefaultsToCurrentMonth(t *testing.T) {
	svc := &fakeWalkService{}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()

	h.Footprints(rec, httptest.NewRequest(http.MethodGet, "/footprints", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{2026}, svc.footprintYears)
	assert.Equal(t, []time.Month{time.May}, svc.footprintCalls)

	var fps []model.Footprint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fps))
	require.Len(t, fps, 1)
	assert.Equal(t, "w-9", fps[0].WalkID)
}

func TestFootprintsRejectsBadMonth(t *testing.T) {
	svc := &fakeWalkService{}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()

	h.Footprints(rec, httptest.NewRequest(http.MethodGet, "/footprints?year=2025&month=13", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.footprintCalls)
}

func TestSnapshotServesPNG(t *testing.T) {
	h := newTestHandler(&fakeWalkService{png: []byte("\x89PNG")})
	rec := httptest.NewRecorder()

	h.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/snapshot.png", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String())
}

func TestSnapshotNotReady(t *testing.T) {
	h := newTestHandler(&fakeWalkService{pngErr: myerrors.ErrSnapshotNotReady})
	rec := httptest.NewRecorder()

	h.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/snapshot.png", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEncodeSnapshotNeverEmitsNull(t *testing.T) {
	payload, err := encodeSnapshot(model.BlockSnapshot{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"BLOCKS_SNAPSHOT","data":{"mine":[],"others":[]}}`, string(payload))
}

func TestClientOfferKeepsNewest(t *testing.T) {
	c := &Client{egress: make(chan []byte, 2)}
	c.offer([]byte("1"))
	c.offer([]byte("2"))
	c.offer([]byte("3"))

	assert.Equal(t, "2", string(<-c.egress))
	assert.Equal(t, "3", string(<-c.egress))
}
