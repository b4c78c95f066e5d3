package snapshot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/myerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu       sync.Mutex
	data     []byte
	err      error
	block    chan struct{}
	requests []model.BaseMapRequest
}

func (f *fakeFetcher) FetchBaseMap(ctx context.Context, req model.BaseMapRequest) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, myerrors.ErrSnapshotUnavailable
		}
	}
	return f.data, f.err
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 60))
	for x := 0; x < 60; x++ {
		for y := 0; y < 60; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func waitReady(t *testing.T, r *Renderer) image.Image {
	t.Helper()
	require.Eventually(t, r.IsReady, 2*time.Second, 5*time.Millisecond)
	data := r.ExportPNG()
	require.NotNil(t, data)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func rgbAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestEmptyInputStillRenders(t *testing.T) {
	f := &fakeFetcher{data: solidPNG(t, color.RGBA{0, 200, 0, 255})}
	r := New(f, DefaultOptions(), mylogger.NewNop())

	r.DrawSnapshot(context.Background(), model.SnapshotInput{})
	img := waitReady(t, r)

	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, DefaultCenter, req.Center)
	assert.Equal(t, DefaultZoom, req.Level)
	assert.Equal(t, 600, req.Width)

	_, g, _ := rgbAt(img, 10, 10)
	assert.InDelta(t, 200, int(g), 2)
}

func TestFetchFailureDrawsPlaceholder(t *testing.T) {
	f := &fakeFetcher{err: errors.New("proxy down")}
	r := New(f, DefaultOptions(), mylogger.NewNop())

	r.DrawSnapshot(context.Background(), model.SnapshotInput{})
	img := waitReady(t, r)

	red, g, b := rgbAt(img, 5, 5)
	assert.InDelta(t, 204, int(red), 2)
	assert.InDelta(t, 204, int(g), 2)
	assert.InDelta(t, 204, int(b), 2)
}

func TestUndecodableBaseMapDrawsPlaceholder(t *testing.T) {
	f := &fakeFetcher{data: []byte("<html>not an image</html>")}
	r := New(f, DefaultOptions(), mylogger.NewNop())

	r.DrawSnapshot(context.Background(), model.SnapshotInput{})
	img := waitReady(t, r)

	red, _, _ := rgbAt(img, 5, 5)
	assert.InDelta(t, 204, int(red), 2)
}

func TestNotReadyUntilFetchResolves(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{}), data: solidPNG(t, color.White)}
	r := New(f, DefaultOptions(), mylogger.NewNop())

	r.DrawSnapshot(context.Background(), model.SnapshotInput{})
	time.Sleep(20 * time.Millisecond)
	assert.False(t, r.IsReady())
	assert.Nil(t, r.ExportPNG())

	close(f.block)
	waitReady(t, r)
}

func TestFetchTimeoutStillBecomesReady(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{})}
	opts := DefaultOptions()
	opts.BaseMapTimeout = 30 * time.Millisecond
	r := New(f, opts, mylogger.NewNop())

	r.DrawSnapshot(context.Background(), model.SnapshotInput{})
	img := waitReady(t, r)

	red, _, _ := rgbAt(img, 5, 5)
	assert.InDelta(t, 204, int(red), 2)
}

func TestNilFetcher(t *testing.T) {
	r := New(nil, DefaultOptions(), mylogger.NewNop())
	r.DrawSnapshot(context.Background(), model.SnapshotInput{})
	waitReady(t, r)
}

func TestMineCellIsDrawnInMineColor(t *testing.T) {
	r := New(nil, DefaultOptions(), mylogger.NewNop())

	r.DrawSnapshot(context.Background(), model.SnapshotInput{
		Mine: []model.Cell{{ID: "P_37.566000_126.977760", OwnerID: 1}},
	})
	img := waitReady(t, r)

	red, _, blue := rgbAt(img, 300, 300)
	assert.Greater(t, blue, red)
}

func TestOffGridCellIsDrawn(t *testing.T) {
	const cell = "P_37.386800_127.124700"
	r := New(nil, DefaultOptions(), mylogger.NewNop())

	r.DrawSnapshot(context.Background(), model.SnapshotInput{
		Others: []model.Cell{{ID: cell, OwnerID: 9}},
	})
	img := waitReady(t, r)

	frame := r.Frame()
	assert.InDelta(t, 37.3872, frame.Center.Lat, 1e-4)
	red, _, blue := rgbAt(img, 300, 300)
	assert.Greater(t, red, blue)
}

func TestEncodeFailureIsReported(t *testing.T) {
	r := New(nil, DefaultOptions(), mylogger.NewNop())
	r.encode = func(io.Writer, image.Image) error { return errors.New("disk full") }

	r.DrawSnapshot(context.Background(), model.SnapshotInput{})

	require.Eventually(t, func() bool { return r.Err() != nil }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, r.Err().Error(), "disk full")
	assert.False(t, r.IsReady())
	assert.Nil(t, r.ExportPNG())

	r.encode = png.Encode
	r.DrawSnapshot(context.Background(), model.SnapshotInput{})
	assert.NoError(t, r.Err())
	waitReady(t, r)
}

func TestOthersCellIsDrawnInOthersColor(t *testing.T) {
	r := New(nil, DefaultOptions(), mylogger.NewNop())

	r.DrawSnapshot(context.Background(), model.SnapshotInput{
		Others: []model.Cell{{ID: "P_37.566000_126.977760", OwnerID: 9}},
	})
	img := waitReady(t, r)

	red, _, blue := rgbAt(img, 300, 300)
	assert.Greater(t, red, blue)
}

func TestFactoryReturnsFreshRenderers(t *testing.T) {
	factory := Factory(nil, DefaultOptions(), mylogger.NewNop())
	a, b := factory(), factory()
	assert.NotSame(t, a, b)
	assert.False(t, a.IsReady())
}
