package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"sync"
	"time"

	"pawwalk/internal/geogrid"
	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/ports/driven"

	"github.com/fogleman/gg"
)

const placeholderLabel = "Map image unavailable"

type Options struct {
	CanvasSize     int
	Padding        int
	CellSizeDeg    float64
	BaseMapTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		CanvasSize:     600,
		Padding:        40,
		CellSizeDeg:    geogrid.DefaultCellSizeDeg,
		BaseMapTimeout: 8 * time.Second,
	}
}

type rgba struct{ r, g, b, a float64 }

var (
	colorBackground  = rgba{0.95, 0.95, 0.93, 1}
	colorPlaceholder = rgba{0.8, 0.8, 0.8, 1}
	colorLabel       = rgba{0.35, 0.35, 0.35, 1}
	colorOthersFill  = rgba{0.906, 0.298, 0.235, 0.45}
	colorOthersLine  = rgba{0.753, 0.224, 0.169, 0.9}
	colorMineFill    = rgba{0.204, 0.596, 0.859, 0.45}
	colorMineLine    = rgba{0.161, 0.502, 0.725, 0.9}
	colorPath        = rgba{0.153, 0.682, 0.376, 1}
	colorMarker      = rgba{0.173, 0.243, 0.314, 1}
)

// Renderer composites one snapshot at a time off screen. Drawing runs in the
// background; callers poll IsReady and then ExportPNG.
type Renderer struct {
	fetcher driven.IBaseMapFetcher
	opts    Options
	log     mylogger.Logger
	encode  func(io.Writer, image.Image) error

	mu    sync.Mutex
	gen   uint64
	ready bool
	err   error
	png   []byte
	frame Frame
}

var _ driven.ISnapshotRenderer = (*Renderer)(nil)

// New returns a renderer. A nil fetcher always draws the placeholder.
func New(fetcher driven.IBaseMapFetcher, opts Options, log mylogger.Logger) *Renderer {
	return &Renderer{fetcher: fetcher, opts: opts, log: log, encode: png.Encode}
}

// Factory hands out a fresh renderer per snapshot.
func Factory(fetcher driven.IBaseMapFetcher, opts Options, log mylogger.Logger) driven.SnapshotRendererFactory {
	return func() driven.ISnapshotRenderer {
		return New(fetcher, opts, log)
	}
}

// DrawSnapshot starts compositing input. A previous unfinished drawing is
// superseded.
func (r *Renderer) DrawSnapshot(ctx context.Context, input model.SnapshotInput) {
	frame := FrameFor(input, r.opts.CellSizeDeg, r.opts.CanvasSize, r.opts.Padding)

	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.ready = false
	r.err = nil
	r.png = nil
	r.frame = frame
	r.mu.Unlock()

	go r.compose(ctx, gen, frame, input)
}

func (r *Renderer) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Err reports why the current drawing failed. A failed drawing never
// becomes ready.
func (r *Renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ExportPNG returns nil until the current drawing is complete.
func (r *Renderer) ExportPNG() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return nil
	}
	return r.png
}

func (r *Renderer) Frame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

func (r *Renderer) compose(ctx context.Context, gen uint64, frame Frame, input model.SnapshotInput) {
	l := r.log.Action("draw_snapshot")
	size := r.opts.CanvasSize

	base := r.baseMap(ctx, frame)

	dc := gg.NewContext(size, size)
	setColor(dc, colorBackground)
	dc.Clear()

	if base != nil {
		b := base.Bounds()
		dc.Push()
		dc.Scale(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
		dc.DrawImage(base, 0, 0)
		dc.Pop()
	} else {
		setColor(dc, colorPlaceholder)
		dc.DrawRectangle(0, 0, float64(size), float64(size))
		dc.Fill()
		setColor(dc, colorLabel)
		dc.DrawStringAnchored(placeholderLabel, float64(size)/2, float64(size)/2, 0.5, 0.5)
	}

	r.drawCells(dc, frame, input.Others, colorOthersFill, colorOthersLine)
	r.drawCells(dc, frame, input.Mine, colorMineFill, colorMineLine)
	r.drawPath(dc, frame, input.Path)

	marker := input.Current
	if n := len(input.Path); n > 0 {
		marker = &input.Path[n-1]
	}
	if marker != nil {
		p := geogrid.ProjectToPixel(*marker, frame.Center, frame.Zoom, size)
		dc.DrawCircle(p.X, p.Y, 8)
		dc.SetRGB(1, 1, 1)
		dc.FillPreserve()
		setColor(dc, colorMarker)
		dc.SetLineWidth(3)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := r.encode(&buf, dc.Image()); err != nil {
		l.Error("failed to encode snapshot", err)
		r.mu.Lock()
		if gen == r.gen {
			r.err = fmt.Errorf("encode snapshot: %w", err)
		}
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	if gen == r.gen {
		r.png = buf.Bytes()
		r.ready = true
	}
	r.mu.Unlock()

	l.Debug("snapshot ready", "zoom", frame.Zoom, "bytes", buf.Len(),
		"mine", len(input.Mine), "others", len(input.Others), "path", len(input.Path))
}

// baseMap returns nil when the raster is unavailable.
func (r *Renderer) baseMap(ctx context.Context, frame Frame) image.Image {
	if r.fetcher == nil {
		return nil
	}
	l := r.log.Action("fetch_base_map")

	ctx, cancel := context.WithTimeout(ctx, r.opts.BaseMapTimeout)
	defer cancel()

	data, err := r.fetcher.FetchBaseMap(ctx, model.BaseMapRequest{
		Center: frame.Center,
		Level:  frame.Zoom,
		Width:  r.opts.CanvasSize,
		Height: r.opts.CanvasSize,
		Format: "png",
	})
	if err != nil {
		l.Warn("drawing placeholder instead of base map", "error", err.Error())
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		l.Warn("base map is not a decodable image", "error", err.Error())
		return nil
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}
	return img
}

func (r *Renderer) drawCells(dc *gg.Context, frame Frame, cells []model.Cell, fill, line rgba) {
	for _, c := range cells {
		corners, err := geogrid.CellCorners(c.ID, r.opts.CellSizeDeg)
		if err != nil {
			continue
		}
		for i, corner := range corners {
			p := geogrid.ProjectToPixel(corner, frame.Center, frame.Zoom, r.opts.CanvasSize)
			if i == 0 {
				dc.MoveTo(p.X, p.Y)
			} else {
				dc.LineTo(p.X, p.Y)
			}
		}
		dc.ClosePath()
		setColor(dc, fill)
		dc.FillPreserve()
		setColor(dc, line)
		dc.SetLineWidth(1.5)
		dc.Stroke()
	}
}

func (r *Renderer) drawPath(dc *gg.Context, frame Frame, path []model.GeoPoint) {
	if len(path) < 2 {
		return
	}
	for i, pt := range path {
		p := geogrid.ProjectToPixel(pt, frame.Center, frame.Zoom, r.opts.CanvasSize)
		if i == 0 {
			dc.MoveTo(p.X, p.Y)
		} else {
			dc.LineTo(p.X, p.Y)
		}
	}
	setColor(dc, colorPath)
	dc.SetLineWidth(4)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.Stroke()
}

func setColor(dc *gg.Context, c rgba) {
	dc.SetRGBA(c.r, c.g, c.b, c.a)
}
