package basemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/myerrors"
	"pawwalk/internal/walk-service/core/ports/driven"
)

const maxImageBytes = 8 << 20

// Fetcher downloads static map rasters from the map proxy.
type Fetcher struct {
	endpoint string
	client   *http.Client
}

var _ driven.IBaseMapFetcher = (*Fetcher)(nil)

func NewFetcher(endpoint string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) FetchBaseMap(ctx context.Context, req model.BaseMapRequest) ([]byte, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint: %v", myerrors.ErrSnapshotUnavailable, err)
	}
	u.RawQuery = query(req).Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", myerrors.ErrSnapshotUnavailable, err)
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", myerrors.ErrSnapshotUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", myerrors.ErrSnapshotUnavailable, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", myerrors.ErrSnapshotUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", myerrors.ErrSnapshotUnavailable)
	}
	return data, nil
}

func query(req model.BaseMapRequest) url.Values {
	format := req.Format
	if format == "" {
		format = "png"
	}
	q := url.Values{}
	q.Set("w", strconv.Itoa(req.Width))
	q.Set("h", strconv.Itoa(req.Height))
	q.Set("center", formatCenter(req.Center))
	q.Set("level", strconv.Itoa(req.Level))
	q.Set("format", format)
	return q
}

// formatCenter renders "lng,lat" at four decimals.
func formatCenter(p model.GeoPoint) string {
	return strconv.FormatFloat(p.Lng, 'f', 4, 64) + "," + strconv.FormatFloat(p.Lat, 'f', 4, 64)
}
