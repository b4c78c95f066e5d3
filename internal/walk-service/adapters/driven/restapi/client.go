package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/dto"
	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/ports/driven"
)

const (
	walksPath        = "/walks"
	walkBlocksPath   = "/walks/blocks"
	blocksPath       = "/blocks"
	presignedURLPath = "/files/presigned-url"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the walk backend with a bearer token.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     mylogger.Logger
}

var (
	_ driven.IWalkAPI      = (*Client)(nil)
	_ driven.IFileUploader = (*Client)(nil)
)

func New(baseURL, token string, timeout time.Duration, log mylogger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) StartWalk(ctx context.Context, req dto.StartWalkRequest) (dto.StartWalkResponse, error) {
	var resp dto.StartWalkResponse
	if err := c.doJSON(ctx, http.MethodPost, walksPath, nil, req, &resp); err != nil {
		return dto.StartWalkResponse{}, fmt.Errorf("starting walk: %w", err)
	}
	if resp.WalkID == "" {
		return dto.StartWalkResponse{}, errors.New("starting walk: response has no walkId")
	}
	return resp, nil
}

func (c *Client) EndWalk(ctx context.Context, walkID string, req dto.EndWalkRequest) (dto.EndWalkResponse, error) {
	var resp dto.EndWalkResponse
	path := walksPath + "/" + url.PathEscape(walkID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return dto.EndWalkResponse{}, fmt.Errorf("ending walk %s: %w", walkID, err)
	}
	return resp, nil
}

func (c *Client) NearbyBlocks(ctx context.Context, center model.GeoPoint, radiusM int) ([]dto.BlockDTO, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(center.Lat, 'f', 6, 64))
	q.Set("lng", strconv.FormatFloat(center.Lng, 'f', 6, 64))
	q.Set("radius", strconv.Itoa(radiusM))

	blocks, err := c.getBlocks(ctx, blocksPath, q)
	if err != nil {
		return nil, fmt.Errorf("nearby blocks: %w", err)
	}
	return blocks, nil
}

func (c *Client) MyBlocks(ctx context.Context) ([]dto.BlockDTO, error) {
	blocks, err := c.getBlocks(ctx, walkBlocksPath, nil)
	if err != nil {
		return nil, fmt.Errorf("my blocks: %w", err)
	}
	return blocks, nil
}

// getBlocks accepts both {"blocks":[...]} and a bare array.
func (c *Client) getBlocks(ctx context.Context, path string, q url.Values) ([]dto.BlockDTO, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '[' {
		var blocks []dto.BlockDTO
		if err := json.Unmarshal(raw, &blocks); err != nil {
			return nil, fmt.Errorf("decoding blocks: %w", err)
		}
		return blocks, nil
	}
	var resp dto.BlocksResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding blocks: %w", err)
	}
	return resp.Blocks, nil
}

// UploadImage asks for a presigned URL and PUTs data to it.
func (c *Client) UploadImage(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	var presigned dto.PresignedURLResponse
	req := dto.PresignedURLRequest{FileName: fileName, ContentType: contentType}
	if err := c.doJSON(ctx, http.MethodPost, presignedURLPath, nil, req, &presigned); err != nil {
		return "", fmt.Errorf("requesting presigned url: %w", err)
	}
	if presigned.PresignedURL == "" {
		return "", errors.New("requesting presigned url: empty url")
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, presigned.PresignedURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	put.Header.Set("Content-Type", contentType)
	put.ContentLength = int64(len(data))

	resp, err := c.client.Do(put)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("uploading image: %w", &StatusError{Method: http.MethodPut, Path: "presigned", Code: resp.StatusCode, Body: string(body)})
	}

	c.log.Action("upload_image").Debug("image uploaded", "object_key", presigned.ObjectKey, "bytes", len(data))
	return presigned.ObjectKey, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	c.log.Action("rest_call").Debug("request done",
		"method", method, "path", path, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		if len(data) > 512 {
			data = data[:512]
		}
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
