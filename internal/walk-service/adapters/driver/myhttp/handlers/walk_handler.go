package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/ports/driver"
)

type WalkHandler struct {
	walkService driver.IWalkService
	log         mylogger.Logger
	now         func() time.Time
}

func NewWalkHandler(ws driver.IWalkService, log mylogger.Logger) *WalkHandler {
	return &WalkHandler{
		walkService: ws,
		log:         log,
		now:         time.Now,
	}
}

func (h *WalkHandler) Status(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.walkService.Status())
}

func (h *WalkHandler) Start(w http.ResponseWriter, r *http.Request) {
	walkID, err := h.walkService.Start(r.Context())
	if err != nil {
		JsonError(w, statusFor(err), err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"walk_id": walkID})
}

func (h *WalkHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.walkService.End(r.Context()); err != nil {
		h.log.Action("end_walk_http").Error("walk not ended", err)
		JsonError(w, statusFor(err), err)
		return
	}
	jsonResponse(w, http.StatusOK, h.walkService.Status())
}

func (h *WalkHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.walkService.Cancel(); err != nil {
		JsonError(w, statusFor(err), err)
		return
	}
	jsonResponse(w, http.StatusOK, h.walkService.Status())
}

type areaRequest struct {
	AreaKey string `json:"area_key"`
}

// SubscribeArea adds the live feed of one block area, {"area_key":"..."}.
func (h *WalkHandler) SubscribeArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		JsonError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	req.AreaKey = strings.TrimSpace(req.AreaKey)
	if req.AreaKey == "" || strings.ContainsAny(req.AreaKey, "/\n\r") {
		JsonError(w, http.StatusBadRequest, fmt.Errorf("invalid area_key %q", req.AreaKey))
		return
	}

	if err := h.walkService.SubscribeArea(req.AreaKey); err != nil {
		JsonError(w, statusFor(err), err)
		return
	}
	jsonResponse(w, http.StatusOK, h.walkService.Status())
}

func (h *WalkHandler) UnsubscribeArea(w http.ResponseWriter, r *http.Request) {
	h.walkService.UnsubscribeArea()
	jsonResponse(w, http.StatusOK, h.walkService.Status())
}

func (h *WalkHandler) Blocks(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.walkService.Blocks())
}

// Footprints lists the walks of one month, ?year=2026&month=5. Both default
// to the current month.
func (h *WalkHandler) Footprints(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1970 || y > 9999 {
			JsonError(w, http.StatusBadRequest, fmt.Errorf("invalid year %q", v))
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			JsonError(w, http.StatusBadRequest, fmt.Errorf("invalid month %q", v))
			return
		}
		month = m
	}

	fps, err := h.walkService.Footprints(r.Context(), year, time.Month(month))
	if err != nil {
		JsonError(w, http.StatusInternalServerError, err)
		return
	}
	jsonResponse(w, http.StatusOK, fps)
}

func (h *WalkHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	png, err := h.walkService.Preview(r.Context())
	if err != nil {
		JsonError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
