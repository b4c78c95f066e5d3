package myhttp

import (
	"net/http"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/adapters/driver/myhttp/handlers"
	"pawwalk/internal/walk-service/adapters/driver/myhttp/middleware"
)

func Router(h *handlers.Handlers, token string, log mylogger.Logger) http.Handler {
	mux := http.NewServeMux()
	mdl := middleware.NewAuthMiddleware(token)

	mux.Handle("GET /walk", mdl.Wrap(http.HandlerFunc(h.WalkHandler.Status)))
	mux.Handle("POST /walk/start", mdl.Wrap(http.HandlerFunc(h.WalkHandler.Start)))
	mux.Handle("POST /walk/end", mdl.Wrap(http.HandlerFunc(h.WalkHandler.End)))
	mux.Handle("POST /walk/cancel", mdl.Wrap(http.HandlerFunc(h.WalkHandler.Cancel)))
	mux.Handle("POST /walk/area", mdl.Wrap(http.HandlerFunc(h.WalkHandler.SubscribeArea)))
	mux.Handle("DELETE /walk/area", mdl.Wrap(http.HandlerFunc(h.WalkHandler.UnsubscribeArea)))
	mux.Handle("GET /blocks", mdl.Wrap(http.HandlerFunc(h.WalkHandler.Blocks)))
	mux.Handle("GET /footprints", mdl.Wrap(http.HandlerFunc(h.WalkHandler.Footprints)))
	mux.Handle("GET /snapshot.png", mdl.Wrap(http.HandlerFunc(h.WalkHandler.Snapshot)))

	// websocket routes
	mux.Handle("GET /ws/blocks", mdl.Wrap(http.HandlerFunc(h.Dispatcher.WsHandler)))

	return middleware.Logging(log, mux)
}
