package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"pawwalk/internal/walk-service/core/myerrors"
)

// jsonResponse writes data as a JSON body with the given status code.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// JsonError writes an error response as JSON with the specified HTTP status code.
func JsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, myerrors.ErrPositionUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, myerrors.ErrAlreadyWalking), errors.Is(err, myerrors.ErrEndInProgress),
		errors.Is(err, myerrors.ErrStartAborted), errors.Is(err, myerrors.ErrNotWalking),
		errors.Is(err, myerrors.ErrAreaActive):
		return http.StatusConflict
	case errors.Is(err, myerrors.ErrSnapshotNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, myerrors.ErrPersistenceFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
