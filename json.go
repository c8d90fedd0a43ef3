package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"contest-rooms/contest"
	"contest-rooms/room"
)

var ErrBadRequest = errors.New("malformed request body")

// UnmarshalJSON decodes an optional JSON body; an empty body yields the zero value.
func UnmarshalJSON[T any](body io.Reader) (T, error) {
	var parsed T
	err := json.NewDecoder(body).Decode(&parsed)
	if err != nil && !errors.Is(err, io.EOF) {
		return parsed, errors.Join(ErrBadRequest, err)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, room.ErrInvalidState), errors.Is(err, room.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, contest.ErrNoProblemsAvailable), errors.Is(err, room.ErrCodeAllocationFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, room.ErrInvalidIdentity), errors.Is(err, room.ErrInvalidProblem), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		LogInternalError(err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
