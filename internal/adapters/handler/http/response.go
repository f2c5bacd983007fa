package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors to status codes. Anything unrecognized is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidContestID),
		errors.Is(err, domain.ErrUnknownCandidate):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotJoined):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrContestNotFound),
		errors.Is(err, domain.ErrInvalidCode):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrContestInactive),
		errors.Is(err, domain.ErrContestLocked),
		errors.Is(err, domain.ErrAccessCodeTaken):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		writeMessage(w, status, domain.ErrInternal.Error())
		return
	}
	writeMessage(w, status, err.Error())
}
