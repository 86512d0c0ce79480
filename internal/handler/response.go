package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"cryptonary/referral-service/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain sentinel errors onto HTTP statuses. Anything
// unrecognized is an internal error and the detail stays out of the response.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPromoterNotFound),
		errors.Is(err, service.ErrProgramNotFound),
		errors.Is(err, service.ErrNoCommissionToRefund):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSelfReferral),
		errors.Is(err, service.ErrBelowProgramMinimum),
		errors.Is(err, service.ErrInvalidCommissionRate),
		errors.Is(err, service.ErrZeroAmountPaid),
		errors.Is(err, service.ErrInvalidPaymentAddress):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSONBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return io.EOF
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// userIDFromRequest reads the authenticated user id injected by the edge
// proxy. Authentication itself happens upstream.
func userIDFromRequest(r *http.Request) (uint64, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
