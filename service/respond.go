package service

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/Mohammedsanin/NeuroBlock/errors"
)

// errorResponse is the JSON envelope for every non-2xx answer.
type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeJSON marshals v with a status code. Marshal failures fall back to a
// plain 500 since the envelope itself cannot be trusted at that point.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"response encoding failed","status":500}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeJSONError maps err onto the builder's status table and writes the
// error envelope. All handlers report failures through here so the mapping
// lives in exactly one place.
func (s *Server) writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		// 500 details stay in the logs. 502/503 keep their messages
		// because the UI explains backend outages with them.
		message = "internal error"
	}

	s.metrics.RecordError("service", errors.Classify(err).String())
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err)
	} else {
		s.logger.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err)
	}

	writeJSON(w, status, errorResponse{Error: message, Status: status})
}

// httpStatusFor maps the error taxonomy onto HTTP status codes. Order
// matters: the sentinel checks run before the broad class predicates
// because most sentinels are themselves classified invalid.
func httpStatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.IsNotFound(err), stderrors.Is(err, errors.ErrUnknownStage):
		return http.StatusNotFound
	case errors.IsDuplicateStage(err):
		return http.StatusConflict
	case errors.IsAlreadyInProgress(err):
		return http.StatusConflict
	case errors.IsNotReady(err):
		return http.StatusConflict
	case errors.IsSessionExpired(err):
		return http.StatusGone
	case errors.IsImportRejected(err):
		return http.StatusUnprocessableEntity
	case errors.IsTrainingFailed(err):
		return http.StatusBadGateway
	case errors.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.IsValidation(err), errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-capped JSON body into dst, rejecting unknown
// fields so typos surface as 400s instead of silent no-ops.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	data, err := s.readBody(r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.NewValidation("body", "request body is required")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidation("body", "invalid JSON: %v", err)
	}
	return nil
}

// readBody reads a size-capped raw body (used by import, which validates
// the JSON itself).
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	limited := io.LimitReader(r.Body, s.maxBody+1)

	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.NewValidation("body", "read failed: %v", err)
	}
	if int64(len(data)) > s.maxBody {
		return nil, errors.NewValidation("body", "request body exceeds %d bytes", s.maxBody)
	}
	return data, nil
}
