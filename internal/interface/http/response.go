package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError is the error body. Rule and Field are set for rule violations.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
	Field   string `json:"field,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Count     *int      `json:"count,omitempty"`
	Cached    *bool     `json:"cached,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSONWithMeta(w, r, status, data, nil)
}

func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()

	writeEnvelope(w, status, JSONResponse{
		Success:   status < 400,
		Data:      data,
		Meta:      meta,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, apiErr APIError) {
	writeEnvelope(w, status, JSONResponse{
		Success:   false,
		Error:     &apiErr,
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body JSONResponse) {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(JSONResponse{
			Error:     &APIError{Code: "internal_error", Message: "response could not be encoded"},
			RequestID: body.RequestID,
		})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFor maps domain errors to HTTP statuses: rule violations are 422,
// malformed requests 400, unknown entities 404 and conflicts 409.
func statusFor(err error) (int, APIError) {
	if ve, ok := shared.AsValidation(err); ok {
		return http.StatusUnprocessableEntity, APIError{
			Code:    "rule_violation",
			Message: ve.Message,
			Rule:    string(ve.Rule),
			Field:   ve.Field,
		}
	}

	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, APIError{Code: "invalid_input", Message: messageOf(err)}
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity, APIError{Code: "validation_failed", Message: messageOf(err)}
	case shared.IsNotFound(err):
		return http.StatusNotFound, APIError{Code: "not_found", Message: messageOf(err)}
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, APIError{Code: "already_exists", Message: messageOf(err)}
	case errors.Is(err, shared.ErrConcurrentModification):
		return http.StatusConflict, APIError{Code: "conflict", Message: messageOf(err)}
	}
	return http.StatusInternalServerError, APIError{Code: "internal_error", Message: "an unexpected error occurred"}
}

func messageOf(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		if de.Err != nil {
			return de.Message + ": " + de.Err.Error()
		}
		return de.Message
	}
	return err.Error()
}

// respondError writes the mapped error and logs server-side failures.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, apiErr := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed",
			logger.Operation(op),
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Err(err),
		)
	} else {
		s.logger.Debug("request rejected",
			logger.Operation(op),
			logger.Int("status", status),
			logger.String("code", apiErr.Code),
			logger.Rule(apiErr.Rule),
		)
	}
	writeJSONError(w, r, status, apiErr)
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeJSONError(w, r, http.StatusBadRequest, APIError{Code: "invalid_input", Message: message})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func queryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(queryString(r, key))
	return err == nil && v
}

// queryFloat returns 0 when the parameter is absent.
func queryFloat(r *http.Request, key string) (float64, error) {
	raw := queryString(r, key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New(key + " must be a finite number")
	}
	return v, nil
}
