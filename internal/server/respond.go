package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/auth"
	"github.com/jonathan/resume-optimizer/internal/logging"
	"github.com/jonathan/resume-optimizer/internal/server/middleware"
)

// maxJSONBody bounds JSON request bodies. Job descriptions are the largest field.
const maxJSONBody = 1 << 20

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn(r.Context(), "failed to encode response", "error", err)
	}
}

// fail classifies err, logs it with the request context and writes the error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := Classify(err)

	args := []any{
		"route", r.Pattern,
		"method", r.Method,
		"status", apiErr.Status,
		"kind", apiErr.Kind,
	}
	if user, ok := middleware.UserFrom(r.Context()); ok {
		args = append(args, "user_id", user.ID)
	}
	if apiErr.Cause != nil {
		args = append(args, "error", apiErr.Cause)
	}
	if apiErr.Status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", args...)
	} else {
		s.logger.Info(r.Context(), "request rejected", args...)
	}

	s.writeError(w, r, apiErr)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	s.jsonResponse(w, r, apiErr.Status, errorBody{
		Error:     apiErr.Kind,
		Message:   apiErr.Message,
		RequestID: logging.RequestID(r.Context()),
	})
}

// decodeJSON reads a bounded JSON body into dst and validates its struct tags.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return badRequest(KindValidation, "Request body must be JSON.")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &APIError{Status: http.StatusRequestEntityTooLarge, Kind: KindValidation, Message: "Request body is too large.", Cause: err}
		case errors.Is(err, io.EOF):
			return badRequest(KindValidation, "Request body is required.")
		default:
			return &APIError{Status: http.StatusBadRequest, Kind: KindValidation, Message: "Invalid request body.", Cause: err}
		}
	}
	if err := s.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// currentUser returns the user resolved by the auth middleware. Handlers are
// only mounted behind it, so a missing user is a wiring bug.
func currentUser(r *http.Request) *auth.User {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		panic("server: handler mounted without auth middleware")
	}
	return user
}
