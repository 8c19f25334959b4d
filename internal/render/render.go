// Package render writes HTTP responses for the simulation handlers. Bodies are JSON unless the
// client asks for msgpack, and core errors map onto status codes by kind.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/govsim/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Content types understood by Respond.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// KindInternal labels errors that did not come from the simulation core.
const KindInternal domain.ErrorKind = "internal_error"

// Envelope wraps every successful payload.
type Envelope struct {
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
}

// Metadata accompanies every successful payload.
type Metadata struct {
	Timestamp string `json:"timestamp"`
}

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Error *domain.Error `json:"error"`
}

// WantsMsgpack reports whether the request accepts msgpack.
func WantsMsgpack(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, ContentTypeMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

// Respond encodes v with the representation the request asked for.
func Respond(w http.ResponseWriter, r *http.Request, status int, v interface{}, log zerolog.Logger) {
	if r != nil && WantsMsgpack(r) {
		w.Header().Set("Content-Type", ContentTypeMsgpack)
		w.WriteHeader(status)
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(v); err != nil {
			log.Error().Err(err).Msg("Failed to encode msgpack response")
		}
		return
	}

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Data writes data inside the standard envelope.
func Data(w http.ResponseWriter, r *http.Request, status int, data interface{}, log zerolog.Logger) {
	Respond(w, r, status, Envelope{
		Data:     data,
		Metadata: Metadata{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	}, log)
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindMissingColumns, domain.KindInvalidShockType:
		return http.StatusBadRequest
	case domain.KindInfeasibleBounds, domain.KindInfeasible:
		return http.StatusUnprocessableEntity
	case domain.KindSolver:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an error body. Errors outside the core taxonomy are logged and reported
// without detail.
func Error(w http.ResponseWriter, r *http.Request, err error, log zerolog.Logger) {
	status := StatusFor(err)

	var derr *domain.Error
	if !errors.As(err, &derr) {
		log.Error().Err(err).Msg("Request failed")
		derr = &domain.Error{Kind: KindInternal, Detail: http.StatusText(status)}
	} else if status >= http.StatusInternalServerError {
		log.Warn().Err(err).Str("kind", string(derr.Kind)).Msg("Request failed")
	}

	Respond(w, r, status, ErrorBody{Error: &domain.Error{
		Kind:   derr.Kind,
		Field:  derr.Field,
		Detail: errorDetail(derr),
	}}, log)
}

func errorDetail(e *domain.Error) string {
	if e.Err != nil && e.Detail != "" {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Detail
}

// DecodeJSON reads a JSON request body into v. Unknown fields and trailing data are rejected
// as validation errors.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return domain.NewValidationError("body", "request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "request body is required")
		}
		return domain.NewValidationError("body", "invalid JSON: %v", err)
	}
	if dec.More() {
		return domain.NewValidationError("body", "unexpected data after JSON object")
	}
	return nil
}
