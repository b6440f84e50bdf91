package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"signal-simulation-service/internal/api/dto"
	"signal-simulation-service/internal/domain"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/services"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxSignalBodyBytes = 64 << 10

// Coordinates are bounded well past any world size so distances stay exact in
// float64; timestamps stay within the range JSON clients represent exactly.
const signalSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["x", "y", "timestamp"],
  "additionalProperties": false,
  "properties": {
    "x": {"type": "integer", "minimum": -1000000000, "maximum": 1000000000},
    "y": {"type": "integer", "minimum": -1000000000, "maximum": 1000000000},
    "timestamp": {"type": "integer", "minimum": 0, "maximum": 9007199254740991}
  }
}`

var signalSchema = jsonschema.MustCompileString("signal.schema.json", signalSchemaJSON)

type SignalHandler struct {
	Processor *services.SignalProcessor
}

// Ingest accepts one signal event, computes tower arrivals, and hands the
// bundle off to the locator. The response only confirms acceptance.
func (h *SignalHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSignalBodyBytes))
	defer r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "unreadable request body")
		return
	}

	// Numbers stay json.Number so integer checks see the literal, not a float64.
	var doc any
	schemaDec := json.NewDecoder(bytes.NewReader(body))
	schemaDec.UseNumber()
	if err := schemaDec.Decode(&doc); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := signalSchema.Validate(doc); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid signal: "+schemaErrorMessage(err))
		return
	}

	var req dto.SignalRequest

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}
	if req.X == nil || req.Y == nil || req.Timestamp == nil {
		writeError(w, r, http.StatusBadRequest, "x, y and timestamp are required")
		return
	}

	signal := domain.SignalEvent{X: *req.X, Y: *req.Y, Timestamp: *req.Timestamp}

	if _, err := h.Processor.Process(r.Context(), signal); err != nil {
		switch {
		case errors.Is(err, domain.ErrNoTowers):
			writeError(w, r, http.StatusUnprocessableEntity, "no towers initialized")
		case errors.Is(err, domain.ErrArrivalOutOfRange):
			writeError(w, r, http.StatusUnprocessableEntity, "arrival time out of range")
		case errors.Is(err, domain.ErrStoreUnreachable):
			writeError(w, r, http.StatusServiceUnavailable, "tower store unavailable")
		default:
			logging.FromContext(r.Context()).ErrorContext(r.Context(), "process signal failed", slog.String("error", err.Error()))
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, r, http.StatusAccepted, dto.SignalResponse{Status: "received"})
}

// schemaErrorMessage flattens a validation error to its leaf causes.
func schemaErrorMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}

	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}
