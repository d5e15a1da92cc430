/*
handlers.go - HTTP handlers for the payment engine

PURPOSE:
  Exposes the engine's two operations over HTTP for the chat transport:

    POST /api/queries  {requester_id, text}   free-text payment request
    POST /api/choices  {requester_id, index}  disambiguating selection
    GET  /api/usage                            greeting / format help

REQUEST FLOW:
  1. Decode and validate the JSON body
  2. Check the requester against the injected allow-list (403 before the
     engine is reached)
  3. Delegate to the engine
  4. Serialize the Presentation

ERROR HANDLING:
  Transport-level problems (bad JSON, unauthorized) get an ErrorResponse
  with 400/403. Engine-level outcomes - including operator-correctable
  failures like overpayment and the "ticket issued, logging failed"
  partial state - always ship a usable Presentation with 200: the chat
  transport must show the operator the message either way. The engine's
  diagnostic rides along in the DTO's error field and the server log.
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ticksnap/credit-engine/engine"
)

// Handler holds the dependencies for the HTTP handlers.
type Handler struct {
	Engine *engine.Engine
	Auth   Authorizer
}

// NewHandler creates a handler around the engine and the authorization
// capability.
func NewHandler(eng *engine.Engine, auth Authorizer) *Handler {
	return &Handler{Engine: eng, Auth: auth}
}

// HandleQuery serves POST /api/queries.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RequesterID == "" {
		writeError(w, http.StatusBadRequest, "requester_id is required", nil)
		return
	}
	if !h.Auth.Authorized(req.RequesterID) {
		writeError(w, http.StatusForbidden, "Access denied", nil)
		return
	}

	p, err := h.Engine.HandleQuery(r.Context(), req.RequesterID, req.Text)
	if err != nil && !engine.IsClientError(err) {
		log.Printf("query from %s: %v", req.RequesterID, err)
	}
	writeJSON(w, http.StatusOK, toPresentationDTO(p, err))
}

// HandleChoice serves POST /api/choices.
func (h *Handler) HandleChoice(w http.ResponseWriter, r *http.Request) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RequesterID == "" {
		writeError(w, http.StatusBadRequest, "requester_id is required", nil)
		return
	}
	if !h.Auth.Authorized(req.RequesterID) {
		writeError(w, http.StatusForbidden, "Access denied", nil)
		return
	}

	p, err := h.Engine.HandleChoice(r.Context(), req.RequesterID, req.Index)
	if err != nil && !engine.IsClientError(err) {
		log.Printf("choice from %s: %v", req.RequesterID, err)
	}
	writeJSON(w, http.StatusOK, toPresentationDTO(p, err))
}

// HandleUsage serves GET /api/usage: the greeting the transport shows on
// first contact.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PresentationDTO{
		Kind: string(engine.PresentText),
		Text: engine.UsageMessage,
	})
}

// =============================================================================
// JSON HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
