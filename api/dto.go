/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the transport contract. These decouple the engine's
  Presentation type from the wire format: receipt images travel base64
  encoded, choice options carry the index the transport must echo back.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types returned to clients
*/
package api

import (
	"encoding/base64"

	"github.com/ticksnap/credit-engine/engine"
)

// QueryRequest is a free-text payment request from the chat transport.
type QueryRequest struct {
	RequesterID string `json:"requester_id"`
	Text        string `json:"text"`
}

// ChoiceRequest is a disambiguating selection (0-based index).
type ChoiceRequest struct {
	RequesterID string `json:"requester_id"`
	Index       int    `json:"index"`
}

// OptionDTO is one selectable candidate.
type OptionDTO struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// PresentationDTO mirrors engine.Presentation on the wire.
type PresentationDTO struct {
	Kind    string      `json:"kind"`
	Text    string      `json:"text,omitempty"`
	Options []OptionDTO `json:"options,omitempty"`
	Image   string      `json:"image_png_base64,omitempty"`
	Caption string      `json:"caption,omitempty"`

	// Error carries the engine's diagnostic when the presentation reports
	// a failure the operator must act on. The human-readable message is
	// already in Text/Caption.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the shape of transport-level failures (bad JSON,
// unauthorized requester).
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toPresentationDTO(p engine.Presentation, err error) PresentationDTO {
	dto := PresentationDTO{
		Kind:    string(p.Kind),
		Text:    p.Text,
		Caption: p.Caption,
	}
	for _, opt := range p.Options {
		dto.Options = append(dto.Options, OptionDTO{Index: opt.Index, Label: opt.Label})
	}
	if len(p.Image) > 0 {
		dto.Image = base64.StdEncoding.EncodeToString(p.Image)
	}
	if err != nil {
		dto.Error = err.Error()
	}
	return dto
}
