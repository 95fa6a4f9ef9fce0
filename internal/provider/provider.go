// Package provider performs the external media generation call and
// normalizes whatever the endpoint answers into a single URL.
package provider

import (
	"context"
	"errors"

	"studio/server/internal/model"
)

var (
	ErrNetworkFailure            = errors.New("network failure")
	ErrUnrecognizedResponseShape = errors.New("unrecognized response shape")
)

const (
	CategoryNetwork  = "network"
	CategoryResponse = "response"
)

// Error carries both the message shown to the user and the diagnostic detail
// that only goes to logs.
type Error struct {
	Category        string
	Code            string
	Retryable       bool
	UserMessage     string
	InternalMessage string
}

func (e *Error) Error() string {
	if e.InternalMessage != "" {
		return e.Code + ": " + e.InternalMessage
	}
	return e.Code + ": " + e.UserMessage
}

func (e *Error) Unwrap() error {
	switch e.Category {
	case CategoryNetwork:
		return ErrNetworkFailure
	case CategoryResponse:
		return ErrUnrecognizedResponseShape
	}
	return nil
}

type GenerateInput struct {
	Variant  model.Variant
	Prompt   string
	Endpoint string
	TraceID  string
}

type GenerateOutput struct {
	URL string
	// Shape names the response matcher that produced URL.
	Shape string
}

type Adapter interface {
	Generate(ctx context.Context, in GenerateInput) (GenerateOutput, *Error)
}

func networkError(err error) *Error {
	return &Error{
		Category:        CategoryNetwork,
		Code:            "NETWORK_FAILURE",
		Retryable:       true,
		UserMessage:     "Error de conexión con n8n. Verifica tu webhook URL.",
		InternalMessage: err.Error(),
	}
}

func shapeError(v model.Variant, serverMessage, detail string) *Error {
	msg := serverMessage
	if msg == "" {
		msg = genericFailure(v)
	}
	return &Error{
		Category:        CategoryResponse,
		Code:            "UNRECOGNIZED_RESPONSE_SHAPE",
		Retryable:       false,
		UserMessage:     msg,
		InternalMessage: detail,
	}
}

func genericFailure(v model.Variant) string {
	if v == model.VariantVideo {
		return "Error al generar el video"
	}
	return "Error al generar la imagen"
}
