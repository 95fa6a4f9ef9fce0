package api

import (
	"errors"
	"fmt"
	"net/http"

	"studio/server/internal/export"
	"studio/server/internal/generation"
	"studio/server/internal/ledger"
	"studio/server/internal/model"
	"studio/server/internal/payment"
	"studio/server/internal/publish"
	"studio/server/internal/store"
	"studio/server/internal/view"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"data":     data,
		"trace_id": traceIDFromContext(c),
	})
}

func writeError(c *gin.Context, status int, code, message string, retryable bool, details map[string]any) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			Retryable: retryable,
			Details:   details,
		},
		"trace_id": traceIDFromContext(c),
	})
}

func writeUnauthorized(c *gin.Context) {
	writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", false, nil)
}

type errorMapping struct {
	target    error
	status    int
	code      string
	message   string
	retryable bool
}

var errorMappings = []errorMapping{
	{generation.ErrRequestInFlight, http.StatusConflict, "REQUEST_IN_FLIGHT", "A request for this generator is already running", true},
	{generation.ErrRequestNotFound, http.StatusNotFound, "REQUEST_NOT_FOUND", "Generation request not found", false},
	{generation.ErrUnknownVariant, http.StatusBadRequest, "UNKNOWN_VARIANT", "Unknown generation variant", false},
	{payment.ErrUnknownPackage, http.StatusBadRequest, "UNKNOWN_PACKAGE", "Unknown credit package", false},
	{payment.ErrBelowMinimum, http.StatusBadRequest, "BELOW_MINIMUM", fmt.Sprintf("Por favor, ingresa una cantidad válida (mínimo %d)", payment.MinCustomAmount), false},
	{payment.ErrAboveMaximum, http.StatusBadRequest, "ABOVE_MAXIMUM", fmt.Sprintf("La cantidad máxima por recarga es %d créditos", payment.MaxCustomAmount), false},
	{payment.ErrNoPendingPayment, http.StatusNotFound, "NO_PENDING_PAYMENT", "No pending payment", false},
	{payment.ErrPaymentInProgress, http.StatusConflict, "PAYMENT_IN_PROGRESS", "A payment is being processed", true},
	{payment.ErrValidationFailure, http.StatusUnprocessableEntity, "VALIDATION_FAILURE", "Completa todos los datos de la tarjeta", false},
	{publish.ErrNoContentSelected, http.StatusBadRequest, "NO_CONTENT_SELECTED", "Selecciona contenido para publicar", false},
	{publish.ErrNoPlatforms, http.StatusBadRequest, "NO_PLATFORMS", "Selecciona al menos una plataforma", false},
	{publish.ErrUnknownPlatform, http.StatusBadRequest, "UNKNOWN_PLATFORM", "Unknown social platform", false},
	{view.ErrUnknownTab, http.StatusBadRequest, "UNKNOWN_TAB", "Unknown tab", false},
	{store.ErrNotFound, http.StatusNotFound, "CONTENT_NOT_FOUND", "Content not found", false},
	{export.ErrNoURL, http.StatusNotFound, "CONTENT_NOT_FOUND", "Content has no media to download", false},
	{export.ErrRefusedDestination, http.StatusUnprocessableEntity, "EXPORT_DESTINATION_REFUSED", "Media URL points to a destination that cannot be downloaded", false},
	{export.ErrUpstream, http.StatusBadGateway, "EXPORT_FETCH_FAILED", "Failed to fetch media for download", true},
}

// writeDomainError maps a service error onto the envelope. Unknown errors are
// logged and reported as internal.
func (s *Server) writeDomainError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			var details map[string]any
			var verr *payment.ValidationError
			if errors.As(err, &verr) {
				details = map[string]any{"fields": verr.Fields}
			}
			writeError(c, m.status, m.code, m.message, m.retryable, details)
			return
		}
	}
	s.log.Error("request_failed", "trace_id", traceIDFromContext(c), "path", c.FullPath(), "error", err)
	writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error", true, nil)
}

var (
	emptyInputMessages = map[model.Variant]string{
		model.VariantImage: "Por favor, ingresa una descripción para la imagen",
		model.VariantVideo: "Por favor, ingresa una descripción para el video",
		model.VariantText:  "Por favor, ingresa un tema para el contenido",
	}
	insufficientMessages = map[model.Variant]string{
		model.VariantImage: "Necesitas al menos %d créditos para generar una imagen",
		model.VariantVideo: "Necesitas al menos %d créditos para generar un video",
		model.VariantText:  "Necesitas al menos %d créditos para generar texto",
	}
)

// writeSubmitError reports a rejected generation with the variant-specific
// wording the studio shows.
func (s *Server) writeSubmitError(c *gin.Context, v model.Variant, balance int64, err error) {
	switch {
	case errors.Is(err, generation.ErrEmptyInput):
		writeError(c, http.StatusBadRequest, "EMPTY_INPUT", emptyInputMessages[v], false, nil)
	case errors.Is(err, generation.ErrMissingEndpoint):
		writeError(c, http.StatusUnprocessableEntity, "MISSING_ENDPOINT", "Por favor, configura la URL de tu webhook de n8n", false, nil)
	case errors.Is(err, ledger.ErrInsufficientCredits):
		writeError(c, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS", fmt.Sprintf(insufficientMessages[v], v.CreditCost()), false, map[string]any{
			"balance":  balance,
			"required": v.CreditCost(),
		})
	default:
		s.writeDomainError(c, err)
	}
}
