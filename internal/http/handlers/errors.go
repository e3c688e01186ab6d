package handlers

import (
	"net/http"

	"crowdfund/internal/domain"
	"crowdfund/internal/middleware"
)

type fieldHint struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Code      string      `json:"code"`
	Kind      string      `json:"kind,omitempty"`
	Cause     string      `json:"cause,omitempty"`
	Message   string      `json:"message"`
	Fields    []fieldHint `json:"fields,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindNotOwner:
		return http.StatusForbidden
	case domain.KindTransactionRejected:
		return http.StatusConflict
	case domain.KindLedgerUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindTransactionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// error writes a plain coded error for failures outside the ledger domain.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	a.json(w, status, map[string]any{"error": errorBody{
		Code:      code,
		Message:   message,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}})
}

// fail writes err as a localized error response.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	e, ok := domain.AsError(err)
	if !ok {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("unclassified handler error")
		msg, _ := a.Catalog.Message(locale, domain.CodeUnknown)
		a.error(w, r, http.StatusInternalServerError, string(domain.CodeUnknown), msg)
		return
	}
	body := errorBody{
		Code:      string(e.Code),
		Kind:      string(e.Kind),
		Cause:     string(e.Cause),
		Message:   a.Catalog.ErrorMessage(locale, e),
		Retryable: e.Retryable(),
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}
	for _, f := range e.Fields {
		msg, _ := a.Catalog.Message(locale, f.Code)
		body.Fields = append(body.Fields, fieldHint{Field: f.Field, Code: string(f.Code), Message: msg})
	}
	if body.Code == "" {
		body.Code = string(domain.CodeUnknown)
	}
	a.json(w, statusFor(e.Kind), map[string]any{"error": body})
}
