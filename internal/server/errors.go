package server

import (
	"errors"
	"net/http"

	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/journal"
	"github.com/raakeshmj/coreenginedb/internal/middleware"
	"github.com/raakeshmj/coreenginedb/internal/payment"
	"github.com/raakeshmj/coreenginedb/internal/service"
	"github.com/raakeshmj/coreenginedb/internal/webhook"
)

// knownErrors maps domain errors to the status they are reported with.
// The reason code is the sentinel's text.
var knownErrors = []struct {
	err    error
	status int
}{
	{docstore.ErrMissingIfMatch, http.StatusBadRequest},
	{docstore.ErrPreconditionFailed, http.StatusPreconditionFailed},
	{docstore.ErrInvalidJSON, http.StatusBadRequest},
	{docstore.ErrExpectedArray, http.StatusBadRequest},
	{docstore.ErrExpectedObject, http.StatusBadRequest},
	{docstore.ErrSchemaInvalid, http.StatusBadRequest},
	{docstore.ErrEmptyWriteDenied, http.StatusBadRequest},
	{journal.ErrNoJournal, http.StatusBadRequest},
	{journal.ErrInvalidDay, http.StatusBadRequest},
	{service.ErrBadRequest, http.StatusBadRequest},
	{service.ErrBadCredentials, http.StatusUnauthorized},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrInvalidCode, http.StatusForbidden},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrRateLimited, http.StatusTooManyRequests},
	{webhook.ErrInvalidSignature, http.StatusBadRequest},
	{webhook.ErrMissingFields, http.StatusUnprocessableEntity},
	{webhook.ErrUserNotFound, http.StatusNotFound},
	{payment.ErrNotConfigured, http.StatusNotImplemented},
	{payment.ErrProvider, http.StatusBadGateway},
}

// fail reports err to the caller. Unrecognised errors become a 500 with
// fallback as the reason and are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		middleware.WriteError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large")
		return
	}
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			middleware.WriteError(w, r, k.status, k.err.Error())
			return
		}
	}
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "reason", fallback, "error", err)
	middleware.WriteError(w, r, http.StatusInternalServerError, fallback)
}
