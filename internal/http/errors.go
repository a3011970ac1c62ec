package http

import (
	"context"
	"errors"
	"net/http"

	"bolsya/internal/advisor"
	"bolsya/internal/core"
	"bolsya/internal/log"
)

// statusFor maps a service error onto an HTTP status and the message the
// client sees. Unknown errors are 500 with a generic message.
func statusFor(err error) (int, errorResponse, string) {
	var (
		badReq *badRequestError
		verr   *core.ValidationError
		aerr   *advisor.Error
	)
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, errorResponse{Error: badReq.Error()}, log.ErrorTypeValidation
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Field: verr.Field}, log.ErrorTypeValidation
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid email or password"}, log.ErrorTypeAuth
	case errors.Is(err, core.ErrProtectedCategory):
		return http.StatusForbidden, errorResponse{Error: core.ErrProtectedCategory.Error()}, log.ErrorTypeForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}, log.ErrorTypeNotFound
	case errors.Is(err, core.ErrDuplicateEmail):
		return http.StatusConflict, errorResponse{Error: core.ErrDuplicateEmail.Error()}, log.ErrorTypeConflict
	case errors.Is(err, core.ErrConstraint):
		return http.StatusConflict, errorResponse{Error: "request conflicts with stored data"}, log.ErrorTypeConflict
	case errors.As(err, &aerr):
		switch aerr.Kind {
		case advisor.KindQuotaExceeded:
			return http.StatusTooManyRequests, errorResponse{Error: aerr.Error()}, log.ErrorTypeUpstream
		case advisor.KindModelUnavailable:
			return http.StatusServiceUnavailable, errorResponse{Error: aerr.Error()}, log.ErrorTypeUpstream
		default:
			return http.StatusBadGateway, errorResponse{Error: aerr.Error()}, log.ErrorTypeUpstream
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Error: "request timed out"}, log.ErrorTypeInternal
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}, log.ErrorTypeInternal
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body, errType := statusFor(err)

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	fields := log.NewFields().WithError(err, errType).WithHTTPRequest(r.Method, r.URL.Path, "", "")
	if userID, ok := authUserID(r); ok {
		fields = fields.WithUser(userID)
	}
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	writeJSON(w, r, status, body)
}
