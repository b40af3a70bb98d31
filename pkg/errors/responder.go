package errors

import (
	"encoding/json"
	"net/http"

	"tourbook/pkg/logger"
)

// Responder is the single place where errors become HTTP responses.
// In development it returns full error detail; in production it returns the
// specific message only for operational errors and a generic message for
// everything else.
type Responder struct {
	Development bool
	Log         *logger.Logger
}

func NewResponder(development bool, log *logger.Logger) *Responder {
	return &Responder{Development: development, Log: log}
}

type errorBody struct {
	Status  string         `json:"status"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   string         `json:"cause,omitempty"`
}

func (rp *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := AsAppError(err)

	if !appErr.Operational {
		rp.Log.Error("Non-operational error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", appErr.Err,
			"method", r.Method,
			"path", r.URL.Path,
		)
	}

	body := errorBody{
		Status:  statusWord(appErr.HTTPStatus),
		Code:    appErr.Code,
		Message: appErr.Message,
	}

	switch {
	case rp.Development:
		body.Details = appErr.Details
		if appErr.Err != nil {
			body.Cause = appErr.Err.Error()
		}
	case appErr.Operational:
		body.Details = appErr.Details
	default:
		body.Code = CodeInternal
		body.Message = "Something went very wrong!"
	}

	writeJSON(w, appErr.HTTPStatus, body)
}

func statusWord(httpStatus int) string {
	if httpStatus >= 400 && httpStatus < 500 {
		return "fail"
	}
	return "error"
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
