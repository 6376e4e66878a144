package server

import (
	"encoding/json"
	"net/http"

	"cvanalyzer/internal/analysis"
	"cvanalyzer/internal/errors"
)

// statusFor maps an error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeNoResultYet:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized, errors.ErrCodeMissingAPIKey:
		return http.StatusUnauthorized
	case errors.ErrCodeRequestInFlight:
		return http.StatusConflict
	case errors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeUnsupportedFormat, errors.ErrCodeUnsupportedEncoding:
		return http.StatusUnsupportedMediaType
	case errors.ErrCodeEmptyDocument:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeOracleUnavailable, errors.ErrCodeOracleMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an ErrorBody. Client errors are logged at info,
// everything else as an error. Internal details never reach the body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	body := analysis.ErrorBody{Error: code, Class: "service"}
	if errors.IsClientError(err) {
		body.Class = "client"
	}

	if appErr, ok := errors.As(err); ok {
		body.Message = appErr.Message
	} else {
		body.Message = "internal server error"
	}

	if body.Class == "client" {
		s.Logger.Info("Request rejected",
			"endpoint", r.URL.Path,
			"code", code,
			"message", body.Message)
	} else {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path)
	}

	writeJSON(w, statusFor(code), body)
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, an encode error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}
