package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

// maxRequestBody caps JSON request bodies when the server does not.
const maxRequestBody = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError maps err to its HTTP status through the error code table.
// Server-side failures are masked.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	if code == errors.CodeUnknown || (status >= http.StatusInternalServerError && !exposedServerCode(code)) {
		writeJSON(w, status, ErrorResponse{
			Code:    string(errors.ErrCodeInternal),
			Message: "internal server error",
		})
		return
	}
	resp := ErrorResponse{Code: string(code), Message: errors.Message(err)}
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		resp.Detail = ae.Detail
	}
	writeJSON(w, status, resp)
}

// exposedServerCode lists 5xx codes whose message is safe to show: upstream
// outages and pipeline failures the caller can act on.
func exposedServerCode(code errors.ErrorCode) bool {
	switch code {
	case errors.ErrCodeExternalService,
		errors.ErrCodeDataSourceUnavailable,
		errors.ErrCodeStereoEnumerationFailed,
		errors.ErrCodeEmbeddingFailed,
		errors.ErrCodeDrawingFailed:
		return true
	}
	return false
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid JSON body")
	}
	return nil
}

//Personal.AI order the ending
