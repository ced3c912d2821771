// Package httperror centralizes domain error translation to HTTP responses.
package httperror

import (
	"errors"
	"net/http"

	jsonResponse "cortex/internal/transport/http/json"
	dErrors "cortex/pkg/domain-errors"
)

// Response is the error half of the API's union response shape.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and the error response envelope. Unexpected errors become opaque 500s.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		msg := domainErr.Message
		if msg == "" {
			msg = string(domainErr.Code)
		}
		jsonResponse.WriteJSON(w, StatusForCode(domainErr.Code), Response{
			Success: false,
			Error:   msg,
			Code:    string(domainErr.Code),
		})
		return
	}

	jsonResponse.WriteJSON(w, http.StatusInternalServerError, Response{
		Success: false,
		Error:   "internal error",
		Code:    string(dErrors.CodeInternal),
	})
}

// StatusForCode maps domain error codes to HTTP status codes.
func StatusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound, dErrors.CodeModuleNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput,
		dErrors.CodeInvalidPrompt, dErrors.CodePromptTooLong, dErrors.CodeInvalidTaskType:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeModuleAlreadyInstalled:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeModuleNotEnabled:
		return http.StatusForbidden
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeGenerationFailed:
		return http.StatusBadGateway
	case dErrors.CodeModuleInstallFailed, dErrors.CodeUsageRecordFailed, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
