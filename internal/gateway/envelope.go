package gateway

import (
	"encoding/json"
	"strings"

	"github.com/shopstream/storefront/internal/errors"
)

// Envelope is the gateway's uniform response wrapper. Every endpoint answers
// with this shape; nothing downstream ever sees a raw HTTP body.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      *ErrorBody      `json:"error,omitempty"`
	StatusCode int             `json:"statusCode,omitempty"`
}

type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// appError converts a failed envelope into the client error taxonomy. The
// HTTP status decides the category; the gateway's own code and field details
// ride along in Detail so forms can show them inline.
func (e *Envelope) appError(httpStatus int) *errors.AppError {

	statusCode := e.StatusCode
	if statusCode == 0 {
		statusCode = httpStatus
	}

	message := "The shop could not complete the request"
	var detail string

	if e.Error != nil {
		if e.Error.Message != "" {
			message = e.Error.Message
		}

		if len(e.Error.Details) > 0 {
			detail = strings.Join(e.Error.Details, "; ")
		} else if e.Error.Code != "" {
			detail = e.Error.Code
		}
	}

	appErr := errors.FromStatusCode(statusCode, message)
	if detail != "" {
		appErr = appErr.WithDetail(detail)
	}

	return appErr
}
