package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/shelfkeeper/shelfkeeper/internal/errors"
)

// EnvelopeVersion is the version number written in every envelope.
const EnvelopeVersion = 1

// Envelope wraps every JSON response.
type Envelope struct {
	Version int       `json:"v"`
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// EnvelopeTransformer wraps handler output and errors in an Envelope. Bodies
// that are already envelopes pass through.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case *Envelope:
		return body, nil
	case Envelope:
		return &body, nil
	case *APIError:
		return &Envelope{Version: EnvelopeVersion, Success: false, Error: body}, nil
	case *domainerrors.Error:
		return &Envelope{Version: EnvelopeVersion, Success: false, Error: fromError(body)}, nil
	}

	if isErrorStatus(status) {
		// Errors raised outside RegisterErrorHandler, e.g. by huma itself.
		if se, ok := v.(huma.StatusError); ok {
			return &Envelope{
				Version: EnvelopeVersion,
				Error: &APIError{
					status:  se.GetStatus(),
					Code:    statusToCode(se.GetStatus()),
					Message: se.Error(),
				},
			}, nil
		}
	}

	return &Envelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
}

func isErrorStatus(status string) bool {
	return strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5")
}
