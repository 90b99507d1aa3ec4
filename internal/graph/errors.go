package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTokenExpired matches any UpstreamError flagged as a token problem.
var ErrTokenExpired = errors.New("graph: access token expired or invalid")

const unknownUpstreamError = "unknown upstream error"

// oauthExceptionCode is what the Graph API reports for invalid or expired tokens.
const oauthExceptionCode = 190

var tokenHints = []string{"access token", "session has expired", "error validating access token"}

// TransportError means the request never produced an HTTP response:
// DNS, connect, TLS, timeout, cancellation or an open circuit.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("graph transport error on %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// UpstreamError is a non-200 response or a body carrying an error object.
type UpstreamError struct {
	HTTPStatus   int
	Code         int
	Type         string
	Message      string
	TokenExpired bool
}

func (e *UpstreamError) Error() string {
	if e.TokenExpired {
		return fmt.Sprintf("graph upstream error (status %d, token expired): %s", e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("graph upstream error (status %d): %s", e.HTTPStatus, e.Message)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrTokenExpired && e.TokenExpired
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func newUpstreamError(status int, e *apiError) *UpstreamError {
	ue := &UpstreamError{HTTPStatus: status, Message: unknownUpstreamError}
	if e != nil {
		ue.Code = e.Code
		ue.Type = e.Type
		if e.Message != "" {
			ue.Message = e.Message
		}
	}
	ue.TokenExpired = isTokenProblem(ue.Message, ue.Code)
	return ue
}

func isTokenProblem(message string, code int) bool {
	if code == oauthExceptionCode {
		return true
	}
	lower := strings.ToLower(message)
	for _, hint := range tokenHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// IsTokenExpired reports whether err carries a token-flagged UpstreamError.
func IsTokenExpired(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

func isTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
