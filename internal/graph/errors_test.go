package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTokenProblem(t *testing.T) {
	tests := []struct {
		message string
		code    int
		want    bool
	}{
		{"Invalid OAuth access token.", 0, true},
		{"Session has expired on Tuesday", 0, true},
		{"Error validating access token: expired", 0, true},
		{"anything", 190, true},
		{"Invalid parameter", 100, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isTokenProblem(tt.message, tt.code), tt.message)
	}
}

func TestUpstreamErrorWrapping(t *testing.T) {
	err := fmt.Errorf("fetch insights: %w", newUpstreamError(400, &apiError{Message: "Invalid OAuth access token.", Code: 190}))
	assert.True(t, IsTokenExpired(err))

	plain := fmt.Errorf("fetch insights: %w", newUpstreamError(500, nil))
	assert.False(t, IsTokenExpired(plain))
	assert.Contains(t, plain.Error(), "unknown upstream error")
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &TransportError{Op: "media", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.True(t, isTransport(fmt.Errorf("x: %w", err)))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "success", Classify(nil))
	assert.Equal(t, "token_expired", Classify(newUpstreamError(400, &apiError{Code: 190})))
	assert.Equal(t, "transport_error", Classify(&TransportError{Op: "media", Cause: errors.New("eof")}))
	assert.Equal(t, "upstream_error", Classify(newUpstreamError(500, nil)))
}
