package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{NewEmptyResponse(404), "empty response (status 404)"},
		{NewApplication("Work has been deleted", 200), `server returned "Work has been deleted" (status 200)`},
		{NewHTTP(503), "unexpected status 503"},
		{NewExhausted("/out/1_p0.png", 3, stderrors.New("timeout")), "failed to download /out/1_p0.png after 3 tries: timeout"},
		{NewNetwork(stderrors.New("connection reset")), "network error: connection reset"},
		{NewIO("create temp file", stderrors.New("denied")), "io error: create temp file: denied"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestIsAndAs(t *testing.T) {
	wrapped := fmt.Errorf("fetch pages for 42: %w", NewApplication("restricted", 403))

	assert.True(t, stderrors.Is(wrapped, Application))
	assert.False(t, stderrors.Is(wrapped, HTTP))
	assert.Equal(t, ErrorTypeApplication, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("plain")))

	cause := stderrors.New("dial tcp: refused")
	assert.True(t, stderrors.Is(NewNetwork(cause), cause))
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeNetwork, ErrorTypeHTTP, ErrorTypeIO, ErrorTypeEmptyResponse}
	for _, typ := range retryable {
		assert.True(t, IsRetryable(typ), typ)
	}

	permanent := []ErrorType{ErrorTypeApplication, ErrorTypeParse, ErrorTypeExhausted, ErrorType("other")}
	for _, typ := range permanent {
		assert.False(t, IsRetryable(typ), typ)
	}
}
