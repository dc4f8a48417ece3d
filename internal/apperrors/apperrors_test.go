package apperrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHTTPStatuses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    Kind
		wantUserMsg string
	}{
		{"bad request", 400, `{"message":"missing field"}`, KindValidation, "Invalid request."},
		{"unauthorized", 401, ``, KindUnauthorized, "Please log in again."},
		{"forbidden", 403, ``, KindForbidden, "You do not have access to this resource."},
		{"not found", 404, ``, KindNotFound, "Not found."},
		{"conflict", 409, ``, KindConflict, "This item changed elsewhere. Please try again."},
		{"validation", 422, `{"message":"Email already registered"}`, KindValidation, "Request could not be processed."},
		{"rate limited", 429, ``, KindRateLimited, "Too many requests. Please wait a moment."},
		{"server error", 500, ``, KindServer, "Service unavailable. Please try again later."},
		{"bad gateway", 502, ``, KindServer, "Service unavailable. Please try again later."},
		{"teapot falls back to body message", 418, `{"message":"short and stout"}`, KindUnknown, "short and stout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := Map(&HTTPError{StatusCode: tt.status, Body: []byte(tt.body)})
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantKind, appErr.Kind)
			assert.Equal(t, tt.wantUserMsg, appErr.UserMessage)
			assert.Equal(t, tt.status, appErr.StatusCode)
		})
	}
}

func TestMapExtractsServerBody(t *testing.T) {
	appErr := Map(&HTTPError{
		StatusCode: 422,
		Body:       []byte(`{"message":"Email already registered","details":{"field":"email"}}`),
	})

	assert.Equal(t, KindValidation, appErr.Kind)
	assert.Contains(t, appErr.DebugMessage, "Email already registered")
	assert.Equal(t, "Request could not be processed.", appErr.UserMessage)
	require.NotNil(t, appErr.Details)
	assert.Equal(t, "email", appErr.Details["field"])
}

func TestMapClassifiesByShape(t *testing.T) {
	syntaxErr := json.Unmarshal([]byte("{"), &map[string]any{})

	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"context cancelled", context.Canceled, KindCancelled},
		{"wrapped cancellation", fmt.Errorf("round trip: %w", context.Canceled), KindCancelled},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"net timeout", &timeoutError{}, KindTimeout},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindNetwork},
		{"dns error", &net.DNSError{Err: "no such host", Name: "api.voyago.app"}, KindNetwork},
		{"json syntax", syntaxErr, KindMalformedResponse},
		{"truncated body", io.ErrUnexpectedEOF, KindMalformedResponse},
		{"anything else", errors.New("wat"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := Map(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantKind, appErr.Kind)
		})
	}
}

func TestMapIdempotent(t *testing.T) {
	original := Map(&HTTPError{StatusCode: 503, Body: []byte(`{"message":"maintenance"}`)})
	again := Map(original)
	assert.Same(t, original, again)

	classified := Map(context.Canceled)
	assert.Same(t, classified, Map(classified))
}

func TestMapNeverLeaksUnmappedKinds(t *testing.T) {
	valid := make(map[Kind]struct{}, len(Kinds()))
	for _, k := range Kinds() {
		valid[k] = struct{}{}
	}

	inputs := []error{
		errors.New("plain"),
		fmt.Errorf("wrapped: %w", errors.New("inner")),
		&net.OpError{Op: "read", Err: errors.New("reset")},
		&HTTPError{StatusCode: 599},
		&HTTPError{StatusCode: 302},
		context.Canceled,
		io.ErrUnexpectedEOF,
	}
	for _, in := range inputs {
		appErr := Map(in)
		require.NotNil(t, appErr)
		_, known := valid[appErr.Kind]
		assert.True(t, known, "kind %q not in the enumerated set", appErr.Kind)
		assert.NotEmpty(t, appErr.UserMessage)
	}
}

func TestMapNil(t *testing.T) {
	assert.Nil(t, Map(nil))
}

func TestWithUserMessageCopies(t *testing.T) {
	original := New(KindServer, "boom")
	changed := original.WithUserMessage("We are on it.")

	assert.Equal(t, "We are on it.", changed.UserMessage)
	assert.NotEqual(t, original.UserMessage, changed.UserMessage)
	assert.Equal(t, original.Kind, changed.Kind)
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, IsUnauthorized(Map(&HTTPError{StatusCode: 401})))
	assert.True(t, IsCancelled(Map(context.Canceled)))
	assert.True(t, IsTimeout(Map(context.DeadlineExceeded)))
	assert.True(t, IsNetwork(Map(&net.DNSError{Err: "nope"})))
	assert.False(t, IsValidation(Map(errors.New("plain"))))

	// Predicates see through wrapping.
	wrapped := fmt.Errorf("outer: %w", Map(&HTTPError{StatusCode: 401}))
	assert.True(t, IsUnauthorized(wrapped))
}

// timeoutError implements net.Error with Timeout() == true.
type timeoutError struct{}

func (*timeoutError) Error() string   { return "i/o timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }
