package apperrors

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// HTTPError carries a non-2xx response into the mapper. The transport client
// constructs one from the status code and the raw response body; Map extracts
// the server's message and details from a JSON error body when present.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, truncate(string(e.Body), 200))
}

// Map normalizes any failure into an *AppError. It is a pure function:
// no I/O, deterministic for identical inputs, and idempotent — feeding an
// *AppError back in returns it unchanged.
func Map(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return mapHTTP(httpErr)
	}

	return classify(err)
}

// serverErrorBody is the error envelope backends return alongside 4xx/5xx.
type serverErrorBody struct {
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details"`
}

func mapHTTP(httpErr *HTTPError) *AppError {
	kind := kindForStatus(httpErr.StatusCode)

	var body serverErrorBody
	serverMessage := ""
	if len(httpErr.Body) > 0 {
		if jsonErr := json.Unmarshal(httpErr.Body, &body); jsonErr == nil {
			serverMessage = body.Message
			if serverMessage == "" {
				serverMessage = body.Error
			}
		}
	}

	debug := fmt.Sprintf("http %d", httpErr.StatusCode)
	if serverMessage != "" {
		debug = fmt.Sprintf("http %d: %s", httpErr.StatusCode, serverMessage)
	}

	userMessage, ok := userMessageForStatus(httpErr.StatusCode)
	if !ok {
		// No table entry: fall back to the body's own message, then to
		// the generic copy for the kind.
		userMessage = serverMessage
		if userMessage == "" {
			userMessage = defaultUserMessage(kind)
		}
	}

	return &AppError{
		Kind:         kind,
		DebugMessage: debug,
		UserMessage:  userMessage,
		StatusCode:   httpErr.StatusCode,
		Details:      body.Details,
		Cause:        httpErr,
	}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// userMessageForStatus is the fixed status-to-copy table. The second return
// reports whether the table has an entry for the status.
func userMessageForStatus(status int) (string, bool) {
	switch {
	case status == http.StatusBadRequest:
		return "Invalid request.", true
	case status == http.StatusUnauthorized:
		return "Please log in again.", true
	case status == http.StatusForbidden:
		return "You do not have access to this resource.", true
	case status == http.StatusNotFound:
		return "Not found.", true
	case status == http.StatusConflict:
		return "This item changed elsewhere. Please try again.", true
	case status == http.StatusUnprocessableEntity:
		return "Request could not be processed.", true
	case status == http.StatusTooManyRequests:
		return "Too many requests. Please wait a moment.", true
	case status >= 500:
		return "Service unavailable. Please try again later.", true
	default:
		return "", false
	}
}

// classify maps a non-HTTP failure by its shape. Order matters: a cancelled
// *url.Error wraps context.Canceled, so cancellation is checked before the
// net.Error timeout test.
func classify(err error) *AppError {
	switch {
	case errors.Is(err, context.Canceled):
		return Wrap(KindCancelled, "request cancelled: "+err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(KindTimeout, "deadline exceeded: "+err.Error(), err)
	case isTLSFailure(err):
		return Wrap(KindTLSFailure, "tls handshake failed: "+err.Error(), err)
	case isTimeout(err):
		return Wrap(KindTimeout, "request timed out: "+err.Error(), err)
	case isNetworkFailure(err):
		return Wrap(KindNetwork, "network failure: "+err.Error(), err)
	case isDecodeFailure(err):
		return Wrap(KindMalformedResponse, "malformed response: "+err.Error(), err)
	default:
		return Wrap(KindUnknown, err.Error(), err)
	}
}

func isTLSFailure(err error) bool {
	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		certInvalid x509.CertificateInvalidError
	)
	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) ||
		errors.As(err, &certInvalid) {
		return true
	}
	// The standard library wraps some handshake failures in plain errors.
	return strings.Contains(err.Error(), "tls: ")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkFailure(err error) bool {
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	return errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, net.ErrClosed)
}

func isDecodeFailure(err error) bool {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
