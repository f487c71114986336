package threads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// oauthErrorCode is the Graph API code for an invalid or expired access token.
const oauthErrorCode = 190

// permanentInsightsMarkers identify insights failures that will never succeed
// for the same post: deleted posts, revoked scopes, unsupported objects.
var permanentInsightsMarkers = []string{
	"does not exist",
	"missing permissions",
	"unsupported get request",
}

// APIError is a non-2xx answer from the Threads API.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("threads api: %s", e.Message)
}

// IsUnauthorized reports whether err means the access token was rejected.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.Code == oauthErrorCode
}

// IsPermanentInsightsError reports whether an insights failure marks the post
// as permanently inaccessible. Matching is case-insensitive on the upstream
// message; everything else is transient.
func IsPermanentInsightsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	msg = strings.ToLower(msg)
	for _, marker := range permanentInsightsMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// breakerFailure reports whether err should count against the circuit breaker.
// Per-object 4xx answers (deleted post, bad token) say nothing about API health.
func breakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
