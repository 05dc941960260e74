package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformed wraps responses that parsed as something other than the
// expected payload shape.
var ErrMalformed = errors.New("malformed upstream response")

// APIError is a non-2xx upstream response. Status and Header are kept so
// the backoff policy can classify the failure and honor rate-limit headers.
type APIError struct {
	Status int
	Header http.Header
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("upstream API error %d: %s", e.Status, body)
}
