// Package integrations contains thin clients of hosted services: email, WhatsApp,
// YouTube, geolocation, PDF rendering, payment gateway and AI text generation.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrDisabled is returned by an integration whose credentials are not configured
var ErrDisabled = errors.New("integration is not configured")

// UpstreamError is non-2xx answer from hosted service
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("%s responded with status %d: %s", e.Service, e.Status, body)
}

// resty decodes SetResult only for a JSON Content-Type, upstreams answering
// text/plain would leave the result empty
const jsonContentType = "application/json"

func newClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

func checkResponse(service string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	if resp.IsError() {
		return &UpstreamError{Service: service, Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// HTTPStatus map integration error to the status a handler should answer with
func HTTPStatus(err error) int {
	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream), errors.Is(err, ErrBadAnswer):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
