package downstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTimeout     = errors.New("upstream_timeout")
	ErrUnavailable = errors.New("upstream_unavailable")
	ErrRateLimited = errors.New("upstream_rate_limited")
)

// StatusError is a non-2xx answer from the Discovery API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// FetchError is the single error kind a page load surfaces. It names the
// resource that failed; the cause is one of the sentinels above, a
// *StatusError or a decode error.
type FetchError struct {
	Resource Resource
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Kind classifies err for logs and metrics.
func Kind(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.As(err, &se):
		return "status"
	default:
		return "decode"
	}
}

// upstreamError covers both error body shapes the API uses: the gateway
// "fault" object and the "errors" array.
type upstreamError struct {
	Fault *struct {
		FaultString string `json:"faultstring"`
		Detail      struct {
			ErrorCode string `json:"errorcode"`
		} `json:"detail"`
	} `json:"fault"`
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func decodeError(resp *http.Response) error {
	se := &StatusError{
		StatusCode: resp.StatusCode,
		Code:       "upstream_error",
		Message:    fmt.Sprintf("unexpected status: %d", resp.StatusCode),
	}

	var body upstreamError
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return se
	}
	switch {
	case body.Fault != nil && body.Fault.FaultString != "":
		se.Message = body.Fault.FaultString
		if body.Fault.Detail.ErrorCode != "" {
			se.Code = body.Fault.Detail.ErrorCode
		}
	case len(body.Errors) > 0:
		se.Code = body.Errors[0].Code
		se.Message = body.Errors[0].Detail
	}
	return se
}
