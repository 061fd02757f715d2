package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/ems-console/internal/errors"
)

// Response is a completed 2xx call. The body has already been read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidResponse, "empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidResponse, "decode: %s", err.Error())
	}
	return nil
}

func (r *Response) result() (*Response, error) {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return r, nil
	}
	return nil, newHTTPError(r)
}

// HTTPError is a non-2xx response passed back to the caller unchanged.
type HTTPError struct {
	StatusCode int
	Message    string
	Header     http.Header
	Body       []byte
	RequestID  string
}

func newHTTPError(r *Response) *HTTPError {
	e := &HTTPError{
		StatusCode: r.StatusCode,
		Header:     r.Header,
		Body:       r.Body,
		RequestID:  r.RequestID,
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(r.Body, &payload) == nil {
		e.Message = payload.Message
	}
	return e
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case apperrors.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case apperrors.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// RefreshError is returned to every request waiting on a refresh that failed.
// It unwraps to the refresh call's own error.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s: %v", apperrors.ErrRefreshFailed, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

func (e *RefreshError) Is(target error) bool {
	return target == apperrors.ErrRefreshFailed
}
