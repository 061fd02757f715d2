package admin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jrsteele09/ems-console/apiclient"
)

// Requester is the API client surface the admin service needs.
type Requester interface {
	Request(ctx context.Context, method, path string, body any, opts ...apiclient.RequestOption) (*apiclient.Response, error)
}

var _ Requester = (*apiclient.Client)(nil)

// Service exposes the super-admin operations of the remote API as typed calls.
// Business rules (fraud and trust scoring, verification policy) stay on the server.
type Service struct {
	client Requester
}

func New(client Requester) *Service {
	return &Service{client: client}
}

// APIError is an application-level failure: a 2xx response with success=false.
type APIError struct {
	Operation string
	Message   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Operation)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Result is the acknowledgement returned by mutating calls.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Page is the paginated list shape used by the backend.
type Page[T any] struct {
	Docs        []T  `json:"docs"`
	TotalDocs   int  `json:"totalDocs"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	Page        int  `json:"page"`
	HasPrevPage bool `json:"hasPrevPage"`
	HasNextPage bool `json:"hasNextPage"`
	PrevPage    *int `json:"prevPage"`
	NextPage    *int `json:"nextPage"`
}

// call sends the request, turns success=false into *APIError and decodes the
// body into out when out is not nil.
func (s *Service) call(ctx context.Context, op, method, path string, body any, out any, opts ...apiclient.RequestOption) (*Result, error) {
	resp, err := s.client.Request(ctx, method, path, body, opts...)
	if err != nil {
		return nil, err
	}

	var res struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if len(resp.Body) > 0 {
		if err := resp.Decode(&res); err != nil {
			return nil, err
		}
	}
	if res.Success != nil && !*res.Success {
		return nil, &APIError{Operation: op, Message: res.Message}
	}
	if out != nil {
		if err := resp.Decode(out); err != nil {
			return nil, err
		}
	}
	return &Result{Success: true, Message: res.Message}, nil
}

// listQuery is shared by the event and organization filters.
type listQuery struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

func (q listQuery) apply(v url.Values) {
	setIf(v, "search", q.Search)
	sortBy, sortOrder := q.SortBy, q.SortOrder
	if sortBy == "" {
		sortBy = "createdAt"
	}
	if sortOrder == "" {
		sortOrder = "desc"
	}
	v.Set("sortBy", sortBy)
	v.Set("sortOrder", sortOrder)
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setBool(v url.Values, key string, value *bool) {
	if value != nil {
		v.Set(key, strconv.FormatBool(*value))
	}
}
