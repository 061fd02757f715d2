package admin

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/ems-console/internal/errors"
)

// Resource is a help or marketing asset shown to organizers.
type Resource struct {
	ID          string   `json:"_id,omitempty"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Priority    int      `json:"priority"`
	Active      bool     `json:"active"`
	Link        string   `json:"link,omitempty"`
}

func (r Resource) validate() error {
	var missing []string
	if r.Title == "" {
		missing = append(missing, "title")
	}
	if r.Type == "" {
		missing = append(missing, "type")
	}
	if r.URL == "" {
		missing = append(missing, "url")
	}
	if len(missing) > 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "resource %s required", strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) CreateResource(ctx context.Context, r Resource) (*Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if r.Priority == 0 {
		r.Priority = 1
	}
	return s.call(ctx, "create resource", http.MethodPost, RouteResources, r, nil)
}
