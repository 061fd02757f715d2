package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/internal/utils"
)

// Severity grades a fraud flag
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

type FraudFlag struct {
	Reason    string     `json:"reason"`
	Severity  Severity   `json:"severity"`
	FlaggedAt *time.Time `json:"flaggedAt,omitempty"`
	Resolved  bool       `json:"resolved,omitempty"`
}

// OrgRef is the organization embedded in an event. The backend sends either
// a populated object or just the id.
type OrgRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
	Logo string `json:"logo,omitempty"`
}

func (o *OrgRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*o = OrgRef{ID: id}
		return nil
	}
	type plain OrgRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = OrgRef(p)
	return nil
}

type Event struct {
	ID                 string      `json:"_id"`
	Title              string      `json:"title"`
	Slug               string      `json:"slug,omitempty"`
	Status             string      `json:"status,omitempty"`
	Category           string      `json:"category,omitempty"`
	Type               string      `json:"type,omitempty"`
	Mode               string      `json:"mode,omitempty"`
	Tags               []string    `json:"tags,omitempty"`
	BannerImage        string      `json:"bannerImage,omitempty"`
	IsBlocked          bool        `json:"isBlocked"`
	IsPublished        bool        `json:"isPublished"`
	Featured           bool        `json:"featured"`
	Fraudulent         bool        `json:"fraudulent"`
	FraudFlags         []FraudFlag `json:"fraudFlags,omitempty"`
	ViewCount          int         `json:"viewCount"`
	TotalRegistrations int         `json:"totalRegistrations"`
	Organization       *OrgRef     `json:"organization,omitempty"`
	RegistrationStart  *time.Time  `json:"registrationStart,omitempty"`
	RegistrationEnd    *time.Time  `json:"registrationEnd,omitempty"`
	CreatedAt          time.Time   `json:"createdAt,omitempty"`
	UpdatedAt          time.Time   `json:"updatedAt,omitempty"`
}

type EventSummary struct {
	TotalEvents              int     `json:"totalEvents"`
	PublishedEvents          int     `json:"publishedEvents"`
	DraftEvents              int     `json:"draftEvents"`
	CompletedEvents          int     `json:"completedEvents"`
	CancelledEvents          int     `json:"cancelledEvents"`
	BlockedEvents            int     `json:"blockedEvents"`
	FeaturedEvents           int     `json:"featuredEvents"`
	PublicEvents             int     `json:"publicEvents"`
	PrivateEvents            int     `json:"privateEvents"`
	OnlineEvents             int     `json:"onlineEvents"`
	OfflineEvents            int     `json:"offlineEvents"`
	HybridEvents             int     `json:"hybridEvents"`
	FraudulentEvents         int     `json:"fraudulentEvents"`
	MinorFraudEvents         int     `json:"minorFraudEvents"`
	MajorFraudEvents         int     `json:"majorFraudEvents"`
	CriticalFraudEvents      int     `json:"criticalFraudEvents"`
	TotalFraudFlags          int     `json:"totalFraudFlags"`
	TotalRegistrations       int     `json:"totalRegistrations"`
	TotalTicketsSold         int     `json:"totalTicketsSold"`
	TotalViewCount           int     `json:"totalViewCount"`
	OpenRegistrationEvents   int     `json:"openRegistrationEvents"`
	ClosedRegistrationEvents int     `json:"closedRegistrationEvents"`
	TopViewedEvents          []Event `json:"topViewedEvents,omitempty"`
	TopRegisteredEvents      []Event `json:"topRegisteredEvents,omitempty"`
}

// EventFilter mirrors the query parameters of the event list screen.
// Nil booleans are left out of the query.
type EventFilter struct {
	Search     string
	Category   string
	Status     string
	OrgID      string
	IsBlocked  *bool
	Featured   *bool
	Fraudulent *bool
	SortBy     string
	SortOrder  string
	Page       int
	Limit      int
}

func (f EventFilter) Values() url.Values {
	v := url.Values{}
	listQuery{Search: f.Search, SortBy: f.SortBy, SortOrder: f.SortOrder, Page: f.Page, Limit: f.Limit}.apply(v)
	setIf(v, "category", f.Category)
	setIf(v, "status", f.Status)
	setIf(v, "orgId", f.OrgID)
	setBool(v, "isBlocked", f.IsBlocked)
	setBool(v, "featured", f.Featured)
	setBool(v, "fraudulent", f.Fraudulent)
	return v
}

func (s *Service) ListEvents(ctx context.Context, filter EventFilter) (*Page[Event], error) {
	var out struct {
		Events Page[Event] `json:"events"`
	}
	if _, err := s.call(ctx, "list events", http.MethodGet, RouteEvents+"?"+filter.Values().Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out.Events, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	if id == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "event id is required")
	}
	var out struct {
		Event *Event `json:"event"`
	}
	if _, err := s.call(ctx, "get event", http.MethodGet, RouteEvents+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	if out.Event == nil {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "event %s", id)
	}
	return out.Event, nil
}

func (s *Service) EventSummary(ctx context.Context) (*EventSummary, error) {
	var out struct {
		Summary EventSummary `json:"summary"`
	}
	if _, err := s.call(ctx, "event summary", http.MethodGet, RouteEventSummary, nil, &out); err != nil {
		return nil, err
	}
	return &out.Summary, nil
}

func (s *Service) BlockEvent(ctx context.Context, id, reason string) (*Result, error) {
	if id == "" || reason == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "event id and reason are required")
	}
	body := map[string]string{"reason": reason}
	return s.call(ctx, "block event", http.MethodPatch, RouteEventBlock+url.PathEscape(id), body, nil)
}

func (s *Service) UnblockEvent(ctx context.Context, id string) (*Result, error) {
	if id == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "event id is required")
	}
	return s.call(ctx, "unblock event", http.MethodPatch, RouteEventUnblock+url.PathEscape(id), nil, nil)
}

func (s *Service) FlagEvent(ctx context.Context, id, reason string, severity Severity) (*Result, error) {
	if id == "" || reason == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "event id and reason are required")
	}
	if severity == "" {
		severity = SeverityMinor
	}
	if !severity.Valid() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "unknown severity %q", severity)
	}
	body := map[string]string{"reason": reason, "severity": string(severity)}
	return s.call(ctx, "flag event", http.MethodPatch, RouteEventFlag+url.PathEscape(id), body, nil)
}

// BoolFilter parses "true"/"false" into a filter value; anything else is unset.
func BoolFilter(s string) *bool {
	switch s {
	case "true", "yes", "1":
		return utils.Ptr(true)
	case "false", "no", "0":
		return utils.Ptr(false)
	}
	return nil
}
