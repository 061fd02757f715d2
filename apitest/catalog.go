package apitest

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fraudFlag struct {
	Reason    string    `json:"reason"`
	Severity  string    `json:"severity"`
	FlaggedAt time.Time `json:"flaggedAt"`
	Resolved  bool      `json:"resolved"`
}

type orgRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type event struct {
	ID                 string      `json:"_id"`
	Title              string      `json:"title"`
	Status             string      `json:"status"`
	Category           string      `json:"category"`
	Type               string      `json:"type"`
	Mode               string      `json:"mode"`
	IsBlocked          bool        `json:"isBlocked"`
	BlockReason        string      `json:"blockReason,omitempty"`
	IsPublished        bool        `json:"isPublished"`
	Featured           bool        `json:"featured"`
	Fraudulent         bool        `json:"fraudulent"`
	FraudFlags         []fraudFlag `json:"fraudFlags"`
	ViewCount          int         `json:"viewCount"`
	TotalRegistrations int         `json:"totalRegistrations"`
	Organization       orgRef      `json:"organization"`
	CreatedAt          time.Time   `json:"createdAt"`
}

type bankDetails struct {
	AccountHolderName string `json:"accountHolderName,omitempty"`
	AccountNumber     string `json:"accountNumber,omitempty"`
	IFSC              string `json:"ifsc,omitempty"`
	BankName          string `json:"bankName,omitempty"`
	RazorpayAccountID string `json:"razorpayAccountId,omitempty"`
	CashfreeAccountID string `json:"cashfreeAccountId,omitempty"`
	PaidEventsAllowed bool   `json:"paidEventsAllowed"`
}

type organization struct {
	ID                   string       `json:"_id"`
	Name                 string       `json:"name"`
	Email                string       `json:"email"`
	Category             string       `json:"category"`
	Verified             bool         `json:"verified"`
	VerificationPending  bool         `json:"verificationPending"`
	VerificationNotes    string       `json:"verificationNotes,omitempty"`
	IsBlocked            bool         `json:"isBlocked"`
	BlockType            string       `json:"blockType,omitempty"`
	EventCreationBlocked bool         `json:"eventCreationBlocked"`
	RiskLevel            string       `json:"riskLevel"`
	TrustScore           float64      `json:"trustScore"`
	Warnings             []string     `json:"warnings,omitempty"`
	FraudFlags           []fraudFlag  `json:"fraudFlags"`
	BankDetails          *bankDetails `json:"bankDetails,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
}

type resource struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Priority    int      `json:"priority"`
	Active      bool     `json:"active"`
	Link        string   `json:"link,omitempty"`
}

type upload struct {
	Folder string
	Name   string
	Size   int
}

// catalog is the in-memory domain data behind the admin endpoints.
type catalog struct {
	lock      sync.RWMutex
	events    map[string]*event
	orgs      map[string]*organization
	resources []resource
	uploads   []upload
}

func newCatalog() *catalog {
	c := &catalog{
		events: make(map[string]*event),
		orgs:   make(map[string]*organization),
	}
	base := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	orgs := []*organization{
		{Name: "Campus Tech Society", Email: "tech@campus.edu", Category: "education", Verified: true, RiskLevel: "low", TrustScore: 92},
		{Name: "Night Owl Events", Email: "hello@nightowl.io", Category: "entertainment", RiskLevel: "medium", TrustScore: 61, VerificationPending: true},
		{Name: "QuickTix Promotions", Email: "ops@quicktix.biz", Category: "business", RiskLevel: "high", TrustScore: 23, VerificationPending: true},
	}
	for i, o := range orgs {
		o.ID = uuid.NewString()
		o.FraudFlags = []fraudFlag{}
		o.CreatedAt = base.AddDate(0, i, 0)
		c.orgs[o.ID] = o
	}

	events := []*event{
		{Title: "Hack the Campus", Status: "published", Category: "technology", Type: "public", Mode: "offline", IsPublished: true, Featured: true, ViewCount: 1200, TotalRegistrations: 340, Organization: ref(orgs[0])},
		{Title: "Intro to Go Workshop", Status: "completed", Category: "technology", Type: "public", Mode: "online", IsPublished: true, ViewCount: 430, TotalRegistrations: 88, Organization: ref(orgs[0])},
		{Title: "Midnight Rave", Status: "published", Category: "music", Type: "public", Mode: "offline", IsPublished: true, ViewCount: 2100, TotalRegistrations: 510, Organization: ref(orgs[1])},
		{Title: "Crypto Riches Seminar", Status: "draft", Category: "business", Type: "private", Mode: "hybrid", Fraudulent: true, ViewCount: 75, TotalRegistrations: 4, Organization: ref(orgs[2]),
			FraudFlags: []fraudFlag{{Reason: "Reported as a pyramid scheme", Severity: "major", FlaggedAt: base}}},
	}
	for i, e := range events {
		e.ID = uuid.NewString()
		if e.FraudFlags == nil {
			e.FraudFlags = []fraudFlag{}
		}
		e.CreatedAt = base.AddDate(0, 0, 7*i)
		c.events[e.ID] = e
	}
	return c
}

func ref(o *organization) orgRef {
	return orgRef{ID: o.ID, Name: o.Name}
}

// pageDoc is the paginated list shape of the backend.
type pageDoc[T any] struct {
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

func paginate[T any](items []T, page, limit int) pageDoc[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	total := len(items)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	p := pageDoc[T]{
		Docs:        append([]T{}, items[start:end]...),
		TotalDocs:   total,
		Limit:       limit,
		TotalPages:  pages,
		Page:        page,
		HasPrevPage: page > 1,
		HasNextPage: page < pages,
	}
	if p.HasPrevPage {
		prev := page - 1
		p.PrevPage = &prev
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	return p
}

type listParams struct {
	search    string
	sortBy    string
	sortOrder string
	page      int
	limit     int
}

func (lp listParams) matches(fields ...string) bool {
	if lp.search == "" {
		return true
	}
	needle := strings.ToLower(lp.search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func sortByCreated[T any](items []T, desc bool, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return created(items[i]).After(created(items[j]))
		}
		return created(items[i]).Before(created(items[j]))
	})
}
