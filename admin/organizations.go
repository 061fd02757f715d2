package admin

import (
	"context"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/jrsteele09/ems-console/internal/errors"
)

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Document struct {
	Type       string `json:"type"`
	URL        string `json:"url"`
	Status     string `json:"status,omitempty"`
	UploadedAt string `json:"uploadedAt,omitempty"`
}

type BankDetails struct {
	AccountHolderName string `json:"accountHolderName,omitempty"`
	AccountNumber     string `json:"accountNumber,omitempty"`
	IFSC              string `json:"ifsc,omitempty"`
	BankName          string `json:"bankName,omitempty"`
	RazorpayAccountID string `json:"razorpayAccountId,omitempty"`
	CashfreeAccountID string `json:"cashfreeAccountId,omitempty"`
	PaidEventsAllowed bool   `json:"paidEventsAllowed"`
}

type Organization struct {
	ID             string             `json:"_id"`
	Name           string             `json:"name"`
	Slug           string             `json:"slug,omitempty"`
	Email          string             `json:"email,omitempty"`
	Phone          string             `json:"phone,omitempty"`
	Website        string             `json:"website,omitempty"`
	Logo           string             `json:"logo,omitempty"`
	Category       string             `json:"category,omitempty"`
	SubCategory    string             `json:"subCategory,omitempty"`
	Verified       bool               `json:"verified"`
	IsBlocked      bool               `json:"isBlocked"`
	RiskLevel      string             `json:"riskLevel,omitempty"`
	TrustScore     float64            `json:"trustScore,omitempty"`
	StepsCompleted int                `json:"stepsCompleted,omitempty"`
	Address        *Address           `json:"address,omitempty"`
	Admin          *Contact           `json:"admin,omitempty"`
	SupportContact *Contact           `json:"supportContact,omitempty"`
	SocialLinks    map[string]string  `json:"socialLinks,omitempty"`
	Documents      []Document         `json:"documents,omitempty"`
	BankDetails    *BankDetails       `json:"bankDetails,omitempty"`
	FraudFlags     []FraudFlag        `json:"fraudFlags,omitempty"`
	Stats          map[string]float64 `json:"stats,omitempty"`
	CreatedAt      time.Time          `json:"createdAt,omitempty"`
}

type CategoryCount struct {
	Category string `json:"_id"`
	Count    int    `json:"count"`
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type CityCount struct {
	City  string `json:"_id"`
	Count int    `json:"count"`
}

type OrganizationSummary struct {
	TotalOrganizations                    int             `json:"totalOrganizations"`
	VerifiedOrganizations                 int             `json:"verifiedOrganizations"`
	PendingVerification                   int             `json:"pendingVerification"`
	ActiveOrganizations                   int             `json:"activeOrganizations"`
	TotalEventsHosted                     int             `json:"totalEventsHosted"`
	TotalRevenueGenerated                 float64         `json:"totalRevenueGenerated"`
	AverageRating                         float64         `json:"averageRating"`
	OrganizationsWithHighRating           int             `json:"organizationsWithHighRating"`
	OrganizationsWithDocuments            int             `json:"organizationsWithDocuments"`
	OrganizationsWithBankDetails          int             `json:"organizationsWithBankDetails"`
	OrganizationsWithSocialLinks          int             `json:"organizationsWithSocialLinks"`
	OrganizationsWithLogo                 int             `json:"organizationsWithLogo"`
	OrganizationsWithWebsite              int             `json:"organizationsWithWebsite"`
	OrganizationsWithVerificationRequests int             `json:"organizationsWithVerificationRequests"`
	OrganizationsByCategory               []CategoryCount `json:"organizationsByCategory,omitempty"`
	MonthlyRegistrations                  []MonthlyCount  `json:"monthlyRegistrations,omitempty"`
	TopOrganizations                      []Organization  `json:"topOrganizations,omitempty"`
	RecentlyVerifiedOrganizations         []Organization  `json:"recentlyVerifiedOrganizations,omitempty"`
	MostActiveCities                      []CityCount     `json:"mostActiveCities,omitempty"`
}

// OrgFilter mirrors the query parameters of the organization list screen.
type OrgFilter struct {
	Search    string
	Category  string
	RiskLevel string
	Verified  *bool
	IsBlocked *bool
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

func (f OrgFilter) Values() url.Values {
	v := url.Values{}
	listQuery{Search: f.Search, SortBy: f.SortBy, SortOrder: f.SortOrder, Page: f.Page, Limit: f.Limit}.apply(v)
	setIf(v, "category", f.Category)
	setIf(v, "riskLevel", f.RiskLevel)
	setBool(v, "verified", f.Verified)
	setBool(v, "isBlocked", f.IsBlocked)
	return v
}

// OrgAction is a status action under PATCH /tm/org/{id}/{action}
type OrgAction string

const (
	OrgBlock                OrgAction = "block"
	OrgUnblock              OrgAction = "unblock"
	OrgVerify               OrgAction = "verify"
	OrgUnverify             OrgAction = "unverify"
	OrgFraudFlag            OrgAction = "fraud-flag"
	OrgWarning              OrgAction = "warning"
	OrgBlockEventCreation   OrgAction = "block-event-creation"
	OrgUnblockEventCreation OrgAction = "unblock-event-creation"
)

// OrgActions lists every action in the order the console shows them.
var OrgActions = []OrgAction{
	OrgBlock, OrgUnblock, OrgVerify, OrgUnverify,
	OrgFraudFlag, OrgWarning, OrgBlockEventCreation, OrgUnblockEventCreation,
}

func (a OrgAction) Valid() bool {
	for _, known := range OrgActions {
		if a == known {
			return true
		}
	}
	return false
}

// ActionInput carries the optional dialog fields of an organization action.
type ActionInput struct {
	Reason            string
	BlockType         string
	VerificationNotes string
	Severity          Severity
	Message           string
}

func (in ActionInput) body(action OrgAction) (map[string]string, error) {
	switch action {
	case OrgBlock:
		if in.Reason == "" {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "block requires a reason")
		}
		blockType := in.BlockType
		if blockType == "" {
			blockType = "temporary"
		}
		return map[string]string{"reason": in.Reason, "blockType": blockType}, nil
	case OrgVerify:
		return map[string]string{"verificationNotes": in.VerificationNotes}, nil
	case OrgFraudFlag:
		severity := in.Severity
		if severity == "" {
			severity = SeverityMinor
		}
		if in.Reason == "" || !severity.Valid() {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "fraud flag requires a reason and a valid severity")
		}
		return map[string]string{"reason": in.Reason, "severity": string(severity)}, nil
	case OrgWarning:
		if in.Message == "" {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "warning requires a message")
		}
		return map[string]string{"message": in.Message}, nil
	}
	return nil, nil
}

func (s *Service) ListOrganizations(ctx context.Context, filter OrgFilter) (*Page[Organization], error) {
	var out Page[Organization]
	if _, err := s.call(ctx, "list organizations", http.MethodGet, RouteOrgs+"?"+filter.Values().Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	if id == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	var out struct {
		Data *Organization `json:"data"`
	}
	if _, err := s.call(ctx, "get organization", http.MethodGet, RouteOrgs+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "organization %s", id)
	}
	return out.Data, nil
}

func (s *Service) OrganizationSummary(ctx context.Context) (*OrganizationSummary, error) {
	var out struct {
		Data OrganizationSummary `json:"data"`
	}
	if _, err := s.call(ctx, "organization summary", http.MethodGet, RouteOrgSummary, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// PendingVerifications lists organizations waiting for a verification decision.
func (s *Service) PendingVerifications(ctx context.Context) ([]Organization, error) {
	var out struct {
		Data []Organization `json:"data"`
	}
	if _, err := s.call(ctx, "pending verifications", http.MethodGet, RouteOrgPendingVerify, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// VerifyOrganization approves a pending verification request.
func (s *Service) VerifyOrganization(ctx context.Context, id string) (*Result, error) {
	if id == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	return s.call(ctx, "verify organization", http.MethodPatch, RouteOrgAdmin+url.PathEscape(id)+"/verify", nil, nil)
}

// RejectOrganization declines a pending verification request.
func (s *Service) RejectOrganization(ctx context.Context, id, reason string) (*Result, error) {
	if id == "" || reason == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id and reason are required")
	}
	body := map[string]string{"reason": reason}
	return s.call(ctx, "reject organization", http.MethodPatch, RouteOrgAdmin+url.PathEscape(id)+"/reject", body, nil)
}

// OrganizationAction runs one of the status actions of the organization screen.
func (s *Service) OrganizationAction(ctx context.Context, id string, action OrgAction, in ActionInput) (*Result, error) {
	if id == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	if !action.Valid() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "unknown organization action %q", action)
	}
	body, err := in.body(action)
	if err != nil {
		return nil, err
	}
	var payload any
	if body != nil {
		payload = body
	}
	return s.call(ctx, string(action)+" organization", http.MethodPatch, RouteOrgs+"/"+url.PathEscape(id)+"/"+string(action), payload, nil)
}

func (s *Service) AllowPaidEvents(ctx context.Context, id, razorpayAccountID string) (*Result, error) {
	if id == "" || razorpayAccountID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id and razorpay account id are required")
	}
	body := map[string]string{"razorpayAccountId": razorpayAccountID}
	return s.call(ctx, "allow paid events", http.MethodPatch, RouteOrgs+"/"+url.PathEscape(id)+RouteOrgAllowPaidEvents, body, nil)
}

func (s *Service) RejectPaidEvents(ctx context.Context, id string) (*Result, error) {
	if id == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	return s.call(ctx, "reject paid events", http.MethodPatch, RouteOrgs+"/"+url.PathEscape(id)+RouteOrgRejectPaidEvents, nil, nil)
}
