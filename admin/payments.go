package admin

import (
	"context"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/internal/utils"
)

type paymentGatewayRequest struct {
	OrgID             string  `json:"orgId"`
	RazorpayAccountID *string `json:"razorpayAccountId,omitempty"`
	CashfreeAccountID *string `json:"cashfreeAccountId,omitempty"`
}

// AddPaymentGateway links payment gateway accounts to an organization.
// At least one of the account ids must be set; empty ones are left out of the body.
func (s *Service) AddPaymentGateway(ctx context.Context, orgID, razorpayAccountID, cashfreeAccountID string) (*Result, error) {
	if orgID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	if razorpayAccountID == "" && cashfreeAccountID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "at least one payment gateway account id is required")
	}
	body := paymentGatewayRequest{
		OrgID:             orgID,
		RazorpayAccountID: utils.PtrIfSet(razorpayAccountID),
		CashfreeAccountID: utils.PtrIfSet(cashfreeAccountID),
	}
	return s.call(ctx, "add payment gateway", http.MethodPost, RouteAddPaymentGateway, body, nil)
}

// UpdateBankDetails replaces the bank details of an organization.
func (s *Service) UpdateBankDetails(ctx context.Context, orgID string, details BankDetails) (*Result, error) {
	if orgID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	body := map[string]BankDetails{"bankDetails": details}
	return s.call(ctx, "update bank details", http.MethodPost, RouteOrgs+"/"+url.PathEscape(orgID), body, nil)
}
