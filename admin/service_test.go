package admin_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jrsteele09/ems-console/admin"
	"github.com/jrsteele09/ems-console/apiclient"
	"github.com/jrsteele09/ems-console/apitest"
	"github.com/jrsteele09/ems-console/internal/config"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv     *apitest.Server
	client  *apiclient.Client
	service *admin.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv, err := apitest.New(apitest.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(config.Static{BaseURL: srv.URL}, token.NewStore(), apiclient.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	_, err = client.Login(context.Background(), apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)

	return &fixture{srv: srv, client: client, service: admin.New(client)}
}

func TestEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	hackID := f.srv.EventID("Hack the Campus")
	require.NotEmpty(t, hackID)

	t.Run("list", func(t *testing.T) {
		page, err := f.service.ListEvents(ctx, admin.EventFilter{})
		require.NoError(t, err)
		require.Equal(t, 4, page.TotalDocs)
		require.Len(t, page.Docs, 4)
		require.Equal(t, 1, page.Page)
		require.False(t, page.HasNextPage)
	})

	t.Run("list with filters and paging", func(t *testing.T) {
		page, err := f.service.ListEvents(ctx, admin.EventFilter{Category: "technology", Limit: 1})
		require.NoError(t, err)
		require.Equal(t, 2, page.TotalDocs)
		require.Equal(t, 2, page.TotalPages)
		require.True(t, page.HasNextPage)
		require.NotNil(t, page.NextPage)
		require.Equal(t, 2, *page.NextPage)

		page, err = f.service.ListEvents(ctx, admin.EventFilter{Fraudulent: admin.BoolFilter("true")})
		require.NoError(t, err)
		require.Len(t, page.Docs, 1)
		require.Equal(t, "Crypto Riches Seminar", page.Docs[0].Title)
		require.Equal(t, "QuickTix Promotions", page.Docs[0].Organization.Name)
	})

	t.Run("get", func(t *testing.T) {
		ev, err := f.service.GetEvent(ctx, hackID)
		require.NoError(t, err)
		require.Equal(t, "Hack the Campus", ev.Title)

		_, err = f.service.GetEvent(ctx, "does-not-exist")
		require.ErrorIs(t, err, apperrors.ErrNotFound)

		_, err = f.service.GetEvent(ctx, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("block and unblock", func(t *testing.T) {
		_, err := f.service.BlockEvent(ctx, hackID, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)

		res, err := f.service.BlockEvent(ctx, hackID, "Copyright complaint")
		require.NoError(t, err)
		require.Equal(t, "Event blocked", res.Message)

		ev, err := f.service.GetEvent(ctx, hackID)
		require.NoError(t, err)
		require.True(t, ev.IsBlocked)

		_, err = f.service.UnblockEvent(ctx, hackID)
		require.NoError(t, err)
		ev, err = f.service.GetEvent(ctx, hackID)
		require.NoError(t, err)
		require.False(t, ev.IsBlocked)
	})

	t.Run("flag", func(t *testing.T) {
		_, err := f.service.FlagEvent(ctx, hackID, "Fake tickets", "catastrophic")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)

		_, err = f.service.FlagEvent(ctx, hackID, "Fake tickets", "")
		require.NoError(t, err)
		ev, err := f.service.GetEvent(ctx, hackID)
		require.NoError(t, err)
		require.True(t, ev.Fraudulent)
		require.Len(t, ev.FraudFlags, 1)
		require.Equal(t, admin.SeverityMinor, ev.FraudFlags[0].Severity)
	})

	t.Run("summary", func(t *testing.T) {
		summary, err := f.service.EventSummary(ctx)
		require.NoError(t, err)
		require.Equal(t, 4, summary.TotalEvents)
		require.Equal(t, 2, summary.PublishedEvents)
		require.Equal(t, 1, summary.HybridEvents)
	})
}

func TestOrganizations(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	campusID := f.srv.OrgID("Campus Tech Society")
	nightOwlID := f.srv.OrgID("Night Owl Events")
	quickTixID := f.srv.OrgID("QuickTix Promotions")

	t.Run("list", func(t *testing.T) {
		page, err := f.service.ListOrganizations(ctx, admin.OrgFilter{Verified: admin.BoolFilter("false")})
		require.NoError(t, err)
		require.Equal(t, 2, page.TotalDocs)

		page, err = f.service.ListOrganizations(ctx, admin.OrgFilter{Search: "campus"})
		require.NoError(t, err)
		require.Len(t, page.Docs, 1)
		require.Equal(t, campusID, page.Docs[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		org, err := f.service.GetOrganization(ctx, campusID)
		require.NoError(t, err)
		require.True(t, org.Verified)

		_, err = f.service.GetOrganization(ctx, "missing")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("pending verification decisions", func(t *testing.T) {
		pending, err := f.service.PendingVerifications(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 2)

		_, err = f.service.VerifyOrganization(ctx, nightOwlID)
		require.NoError(t, err)
		_, err = f.service.RejectOrganization(ctx, quickTixID, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		_, err = f.service.RejectOrganization(ctx, quickTixID, "Documents unreadable")
		require.NoError(t, err)

		pending, err = f.service.PendingVerifications(ctx)
		require.NoError(t, err)
		require.Empty(t, pending)

		// Nothing left to decide: the backend answers success=false
		_, err = f.service.VerifyOrganization(ctx, nightOwlID)
		var httpErr *apiclient.HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	})

	t.Run("actions", func(t *testing.T) {
		_, err := f.service.OrganizationAction(ctx, quickTixID, "explode", admin.ActionInput{})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		_, err = f.service.OrganizationAction(ctx, quickTixID, admin.OrgWarning, admin.ActionInput{})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)

		for _, action := range admin.OrgActions {
			in := admin.ActionInput{Reason: "Chargebacks", Message: "Final warning", Severity: admin.SeverityCritical}
			res, err := f.service.OrganizationAction(ctx, quickTixID, action, in)
			require.NoError(t, err, action)
			require.True(t, strings.HasSuffix(res.Message, string(action)))
		}

		org, err := f.service.GetOrganization(ctx, quickTixID)
		require.NoError(t, err)
		require.Len(t, org.FraudFlags, 1)
		require.Equal(t, admin.SeverityCritical, org.FraudFlags[0].Severity)
	})

	t.Run("paid events", func(t *testing.T) {
		_, err := f.service.AllowPaidEvents(ctx, campusID, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)

		_, err = f.service.AllowPaidEvents(ctx, campusID, "acc_123")
		require.NoError(t, err)
		org, err := f.service.GetOrganization(ctx, campusID)
		require.NoError(t, err)
		require.True(t, org.BankDetails.PaidEventsAllowed)
		require.Equal(t, "acc_123", org.BankDetails.RazorpayAccountID)

		_, err = f.service.RejectPaidEvents(ctx, campusID)
		require.NoError(t, err)
		org, err = f.service.GetOrganization(ctx, campusID)
		require.NoError(t, err)
		require.False(t, org.BankDetails.PaidEventsAllowed)
	})

	t.Run("summary", func(t *testing.T) {
		summary, err := f.service.OrganizationSummary(ctx)
		require.NoError(t, err)
		require.Equal(t, 3, summary.TotalOrganizations)
		require.Equal(t, 4, summary.TotalEventsHosted)
	})
}

func TestPaymentsAndResources(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	orgID := f.srv.OrgID("Night Owl Events")

	t.Run("gateway needs an account", func(t *testing.T) {
		_, err := f.service.AddPaymentGateway(ctx, orgID, "", "")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		require.Zero(t, f.srv.Hits(http.MethodPost, admin.RouteAddPaymentGateway))
	})

	t.Run("gateway", func(t *testing.T) {
		_, err := f.service.AddPaymentGateway(ctx, orgID, "", "cf_42")
		require.NoError(t, err)
		org, err := f.service.GetOrganization(ctx, orgID)
		require.NoError(t, err)
		require.Equal(t, "cf_42", org.BankDetails.CashfreeAccountID)
		require.Empty(t, org.BankDetails.RazorpayAccountID)
	})

	t.Run("bank details", func(t *testing.T) {
		_, err := f.service.UpdateBankDetails(ctx, orgID, admin.BankDetails{BankName: "Test Bank", IFSC: "TEST0001"})
		require.NoError(t, err)
		org, err := f.service.GetOrganization(ctx, orgID)
		require.NoError(t, err)
		require.Equal(t, "Test Bank", org.BankDetails.BankName)
	})

	t.Run("resource", func(t *testing.T) {
		_, err := f.service.CreateResource(ctx, admin.Resource{Title: "Guide"})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		require.Contains(t, err.Error(), "type, url")

		res, err := f.service.CreateResource(ctx, admin.Resource{Title: "Guide", Type: "pdf", URL: "https://cdn.example.com/guide.pdf", Active: true})
		require.NoError(t, err)
		require.Equal(t, "Resource created", res.Message)
	})

	t.Run("upload", func(t *testing.T) {
		url, err := f.service.Upload(ctx, "banner.png", "events", strings.NewReader("png-bytes"))
		require.NoError(t, err)
		require.Contains(t, url, "/files/events/")
		require.True(t, strings.HasSuffix(url, "banner.png"))
		require.Equal(t, 1, f.srv.Uploads())

		_, err = f.service.Upload(ctx, "banner.png", "", strings.NewReader("x"))
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})
}

func TestDashboard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("loads every panel", func(t *testing.T) {
		overview, err := f.service.Dashboard(ctx)
		require.NoError(t, err)
		require.Equal(t, 4, overview.Events.TotalEvents)
		require.Equal(t, 3, overview.Orgs.TotalOrganizations)
		require.Len(t, overview.Pending, 2)
	})

	t.Run("expired token refreshes once for all panels", func(t *testing.T) {
		f.srv.ExpireTokens()
		_, err := f.service.Dashboard(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, f.srv.RefreshCalls())
	})

	t.Run("failure surfaces", func(t *testing.T) {
		f.srv.ExpireTokens()
		f.srv.FailRefresh(true)
		_, err := f.service.Dashboard(ctx)
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	})
}

func TestForbiddenForRegularUsers(t *testing.T) {
	srv, err := apitest.New(apitest.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer srv.Close()

	client, err := apiclient.New(config.Static{BaseURL: srv.URL}, token.NewStore(), apiclient.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	_, err = client.Login(context.Background(), apitest.UserEmail, apitest.UserPassword)
	require.NoError(t, err)

	_, err = admin.New(client).EventSummary(context.Background())
	var httpErr *apiclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	require.Zero(t, srv.RefreshCalls())
}
