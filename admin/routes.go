package admin

// Remote API routes used by the console
const (
	// Events
	RouteEvents       = "/tm/event"
	RouteEventSummary = "/tm/event/summary"
	RouteEventBlock   = "/tm/event/block/"
	RouteEventUnblock = "/tm/event/unblock/"
	RouteEventFlag    = "/tm/event/flag/"

	// Organizations
	RouteOrgs                = "/tm/org"
	RouteOrgSummary          = "/tm/org/summary"
	RouteOrgPendingVerify    = "/tm/org/pending-verification"
	RouteOrgAdmin            = "/org/admin/"
	RouteOrgAllowPaidEvents  = "/allow-paid-events"
	RouteOrgRejectPaidEvents = "/reject-paid-events"

	// Payments, resources and uploads
	RouteAddPaymentGateway = "/tm/payment/addPaymentGateway"
	RouteResources         = "/util/resources"
	RouteUpload            = "/api/util/upload"
)
