package apitest

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadSize = 10 << 20

func (s *Server) initDomainRoutes(r chi.Router) {
	r.Route("/tm/event", func(rr chi.Router) {
		rr.Get("/", s.listEvents)
		rr.Get("/summary", s.eventSummary)
		rr.Get("/{id}", s.getEvent)
		rr.Patch("/block/{id}", s.blockEvent)
		rr.Patch("/unblock/{id}", s.unblockEvent)
		rr.Patch("/flag/{id}", s.flagEvent)
	})
	r.Route("/tm/org", func(rr chi.Router) {
		rr.Get("/", s.listOrgs)
		rr.Get("/summary", s.orgSummary)
		rr.Get("/pending-verification", s.pendingOrgs)
		rr.Get("/{id}", s.getOrg)
		rr.Post("/{id}", s.updateOrgBank)
		rr.Patch("/{id}/allow-paid-events", s.allowPaidEvents)
		rr.Patch("/{id}/reject-paid-events", s.rejectPaidEvents)
		rr.Patch("/{id}/{action}", s.orgAction)
	})
	r.Patch("/org/admin/{id}/{decision}", s.orgDecision)
	r.Post("/tm/payment/addPaymentGateway", s.addPaymentGateway)
	r.Post("/util/resources", s.createResource)
	r.Post("/api/util/upload", s.upload)
}

func params(r *http.Request) listParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return listParams{
		search:    q.Get("search"),
		sortBy:    q.Get("sortBy"),
		sortOrder: q.Get("sortOrder"),
		page:      page,
		limit:     limit,
	}
}

// boolParam reports whether the query value is absent or equals want.
func boolParam(r *http.Request, key string, want bool) bool {
	v := r.URL.Query().Get(key)
	return v == "" || v == strconv.FormatBool(want)
}

func strParam(r *http.Request, key, want string) bool {
	v := r.URL.Query().Get(key)
	return v == "" || strings.EqualFold(v, want)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	lp := params(r)
	s.catalog.lock.RLock()
	items := make([]event, 0, len(s.catalog.events))
	for _, e := range s.catalog.events {
		if !lp.matches(e.Title, e.Organization.Name) ||
			!strParam(r, "status", e.Status) ||
			!strParam(r, "category", e.Category) ||
			!strParam(r, "orgId", e.Organization.ID) ||
			!boolParam(r, "isBlocked", e.IsBlocked) ||
			!boolParam(r, "featured", e.Featured) ||
			!boolParam(r, "fraudulent", e.Fraudulent) {
			continue
		}
		items = append(items, *e)
	}
	s.catalog.lock.RUnlock()

	sortByCreated(items, lp.sortOrder != "asc", func(e event) time.Time { return e.CreatedAt })
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "events": paginate(items, lp.page, lp.limit)})
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	s.catalog.lock.RLock()
	e, ok := s.catalog.events[chi.URLParam(r, "id")]
	var out event
	if ok {
		out = *e
	}
	s.catalog.lock.RUnlock()
	if !ok {
		writeFailure(w, http.StatusNotFound, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "event": out})
}

func (s *Server) eventSummary(w http.ResponseWriter, r *http.Request) {
	s.catalog.lock.RLock()
	defer s.catalog.lock.RUnlock()

	summary := map[string]int{}
	for _, e := range s.catalog.events {
		summary["totalEvents"]++
		summary[e.Status+"Events"]++
		summary[e.Type+"Events"]++
		summary[e.Mode+"Events"]++
		summary["totalRegistrations"] += e.TotalRegistrations
		summary["totalViewCount"] += e.ViewCount
		if e.IsBlocked {
			summary["blockedEvents"]++
		}
		if e.Featured {
			summary["featuredEvents"]++
		}
		if e.Fraudulent {
			summary["fraudulentEvents"]++
		}
		for _, f := range e.FraudFlags {
			summary["totalFraudFlags"]++
			summary[f.Severity+"FraudEvents"]++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": summary})
}

// withEvent runs fn on the event under the write lock.
func (s *Server) withEvent(w http.ResponseWriter, id, message string, fn func(e *event) string) {
	s.catalog.lock.Lock()
	e, ok := s.catalog.events[id]
	var failure string
	if ok {
		failure = fn(e)
	}
	s.catalog.lock.Unlock()

	switch {
	case !ok:
		writeFailure(w, http.StatusNotFound, "Event not found")
	case failure != "":
		writeFailure(w, http.StatusBadRequest, failure)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
	}
}

func (s *Server) blockEvent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	decodeBody(r, &in)
	s.withEvent(w, chi.URLParam(r, "id"), "Event blocked", func(e *event) string {
		if in.Reason == "" {
			return "Reason is required"
		}
		e.IsBlocked, e.BlockReason = true, in.Reason
		return ""
	})
}

func (s *Server) unblockEvent(w http.ResponseWriter, r *http.Request) {
	s.withEvent(w, chi.URLParam(r, "id"), "Event unblocked", func(e *event) string {
		e.IsBlocked, e.BlockReason = false, ""
		return ""
	})
}

func (s *Server) flagEvent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason   string `json:"reason"`
		Severity string `json:"severity"`
	}
	decodeBody(r, &in)
	s.withEvent(w, chi.URLParam(r, "id"), "Event flagged", func(e *event) string {
		if in.Reason == "" {
			return "Reason is required"
		}
		e.Fraudulent = true
		e.FraudFlags = append(e.FraudFlags, fraudFlag{Reason: in.Reason, Severity: in.Severity, FlaggedAt: NowTimeFunc().UTC()})
		return ""
	})
}

func (s *Server) listOrgs(w http.ResponseWriter, r *http.Request) {
	lp := params(r)
	s.catalog.lock.RLock()
	items := make([]organization, 0, len(s.catalog.orgs))
	for _, o := range s.catalog.orgs {
		if !lp.matches(o.Name, o.Email) ||
			!strParam(r, "category", o.Category) ||
			!strParam(r, "riskLevel", o.RiskLevel) ||
			!boolParam(r, "verified", o.Verified) ||
			!boolParam(r, "isBlocked", o.IsBlocked) {
			continue
		}
		items = append(items, *o)
	}
	s.catalog.lock.RUnlock()

	sortByCreated(items, lp.sortOrder != "asc", func(o organization) time.Time { return o.CreatedAt })
	page := paginate(items, lp.page, lp.limit)
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		pageDoc[organization]
	}{true, page})
}

func (s *Server) getOrg(w http.ResponseWriter, r *http.Request) {
	s.catalog.lock.RLock()
	o, ok := s.catalog.orgs[chi.URLParam(r, "id")]
	var out organization
	if ok {
		out = *o
	}
	s.catalog.lock.RUnlock()
	if !ok {
		writeFailure(w, http.StatusNotFound, "Organization not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (s *Server) orgSummary(w http.ResponseWriter, r *http.Request) {
	s.catalog.lock.RLock()
	defer s.catalog.lock.RUnlock()

	summary := map[string]any{}
	total, verified, pending, active, withBank := 0, 0, 0, 0, 0
	for _, o := range s.catalog.orgs {
		total++
		if o.Verified {
			verified++
		}
		if o.VerificationPending {
			pending++
		}
		if !o.IsBlocked {
			active++
		}
		if o.BankDetails != nil {
			withBank++
		}
	}
	summary["totalOrganizations"] = total
	summary["verifiedOrganizations"] = verified
	summary["pendingVerification"] = pending
	summary["activeOrganizations"] = active
	summary["organizationsWithBankDetails"] = withBank
	summary["totalEventsHosted"] = len(s.catalog.events)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": summary})
}

func (s *Server) pendingOrgs(w http.ResponseWriter, r *http.Request) {
	s.catalog.lock.RLock()
	items := make([]organization, 0)
	for _, o := range s.catalog.orgs {
		if o.VerificationPending {
			items = append(items, *o)
		}
	}
	s.catalog.lock.RUnlock()
	sortByCreated(items, false, func(o organization) time.Time { return o.CreatedAt })
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": items})
}

// withOrg runs fn on the organization under the write lock.
func (s *Server) withOrg(w http.ResponseWriter, id, message string, fn func(o *organization) string) {
	s.catalog.lock.Lock()
	o, ok := s.catalog.orgs[id]
	var failure string
	if ok {
		failure = fn(o)
	}
	s.catalog.lock.Unlock()

	switch {
	case !ok:
		writeFailure(w, http.StatusNotFound, "Organization not found")
	case failure != "":
		writeFailure(w, http.StatusBadRequest, failure)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
	}
}

type orgActionBody struct {
	Reason            string `json:"reason"`
	BlockType         string `json:"blockType"`
	VerificationNotes string `json:"verificationNotes"`
	Severity          string `json:"severity"`
	Message           string `json:"message"`
	RazorpayAccountID string `json:"razorpayAccountId"`
}

func (s *Server) orgAction(w http.ResponseWriter, r *http.Request) {
	var in orgActionBody
	decodeBody(r, &in)
	action := chi.URLParam(r, "action")
	s.withOrg(w, chi.URLParam(r, "id"), "Organization updated: "+action, func(o *organization) string {
		switch action {
		case "block":
			o.IsBlocked, o.BlockType = true, in.BlockType
		case "unblock":
			o.IsBlocked, o.BlockType = false, ""
		case "verify":
			o.Verified, o.VerificationPending, o.VerificationNotes = true, false, in.VerificationNotes
		case "unverify":
			o.Verified = false
		case "fraud-flag":
			o.FraudFlags = append(o.FraudFlags, fraudFlag{Reason: in.Reason, Severity: in.Severity, FlaggedAt: NowTimeFunc().UTC()})
		case "warning":
			o.Warnings = append(o.Warnings, in.Message)
		case "block-event-creation":
			o.EventCreationBlocked = true
		case "unblock-event-creation":
			o.EventCreationBlocked = false
		default:
			return "Unknown action " + action
		}
		return ""
	})
}

func (s *Server) orgDecision(w http.ResponseWriter, r *http.Request) {
	var in orgActionBody
	decodeBody(r, &in)
	decision := chi.URLParam(r, "decision")
	s.withOrg(w, chi.URLParam(r, "id"), "Organization "+decision+" complete", func(o *organization) string {
		if !o.VerificationPending {
			return "Organization has no pending verification request"
		}
		switch decision {
		case "verify":
			o.Verified, o.VerificationPending = true, false
		case "reject":
			if in.Reason == "" {
				return "Reason is required"
			}
			o.VerificationPending, o.VerificationNotes = false, in.Reason
		default:
			return "Unknown decision " + decision
		}
		return ""
	})
}

func (s *Server) allowPaidEvents(w http.ResponseWriter, r *http.Request) {
	var in orgActionBody
	decodeBody(r, &in)
	s.withOrg(w, chi.URLParam(r, "id"), "Paid events allowed", func(o *organization) string {
		if in.RazorpayAccountID == "" {
			return "razorpayAccountId is required"
		}
		if o.BankDetails == nil {
			o.BankDetails = &bankDetails{}
		}
		o.BankDetails.RazorpayAccountID, o.BankDetails.PaidEventsAllowed = in.RazorpayAccountID, true
		return ""
	})
}

func (s *Server) rejectPaidEvents(w http.ResponseWriter, r *http.Request) {
	s.withOrg(w, chi.URLParam(r, "id"), "Paid events rejected", func(o *organization) string {
		if o.BankDetails != nil {
			o.BankDetails.PaidEventsAllowed = false
		}
		return ""
	})
}

func (s *Server) updateOrgBank(w http.ResponseWriter, r *http.Request) {
	var in struct {
		BankDetails *bankDetails `json:"bankDetails"`
	}
	decodeBody(r, &in)
	s.withOrg(w, chi.URLParam(r, "id"), "Bank details updated", func(o *organization) string {
		if in.BankDetails == nil {
			return "bankDetails is required"
		}
		o.BankDetails = in.BankDetails
		return ""
	})
}

func (s *Server) addPaymentGateway(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OrgID             string `json:"orgId"`
		RazorpayAccountID string `json:"razorpayAccountId"`
		CashfreeAccountID string `json:"cashfreeAccountId"`
	}
	if !decodeBody(r, &in) || (in.RazorpayAccountID == "" && in.CashfreeAccountID == "") {
		writeFailure(w, http.StatusBadRequest, "At least one payment gateway account id is required")
		return
	}
	s.withOrg(w, in.OrgID, "Payment gateway updated successfully", func(o *organization) string {
		if o.BankDetails == nil {
			o.BankDetails = &bankDetails{}
		}
		if in.RazorpayAccountID != "" {
			o.BankDetails.RazorpayAccountID = in.RazorpayAccountID
		}
		if in.CashfreeAccountID != "" {
			o.BankDetails.CashfreeAccountID = in.CashfreeAccountID
		}
		return ""
	})
}

func (s *Server) createResource(w http.ResponseWriter, r *http.Request) {
	var in resource
	if !decodeBody(r, &in) || in.Title == "" || in.Type == "" || in.URL == "" {
		writeFailure(w, http.StatusBadRequest, "Title, type and url are required")
		return
	}
	in.ID = uuid.NewString()
	s.catalog.lock.Lock()
	s.catalog.resources = append(s.catalog.resources, in)
	s.catalog.lock.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Resource created", "data": in})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Expected a multipart form"})
		return
	}
	folder := r.FormValue("folder")
	file, header, err := r.FormFile("file")
	if err != nil || folder == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file and folder are required"})
		return
	}
	defer file.Close()
	n, err := io.Copy(io.Discard, file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read file"})
		return
	}

	s.catalog.lock.Lock()
	s.catalog.uploads = append(s.catalog.uploads, upload{Folder: folder, Name: header.Filename, Size: int(n)})
	s.catalog.lock.Unlock()

	url := s.URL + "/files/" + folder + "/" + uuid.NewString() + "-" + header.Filename
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
