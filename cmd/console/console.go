package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/ems-console/admin"
	"github.com/jrsteele09/ems-console/apiclient"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/internal/ui"
	"github.com/jrsteele09/ems-console/internal/utils"
	"github.com/jrsteele09/ems-console/sessions"
	"github.com/jrsteele09/ems-console/token"
)

type command struct {
	usage   string
	summary string
	// public commands run without an authenticated session
	public bool
	run    func(ctx context.Context, args []string) error
}

type console struct {
	client   *apiclient.Client
	sessions *sessions.Manager
	admin    *admin.Service
	out      io.Writer
	commands map[string]command
}

func newConsole(client *apiclient.Client, manager *sessions.Manager, service *admin.Service, out io.Writer) *console {
	c := &console{client: client, sessions: manager, admin: service, out: out}
	c.commands = map[string]command{
		"help":          {usage: "help", summary: "list commands", public: true, run: c.help},
		"login":         {usage: "login <email> <password>", summary: "sign in", public: true, run: c.login},
		"logout":        {usage: "logout", summary: "sign out on this machine", public: true, run: c.logout},
		"whoami":        {usage: "whoami", summary: "show the signed-in user", public: true, run: c.whoami},
		"token":         {usage: "token", summary: "show access token claims", public: true, run: c.token},
		"dashboard":     {usage: "dashboard", summary: "event and organization overview", run: c.dashboard},
		"events":        {usage: "events [search=..] [status=..] [category=..] [orgId=..] [isBlocked=..] [featured=..] [fraudulent=..] [page=..] [limit=..]", summary: "list events", run: c.events},
		"event":         {usage: "event <id>", summary: "show one event", run: c.event},
		"event-block":   {usage: "event-block <id> <reason...>", summary: "block an event", run: c.eventBlock},
		"event-unblock": {usage: "event-unblock <id>", summary: "unblock an event", run: c.eventUnblock},
		"event-flag":    {usage: "event-flag <id> <minor|major|critical> <reason...>", summary: "flag an event as fraudulent", run: c.eventFlag},
		"orgs":          {usage: "orgs [search=..] [category=..] [verified=..] [isBlocked=..] [riskLevel=..] [page=..] [limit=..]", summary: "list organizations", run: c.orgs},
		"org":           {usage: "org <id>", summary: "show one organization", run: c.org},
		"org-action":    {usage: "org-action <id> <action> [reason=..] [blockType=..] [notes=..] [severity=..] [message=..]", summary: "run an organization status action", run: c.orgAction},
		"org-verify":    {usage: "org-verify <id>", summary: "approve a pending verification", run: c.orgVerify},
		"org-reject":    {usage: "org-reject <id> <reason...>", summary: "reject a pending verification", run: c.orgReject},
		"pending":       {usage: "pending", summary: "organizations waiting for verification", run: c.pending},
		"paid-allow":    {usage: "paid-allow <id> <razorpayAccountId>", summary: "allow paid events", run: c.paidAllow},
		"paid-reject":   {usage: "paid-reject <id>", summary: "reject paid events", run: c.paidReject},
		"gateway":       {usage: "gateway <orgId> [razorpay=..] [cashfree=..]", summary: "link payment gateway accounts", run: c.gateway},
		"bank":          {usage: "bank <orgId> [holder=..] [account=..] [ifsc=..] [bankName=..]", summary: "update payout bank details", run: c.bank},
		"resource":      {usage: "resource title=.. type=.. url=.. [description=..] [tags=a,b] [priority=..] [link=..]", summary: "create a resource", run: c.resource},
		"upload":        {usage: "upload <file> <folder>", summary: "upload a file and print its URL", run: c.upload},
	}
	return c
}

func (c *console) loop(ctx context.Context, in *bufio.Scanner) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			lines <- in.Text()
		}
	}()

	for {
		fmt.Fprint(c.out, "ems> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				return nil
			}
			if done := c.execute(ctx, line); done {
				return nil
			}
		}
	}
}

// execute runs one command line and reports whether the console should stop.
func (c *console) execute(ctx context.Context, line string) bool {
	fields := splitArgs(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}
	name, args := fields[0], fields[1:]
	if name == "exit" || name == "quit" {
		return true
	}

	cmd, ok := c.commands[name]
	if !ok {
		fmt.Fprintln(c.out, ui.Failure("unknown command %q, try help", name))
		return false
	}
	if !cmd.public && !c.sessions.Snapshot().IsAuthenticated {
		fmt.Fprintln(c.out, ui.Failure("not signed in, use login"))
		return false
	}
	if err := cmd.run(ctx, args); err != nil {
		c.printError(cmd, err)
	}
	return false
}

func (c *console) printError(cmd command, err error) {
	var apiErr *admin.APIError
	var httpErr *apiclient.HTTPError
	switch {
	case apperrors.Is(err, apperrors.ErrRefreshFailed):
		fmt.Fprintln(c.out, ui.Failure("session expired, please login again"))
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		fmt.Fprintln(c.out, ui.Failure("%v", err))
		fmt.Fprintln(c.out, ui.Muted("usage: %s", cmd.usage))
	case apperrors.As(err, &apiErr):
		fmt.Fprintln(c.out, ui.Failure("%s", apiErr.Error()))
	case apperrors.As(err, &httpErr):
		fmt.Fprintf(c.out, "%s %s\n", ui.Status(httpErr.StatusCode), ui.Failure("%s", httpErr.Message))
	default:
		fmt.Fprintln(c.out, ui.Failure("%v", err))
	}
}

func (c *console) printSession(snap sessions.Snapshot) {
	if snap.IsAuthenticated {
		fmt.Fprintln(c.out, ui.Success("signed in as %s (%s)", snap.User.DisplayName(), snap.User.Role))
		return
	}
	fmt.Fprintln(c.out, ui.Muted("not signed in, use login <email> <password>"))
}

func (c *console) help(_ context.Context, _ []string) error {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", c.commands[name].usage, c.commands[name].summary)
	}
	fmt.Fprintf(w, "  exit\tleave the console\n")
	return w.Flush()
}

func (c *console) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "email and password are required")
	}
	profile, err := c.sessions.Login(ctx, args[0], args[1])
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			return apperrors.ErrInvalidCredentials
		}
		return err
	}
	fmt.Fprintln(c.out, ui.Success("welcome %s", profile.DisplayName()))
	if !profile.IsSuperAdmin() {
		fmt.Fprintln(c.out, ui.Muted("this account is not a super admin; admin commands will be refused"))
	}
	return nil
}

func (c *console) logout(_ context.Context, _ []string) error {
	c.sessions.Logout()
	fmt.Fprintln(c.out, ui.Muted("signed out"))
	return nil
}

func (c *console) whoami(_ context.Context, _ []string) error {
	c.printSession(c.sessions.Snapshot())
	return nil
}

func (c *console) token(_ context.Context, _ []string) error {
	raw := c.client.AccessToken()
	if raw == "" {
		fmt.Fprintln(c.out, ui.Muted("no access token"))
		return nil
	}
	claims, err := token.Inspect(raw)
	if err != nil {
		fmt.Fprintln(c.out, ui.Muted("opaque access token"))
		return nil
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "subject\t%s\n", claims.Subject)
	fmt.Fprintf(w, "role\t%s\n", claims.Role)
	fmt.Fprintf(w, "issued\t%s\n", claims.IssuedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "expires\t%s (in %s)\n", claims.ExpiresAt.Format(time.RFC3339), time.Until(claims.ExpiresAt).Round(time.Second))
	return w.Flush()
}

func (c *console) dashboard(ctx context.Context, _ []string) error {
	overview, err := c.admin.Dashboard(ctx)
	if err != nil {
		return err
	}
	ev, org := overview.Events, overview.Orgs
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "events\t%d total\t%d published\t%d blocked\t%d fraudulent\n", ev.TotalEvents, ev.PublishedEvents, ev.BlockedEvents, ev.FraudulentEvents)
	fmt.Fprintf(w, "registrations\t%d\tviews\t%d\n", ev.TotalRegistrations, ev.TotalViewCount)
	fmt.Fprintf(w, "organizations\t%d total\t%d verified\t%d pending\t%d active\n", org.TotalOrganizations, org.VerifiedOrganizations, org.PendingVerification, org.ActiveOrganizations)
	if err := w.Flush(); err != nil {
		return err
	}
	if len(overview.Pending) > 0 {
		fmt.Fprintln(c.out, ui.Muted("waiting for verification:"))
		c.printOrgs(overview.Pending)
	}
	return nil
}

func (c *console) events(ctx context.Context, args []string) error {
	kv := keyValues(args)
	page, err := c.admin.ListEvents(ctx, admin.EventFilter{
		Search:     kv["search"],
		Category:   kv["category"],
		Status:     kv["status"],
		OrgID:      kv["orgId"],
		IsBlocked:  admin.BoolFilter(kv["isBlocked"]),
		Featured:   admin.BoolFilter(kv["featured"]),
		Fraudulent: admin.BoolFilter(kv["fraudulent"]),
		SortBy:     kv["sortBy"],
		SortOrder:  kv["sortOrder"],
		Page:       atoi(kv["page"]),
		Limit:      atoi(kv["limit"]),
	})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tORGANIZATION\tFLAGS")
	for _, e := range page.Docs {
		orgName := ""
		if e.Organization != nil {
			orgName = e.Organization.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Title, e.Status, orgName, eventFlags(e))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	c.printPage(page.Page, page.TotalPages, page.TotalDocs)
	return nil
}

func eventFlags(e admin.Event) string {
	var flags []string
	if e.IsBlocked {
		flags = append(flags, "blocked")
	}
	if e.Featured {
		flags = append(flags, "featured")
	}
	if e.Fraudulent {
		flags = append(flags, fmt.Sprintf("fraud(%d)", len(e.FraudFlags)))
	}
	return strings.Join(flags, ",")
}

func (c *console) event(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "event id is required")
	}
	e, err := c.admin.GetEvent(ctx, args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "title\t%s\n", e.Title)
	fmt.Fprintf(w, "status\t%s (%s, %s)\n", e.Status, e.Type, e.Mode)
	fmt.Fprintf(w, "category\t%s\n", e.Category)
	if e.Organization != nil {
		fmt.Fprintf(w, "organization\t%s (%s)\n", e.Organization.Name, e.Organization.ID)
	}
	fmt.Fprintf(w, "registrations\t%d\n", e.TotalRegistrations)
	fmt.Fprintf(w, "views\t%d\n", e.ViewCount)
	fmt.Fprintf(w, "flags\t%s\n", eventFlags(*e))
	for _, f := range e.FraudFlags {
		fmt.Fprintf(w, "  %s\t%s\n", f.Severity, f.Reason)
	}
	return w.Flush()
}

func (c *console) eventBlock(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "event id and reason are required")
	}
	return c.done(c.admin.BlockEvent(ctx, args[0], strings.Join(args[1:], " ")))
}

func (c *console) eventUnblock(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "event id is required")
	}
	return c.done(c.admin.UnblockEvent(ctx, args[0]))
}

func (c *console) eventFlag(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "event id, severity and reason are required")
	}
	return c.done(c.admin.FlagEvent(ctx, args[0], strings.Join(args[2:], " "), admin.Severity(args[1])))
}

func (c *console) orgs(ctx context.Context, args []string) error {
	kv := keyValues(args)
	page, err := c.admin.ListOrganizations(ctx, admin.OrgFilter{
		Search:    kv["search"],
		Category:  kv["category"],
		RiskLevel: kv["riskLevel"],
		Verified:  admin.BoolFilter(kv["verified"]),
		IsBlocked: admin.BoolFilter(kv["isBlocked"]),
		SortBy:    kv["sortBy"],
		SortOrder: kv["sortOrder"],
		Page:      atoi(kv["page"]),
		Limit:     atoi(kv["limit"]),
	})
	if err != nil {
		return err
	}
	c.printOrgs(page.Docs)
	c.printPage(page.Page, page.TotalPages, page.TotalDocs)
	return nil
}

func (c *console) printOrgs(orgs []admin.Organization) {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERIFIED\tBLOCKED\tRISK")
	for _, o := range orgs {
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n", o.ID, o.Name, o.Verified, o.IsBlocked, o.RiskLevel)
	}
	_ = w.Flush()
}

func (c *console) org(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	o, err := c.admin.GetOrganization(ctx, args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "name\t%s\n", o.Name)
	fmt.Fprintf(w, "email\t%s\n", o.Email)
	fmt.Fprintf(w, "category\t%s\n", o.Category)
	fmt.Fprintf(w, "verified\t%t\n", o.Verified)
	fmt.Fprintf(w, "blocked\t%t\n", o.IsBlocked)
	fmt.Fprintf(w, "risk\t%s (trust %.0f)\n", o.RiskLevel, o.TrustScore)
	if o.BankDetails != nil {
		fmt.Fprintf(w, "paid events\t%t\n", o.BankDetails.PaidEventsAllowed)
		fmt.Fprintf(w, "razorpay\t%s\n", o.BankDetails.RazorpayAccountID)
		fmt.Fprintf(w, "cashfree\t%s\n", o.BankDetails.CashfreeAccountID)
	}
	for _, f := range o.FraudFlags {
		fmt.Fprintf(w, "  %s\t%s\n", f.Severity, f.Reason)
	}
	return w.Flush()
}

func (c *console) orgAction(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id and action are required")
	}
	kv := keyValues(args[2:])
	in := admin.ActionInput{
		Reason:            kv["reason"],
		BlockType:         kv["blockType"],
		VerificationNotes: kv["notes"],
		Severity:          admin.Severity(kv["severity"]),
		Message:           kv["message"],
	}
	return c.done(c.admin.OrganizationAction(ctx, args[0], admin.OrgAction(args[1]), in))
}

func (c *console) orgVerify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	return c.done(c.admin.VerifyOrganization(ctx, args[0]))
}

func (c *console) orgReject(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id and reason are required")
	}
	return c.done(c.admin.RejectOrganization(ctx, args[0], strings.Join(args[1:], " ")))
}

func (c *console) pending(ctx context.Context, _ []string) error {
	orgs, err := c.admin.PendingVerifications(ctx)
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		fmt.Fprintln(c.out, ui.Muted("no pending verifications"))
		return nil
	}
	c.printOrgs(orgs)
	return nil
}

func (c *console) paidAllow(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id and razorpay account id are required")
	}
	return c.done(c.admin.AllowPaidEvents(ctx, args[0], args[1]))
}

func (c *console) paidReject(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id is required")
	}
	return c.done(c.admin.RejectPaidEvents(ctx, args[0]))
}

func (c *console) gateway(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id and an account are required")
	}
	kv := keyValues(args[1:])
	return c.done(c.admin.AddPaymentGateway(ctx, args[0], kv["razorpay"], kv["cashfree"]))
}

func (c *console) bank(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "organization id and at least one field are required")
	}
	kv := keyValues(args[1:])
	details := admin.BankDetails{
		AccountHolderName: kv["holder"],
		AccountNumber:     kv["account"],
		IFSC:              kv["ifsc"],
		BankName:          kv["bankName"],
	}
	return c.done(c.admin.UpdateBankDetails(ctx, args[0], details))
}

func (c *console) resource(ctx context.Context, args []string) error {
	kv := keyValues(args)
	priority := atoi(kv["priority"])
	r := admin.Resource{
		Title:       kv["title"],
		Type:        kv["type"],
		URL:         kv["url"],
		Description: kv["description"],
		Tags:        utils.SplitCSV(kv["tags"]),
		Priority:    priority,
		Active:      kv["active"] != "false",
		Link:        kv["link"],
	}
	return c.done(c.admin.CreateResource(ctx, r))
}

func (c *console) upload(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "file and folder are required")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	url, err := c.admin.Upload(ctx, filepath.Base(args[0]), args[1], f)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, ui.Success("uploaded: %s", url))
	return nil
}

func (c *console) done(res *admin.Result, err error) error {
	if err != nil {
		return err
	}
	msg := res.Message
	if msg == "" {
		msg = "done"
	}
	fmt.Fprintln(c.out, ui.Success("%s", msg))
	return nil
}

func (c *console) printPage(page, pages, total int) {
	fmt.Fprintln(c.out, ui.Muted("page %d of %d, %d total", page, pages, total))
}

// keyValues parses key=value arguments; other arguments are ignored.
func keyValues(args []string) map[string]string {
	kv := make(map[string]string, len(args))
	for _, a := range args {
		if k, v, ok := strings.Cut(a, "="); ok {
			kv[k] = v
		}
	}
	return kv
}

// splitArgs splits a command line on spaces. Double quotes group words,
// so reason="duplicate listing" is one argument.
func splitArgs(line string) []string {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case (r == ' ' || r == '\t') && !quoted:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, current.String())
	}
	return args
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
