package admin

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Overview is the landing screen of the console.
type Overview struct {
	Events  *EventSummary
	Orgs    *OrganizationSummary
	Pending []Organization
}

// Dashboard loads the summaries concurrently. The first failure cancels the rest.
func (s *Service) Dashboard(ctx context.Context) (*Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Events, err = s.EventSummary(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Orgs, err = s.OrganizationSummary(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Pending, err = s.PendingVerifications(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
