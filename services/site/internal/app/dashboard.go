package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"leaddesk/pkg/domain"
	"leaddesk/pkg/store"
)

// Stats builds the dashboard snapshot. The queries run concurrently and are
// not taken from a single consistent view.
func (a *App) Stats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range []struct {
		coll   domain.Collection
		counts *domain.SubmissionCounts
		recent *[]domain.Submission
	}{
		{domain.CollectionContacts, &stats.Contacts, &stats.RecentContacts},
		{domain.CollectionApplications, &stats.Applications, &stats.RecentApplications},
	} {
		g.Go(func() error {
			total, err := a.store.CountSubmissions(gctx, c.coll, store.Filter{})
			if err != nil {
				return fmt.Errorf("count %s: %w", c.coll, err)
			}
			pending, err := a.store.CountSubmissions(gctx, c.coll, store.Filter{Status: domain.StatusPending})
			if err != nil {
				return fmt.Errorf("count pending %s: %w", c.coll, err)
			}
			c.counts.Total = total
			c.counts.Pending = pending
			return nil
		})
		g.Go(func() error {
			recent, err := a.store.FindSubmissions(gctx, c.coll, store.Query{Limit: recentActivityLimit})
			if err != nil {
				return fmt.Errorf("recent %s: %w", c.coll, err)
			}
			if recent == nil {
				recent = []domain.Submission{}
			}
			*c.recent = recent
			return nil
		})
	}
	g.Go(func() error {
		n, err := a.store.CountPosts(gctx)
		if err != nil {
			return fmt.Errorf("count posts: %w", err)
		}
		stats.BlogPosts = n
		return nil
	})
	g.Go(func() error {
		n, err := a.files.Count(gctx)
		if err != nil {
			return fmt.Errorf("count files: %w", err)
		}
		stats.Files = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.DashboardStats{}, err
	}
	return stats, nil
}
