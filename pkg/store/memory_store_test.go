package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"leaddesk/pkg/domain"
)

func newSubmission(id string, at time.Time) domain.Submission {
	return domain.Submission{
		ID:           id,
		Name:         "Asha",
		CompanyName:  "Acme",
		MobileNumber: "9000000000",
		CreatedAt:    at,
		Status:       domain.StatusPending,
	}
}

func strPtr(v string) *string { return &v }

func TestMemoryStoreSubmissionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.InsertSubmission(ctx, domain.CollectionContacts, newSubmission(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if err := s.InsertSubmission(ctx, domain.CollectionContacts, newSubmission("a", base)); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	list, err := s.FindSubmissions(ctx, domain.CollectionContacts, Query{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(list) != 3 || list[0].ID != "c" || list[2].ID != "a" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	updated, err := s.UpdateSubmission(ctx, domain.CollectionContacts, "b", domain.SubmissionPatch{Status: strPtr("contacted")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != "contacted" || updated.Name != "Asha" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	pending, err := s.CountSubmissions(ctx, domain.CollectionContacts, Filter{Status: domain.StatusPending})
	if err != nil || pending != 2 {
		t.Fatalf("expected 2 pending, got %d err=%v", pending, err)
	}

	if err := s.DeleteSubmission(ctx, domain.CollectionContacts, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteSubmission(ctx, domain.CollectionContacts, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := s.GetSubmission(ctx, domain.CollectionContacts, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.UpdateSubmission(ctx, domain.CollectionContacts, "missing", domain.SubmissionPatch{Notes: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestMemoryStoreCollectionsAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	if err := s.InsertSubmission(ctx, domain.CollectionApplications, newSubmission("app-1", now)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	n, err := s.CountSubmissions(ctx, domain.CollectionContacts, Filter{})
	if err != nil || n != 0 {
		t.Fatalf("expected no contacts, got %d err=%v", n, err)
	}
	if err := s.InsertSubmission(ctx, domain.CollectionBlogPosts, newSubmission("x", now)); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected unknown collection, got %v", err)
	}
}

func TestMemoryStoreLimitAndTies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"first", "second", "third"} {
		if err := s.InsertSubmission(ctx, domain.CollectionApplications, newSubmission(id, at)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	list, err := s.FindSubmissions(ctx, domain.CollectionApplications, Query{Limit: 2})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(list) != 2 || list[0].ID != "first" || list[1].ID != "second" {
		t.Fatalf("expected insertion order on ties, got %+v", list)
	}
}

func TestMemoryStorePostRenameCollision(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := domain.BlogPost{ID: "1", Slug: "ipo-basics", Title: "IPO basics", Date: "2025-01-01"}
	b := domain.BlogPost{ID: "2", Slug: "sme-listing", Title: "SME listing", Date: "2025-02-01"}
	for _, p := range []domain.BlogPost{a, b} {
		if err := s.InsertPost(ctx, p); err != nil {
			t.Fatalf("insert post: %v", err)
		}
	}
	if err := s.InsertPost(ctx, domain.BlogPost{ID: "3", Slug: "ipo-basics"}); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate slug, got %v", err)
	}

	_, err := s.UpdatePost(ctx, "ipo-basics", domain.PostPatch{Slug: strPtr("sme-listing"), Title: strPtr("changed")})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate key on rename, got %v", err)
	}
	got, err := s.GetPost(ctx, "ipo-basics")
	if err != nil || got.Title != "IPO basics" {
		t.Fatalf("original post should be untouched, got %+v err=%v", got, err)
	}

	renamed, err := s.UpdatePost(ctx, "ipo-basics", domain.PostPatch{Slug: strPtr("ipo-guide")})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Slug != "ipo-guide" || renamed.Date != "2025-01-01" {
		t.Fatalf("unexpected renamed post: %+v", renamed)
	}
	if _, err := s.GetPost(ctx, "ipo-basics"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old slug should be gone, got %v", err)
	}

	posts, err := s.FindPosts(ctx, Query{})
	if err != nil {
		t.Fatalf("find posts: %v", err)
	}
	if len(posts) != 2 || posts[0].Slug != "sme-listing" {
		t.Fatalf("expected newest date first, got %+v", posts)
	}
}

func TestMemoryStorePostFAQsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	faqs := []domain.FAQ{{Question: "q1", Answer: "a1"}}
	if err := s.InsertPost(ctx, domain.BlogPost{ID: "1", Slug: "faq", FAQs: faqs}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	faqs[0].Question = "mutated"
	got, err := s.GetPost(ctx, "faq")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FAQs[0].Question != "q1" {
		t.Fatalf("stored faqs aliased caller slice: %+v", got.FAQs)
	}

	cleared, err := s.UpdatePost(ctx, "faq", domain.PostPatch{SetFAQs: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cleared.FAQs != nil {
		t.Fatalf("expected faqs cleared, got %+v", cleared.FAQs)
	}
}
