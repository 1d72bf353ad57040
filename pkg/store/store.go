package store

import (
	"context"
	"errors"
	"fmt"

	"leaddesk/pkg/domain"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an insert or rename would reuse an existing key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrUnknownCollection is returned for a collection the operation does not serve.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Filter is an equality filter. Empty fields match everything.
type Filter struct {
	Status   string
	Category string
}

// Query adds a result cap to a filter. Limit <= 0 means no cap.
// Results are always newest first.
type Query struct {
	Filter
	Limit int
}

// Store is the document store adapter over the contacts, applications and
// blog_posts collections.
type Store interface {
	// submissions (contacts, applications)
	InsertSubmission(ctx context.Context, coll domain.Collection, s domain.Submission) error
	GetSubmission(ctx context.Context, coll domain.Collection, id string) (domain.Submission, error)
	FindSubmissions(ctx context.Context, coll domain.Collection, q Query) ([]domain.Submission, error)
	UpdateSubmission(ctx context.Context, coll domain.Collection, id string, patch domain.SubmissionPatch) (domain.Submission, error)
	DeleteSubmission(ctx context.Context, coll domain.Collection, id string) error
	CountSubmissions(ctx context.Context, coll domain.Collection, f Filter) (int64, error)

	// blog posts, keyed by slug
	InsertPost(ctx context.Context, p domain.BlogPost) error
	GetPost(ctx context.Context, slug string) (domain.BlogPost, error)
	FindPosts(ctx context.Context, q Query) ([]domain.BlogPost, error)
	UpdatePost(ctx context.Context, slug string, patch domain.PostPatch) (domain.BlogPost, error)
	DeletePost(ctx context.Context, slug string) error
	CountPosts(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

func checkSubmissionCollection(coll domain.Collection) error {
	switch coll {
	case domain.CollectionContacts, domain.CollectionApplications:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCollection, coll)
	}
}

// applySubmissionPatch merges the non-nil patch fields into s.
func applySubmissionPatch(s domain.Submission, patch domain.SubmissionPatch) domain.Submission {
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	if patch.Notes != nil {
		s.Notes = *patch.Notes
	}
	return s
}

// applyPostPatch merges the patch into p. ID, Date and CreatedAt never change.
func applyPostPatch(p domain.BlogPost, patch domain.PostPatch) domain.BlogPost {
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Excerpt != nil {
		p.Excerpt = *patch.Excerpt
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Author != nil {
		p.Author = *patch.Author
	}
	if patch.ReadTime != nil {
		p.ReadTime = *patch.ReadTime
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.SetFAQs {
		p.FAQs = cloneFAQs(patch.FAQs)
	}
	return p
}

func cloneFAQs(in []domain.FAQ) []domain.FAQ {
	if in == nil {
		return nil
	}
	out := make([]domain.FAQ, len(in))
	copy(out, in)
	return out
}
