package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"leaddesk/internal/util"
	"leaddesk/pkg/domain"
	"leaddesk/pkg/store"
)

const (
	blogResource = "Blog post"
	dateLayout   = "2006-01-02"
)

// PostInput is the admin blog form, used for both create and update.
type PostInput struct {
	Slug     string  `json:"slug"`
	Title    string  `json:"title"`
	Excerpt  string  `json:"excerpt"`
	Content  string  `json:"content"`
	Author   string  `json:"author"`
	ReadTime string  `json:"read_time"`
	Category string  `json:"category"`
	Image    string  `json:"image"`
	FAQs     FAQList `json:"faqs"`
}

// FAQList tells an absent "faqs" key apart from an explicit null.
type FAQList struct {
	Set   bool
	Items []domain.FAQ
}

func (l *FAQList) UnmarshalJSON(b []byte) error {
	l.Set = true
	l.Items = nil
	if string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, &l.Items)
}

func (in PostInput) validate() error {
	if err := requireFields(
		"slug", in.Slug,
		"title", in.Title,
		"excerpt", in.Excerpt,
		"content", in.Content,
		"category", in.Category,
	); err != nil {
		return err
	}
	slug := strings.TrimSpace(in.Slug)
	if strings.ContainsAny(slug, "/\\?#") {
		return invalid("slug must not contain path characters")
	}
	for i, faq := range in.FAQs.Items {
		if strings.TrimSpace(faq.Question) == "" {
			return invalid("faqs[%d].question is required", i)
		}
	}
	return nil
}

// PublicPosts lists posts for the public blog, newest date first.
func (a *App) PublicPosts(ctx context.Context, category string) ([]domain.BlogPost, error) {
	return a.findPosts(ctx, category, a.publicBlogLimit)
}

// AdminPosts lists posts for the admin blog tab.
func (a *App) AdminPosts(ctx context.Context, category string) ([]domain.BlogPost, error) {
	return a.findPosts(ctx, category, a.adminListLimit)
}

func (a *App) findPosts(ctx context.Context, category string, limit int) ([]domain.BlogPost, error) {
	posts, err := a.store.FindPosts(ctx, store.Query{
		Filter: store.Filter{Category: strings.TrimSpace(category)},
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost resolves a post by slug.
func (a *App) GetPost(ctx context.Context, slug string) (domain.BlogPost, error) {
	p, err := a.store.GetPost(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.BlogPost{}, notFound(blogResource, err)
		}
		return domain.BlogPost{}, fmt.Errorf("get post %s: %w", slug, err)
	}
	return p, nil
}

// CreatePost assigns id and date, applies defaults and stores the post.
func (a *App) CreatePost(ctx context.Context, in PostInput) (domain.BlogPost, error) {
	if err := in.validate(); err != nil {
		return domain.BlogPost{}, err
	}
	slug := strings.TrimSpace(in.Slug)
	taken, err := a.slugTaken(ctx, slug)
	if err != nil {
		return domain.BlogPost{}, err
	}
	if taken {
		return domain.BlogPost{}, ErrDuplicateSlug
	}
	now := a.now().UTC()
	p := domain.BlogPost{
		ID:        util.NewID(),
		Slug:      slug,
		Title:     strings.TrimSpace(in.Title),
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		Author:    orDefault(in.Author, domain.DefaultAuthor),
		Date:      now.Format(dateLayout),
		ReadTime:  orDefault(in.ReadTime, domain.DefaultReadTime),
		Category:  strings.TrimSpace(in.Category),
		Image:     strings.TrimSpace(in.Image),
		FAQs:      normalizeFAQs(in.FAQs.Items),
		CreatedAt: now,
	}
	if err := a.store.InsertPost(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return domain.BlogPost{}, ErrDuplicateSlug
		}
		return domain.BlogPost{}, fmt.Errorf("insert post %s: %w", slug, err)
	}
	return p, nil
}

// UpdatePost replaces the editable fields of the post at slug. A changed slug
// is checked for collisions before anything is written. FAQs are only
// replaced when the input carries a "faqs" key.
func (a *App) UpdatePost(ctx context.Context, slug string, in PostInput) (domain.BlogPost, error) {
	if err := in.validate(); err != nil {
		return domain.BlogPost{}, err
	}
	if _, err := a.GetPost(ctx, slug); err != nil {
		return domain.BlogPost{}, err
	}
	newSlug := strings.TrimSpace(in.Slug)
	if newSlug != slug {
		taken, err := a.slugTaken(ctx, newSlug)
		if err != nil {
			return domain.BlogPost{}, err
		}
		if taken {
			return domain.BlogPost{}, ErrDuplicateSlug
		}
	}

	title := strings.TrimSpace(in.Title)
	author := orDefault(in.Author, domain.DefaultAuthor)
	readTime := orDefault(in.ReadTime, domain.DefaultReadTime)
	category := strings.TrimSpace(in.Category)
	image := strings.TrimSpace(in.Image)
	patch := domain.PostPatch{
		Slug:     &newSlug,
		Title:    &title,
		Excerpt:  &in.Excerpt,
		Content:  &in.Content,
		Author:   &author,
		ReadTime: &readTime,
		Category: &category,
		Image:    &image,
	}
	if in.FAQs.Set {
		patch.SetFAQs = true
		patch.FAQs = normalizeFAQs(in.FAQs.Items)
	}

	updated, err := a.store.UpdatePost(ctx, slug, patch)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.BlogPost{}, notFound(blogResource, err)
	case errors.Is(err, store.ErrDuplicateKey):
		return domain.BlogPost{}, ErrDuplicateSlug
	default:
		return domain.BlogPost{}, fmt.Errorf("update post %s: %w", slug, err)
	}
}

// DeletePost removes a post permanently.
func (a *App) DeletePost(ctx context.Context, slug string) error {
	if err := a.store.DeletePost(ctx, slug); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(blogResource, err)
		}
		return fmt.Errorf("delete post %s: %w", slug, err)
	}
	return nil
}

func (a *App) slugTaken(ctx context.Context, slug string) (bool, error) {
	_, err := a.store.GetPost(ctx, slug)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check slug %s: %w", slug, err)
	}
}

// normalizeFAQs maps an empty list to nil: no FAQ section.
func normalizeFAQs(in []domain.FAQ) []domain.FAQ {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.FAQ, len(in))
	for i, faq := range in {
		out[i] = domain.FAQ{
			Question: strings.TrimSpace(faq.Question),
			Answer:   strings.TrimSpace(faq.Answer),
		}
	}
	return out
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
