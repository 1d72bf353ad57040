package store

import (
	"context"
	"sort"
	"sync"

	"leaddesk/pkg/domain"
)

// MemoryStore keeps all collections in-process. Every operation runs under a
// single lock, so per-record operations are atomic.
type MemoryStore struct {
	mu sync.RWMutex

	subs     map[domain.Collection]map[string]domain.Submission
	subOrder map[domain.Collection][]string

	posts     map[string]domain.BlogPost // key: post ID
	slugs     map[string]string          // slug -> post ID
	postOrder []string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: map[domain.Collection]map[string]domain.Submission{
			domain.CollectionContacts:     {},
			domain.CollectionApplications: {},
		},
		subOrder: map[domain.Collection][]string{},
		posts:    make(map[string]domain.BlogPost),
		slugs:    make(map[string]string),
	}
}

// InsertSubmission stores a new submission.
func (m *MemoryStore) InsertSubmission(_ context.Context, coll domain.Collection, s domain.Submission) error {
	if err := checkSubmissionCollection(coll); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	table := m.subs[coll]
	if _, exists := table[s.ID]; exists {
		return ErrDuplicateKey
	}
	table[s.ID] = s
	m.subOrder[coll] = append(m.subOrder[coll], s.ID)
	return nil
}

// GetSubmission returns one submission by id.
func (m *MemoryStore) GetSubmission(_ context.Context, coll domain.Collection, id string) (domain.Submission, error) {
	if err := checkSubmissionCollection(coll); err != nil {
		return domain.Submission{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subs[coll][id]
	if !ok {
		return domain.Submission{}, ErrNotFound
	}
	return s, nil
}

// FindSubmissions returns matching submissions, newest first. Equal
// timestamps keep insertion order.
func (m *MemoryStore) FindSubmissions(_ context.Context, coll domain.Collection, q Query) ([]domain.Submission, error) {
	if err := checkSubmissionCollection(coll); err != nil {
		return nil, err
	}
	m.mu.RLock()
	res := make([]domain.Submission, 0, len(m.subOrder[coll]))
	for _, id := range m.subOrder[coll] {
		s, ok := m.subs[coll][id]
		if !ok || !matchSubmission(s, q.Filter) {
			continue
		}
		res = append(res, s)
	}
	m.mu.RUnlock()

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

// UpdateSubmission merges the patch into an existing submission.
func (m *MemoryStore) UpdateSubmission(_ context.Context, coll domain.Collection, id string, patch domain.SubmissionPatch) (domain.Submission, error) {
	if err := checkSubmissionCollection(coll); err != nil {
		return domain.Submission{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[coll][id]
	if !ok {
		return domain.Submission{}, ErrNotFound
	}
	s = applySubmissionPatch(s, patch)
	m.subs[coll][id] = s
	return s, nil
}

// DeleteSubmission removes a submission permanently.
func (m *MemoryStore) DeleteSubmission(_ context.Context, coll domain.Collection, id string) error {
	if err := checkSubmissionCollection(coll); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[coll][id]; !ok {
		return ErrNotFound
	}
	delete(m.subs[coll], id)
	m.subOrder[coll] = removeID(m.subOrder[coll], id)
	return nil
}

// CountSubmissions counts submissions matching the filter.
func (m *MemoryStore) CountSubmissions(_ context.Context, coll domain.Collection, f Filter) (int64, error) {
	if err := checkSubmissionCollection(coll); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, s := range m.subs[coll] {
		if matchSubmission(s, f) {
			n++
		}
	}
	return n, nil
}

// InsertPost stores a new post; the slug must be unused.
func (m *MemoryStore) InsertPost(_ context.Context, p domain.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.slugs[p.Slug]; exists {
		return ErrDuplicateKey
	}
	if _, exists := m.posts[p.ID]; exists {
		return ErrDuplicateKey
	}
	p.FAQs = cloneFAQs(p.FAQs)
	m.posts[p.ID] = p
	m.slugs[p.Slug] = p.ID
	m.postOrder = append(m.postOrder, p.ID)
	return nil
}

// GetPost resolves a post by slug.
func (m *MemoryStore) GetPost(_ context.Context, slug string) (domain.BlogPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.slugs[slug]
	if !ok {
		return domain.BlogPost{}, ErrNotFound
	}
	p := m.posts[id]
	p.FAQs = cloneFAQs(p.FAQs)
	return p, nil
}

// FindPosts returns matching posts ordered by date, newest first.
func (m *MemoryStore) FindPosts(_ context.Context, q Query) ([]domain.BlogPost, error) {
	m.mu.RLock()
	res := make([]domain.BlogPost, 0, len(m.postOrder))
	for _, id := range m.postOrder {
		p, ok := m.posts[id]
		if !ok {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		p.FAQs = cloneFAQs(p.FAQs)
		res = append(res, p)
	}
	m.mu.RUnlock()

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Date != res[j].Date {
			return res[i].Date > res[j].Date
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

// UpdatePost applies the patch, including a rename, in one step.
func (m *MemoryStore) UpdatePost(_ context.Context, slug string, patch domain.PostPatch) (domain.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.slugs[slug]
	if !ok {
		return domain.BlogPost{}, ErrNotFound
	}
	if patch.Slug != nil && *patch.Slug != slug {
		if other, taken := m.slugs[*patch.Slug]; taken && other != id {
			return domain.BlogPost{}, ErrDuplicateKey
		}
	}
	updated := applyPostPatch(m.posts[id], patch)
	if updated.Slug != slug {
		delete(m.slugs, slug)
		m.slugs[updated.Slug] = id
	}
	m.posts[id] = updated
	updated.FAQs = cloneFAQs(updated.FAQs)
	return updated, nil
}

// DeletePost removes a post permanently.
func (m *MemoryStore) DeletePost(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.slugs[slug]
	if !ok {
		return ErrNotFound
	}
	delete(m.slugs, slug)
	delete(m.posts, id)
	m.postOrder = removeID(m.postOrder, id)
	return nil
}

// CountPosts returns the number of posts.
func (m *MemoryStore) CountPosts(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.posts)), nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func matchSubmission(s domain.Submission, f Filter) bool {
	return f.Status == "" || s.Status == f.Status
}

func removeID(ids []string, id string) []string {
	filtered := ids[:0]
	for _, item := range ids {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
