// Package storage contains an in-memory twin of the Postgres repositories.
// It backs the package tests and mirrors the SQL semantics: ordering,
// ownership and the status transition rule.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/docdesk/internal/model"
)

// MemoryStore keeps documents and users in maps guarded by an RWMutex, so
// concurrent readers do not block each other.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[int64]*model.Document
	users    map[int64]*model.User
	nextDoc  int64
	nextUser int64
	now      func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[int64]*model.Document),
		users: make(map[int64]*model.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// AddUser inserts a user, assigning an id when it has none.
func (m *MemoryStore) AddUser(u *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.nextUser++
		u.ID = m.nextUser
	} else if u.ID > m.nextUser {
		m.nextUser = u.ID
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	copied := *u
	m.users[u.ID] = &copied
	return u
}

// DeleteUser removes a user and, like the ON DELETE CASCADE in the schema,
// every document they own.
func (m *MemoryStore) DeleteUser(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	for docID, d := range m.docs {
		if d.UserID == id {
			delete(m.docs, docID)
		}
	}
}

// DeleteDocument removes a document. Only tests call this, to simulate an
// external deletion racing a notification job.
func (m *MemoryStore) DeleteDocument(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
}

// Create inserts a pending document.
func (m *MemoryStore) Create(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[doc.UserID]; !ok {
		return fmt.Errorf("insert document for user %d: %w", doc.UserID, model.ErrUnknownOwner)
	}
	m.nextDoc++
	now := m.now()
	doc.ID = m.nextDoc
	doc.Status = model.StatusPending
	doc.CreatedAt = now
	doc.UpdatedAt = now
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

// Get returns a copy of the document so callers cannot mutate internal state.
func (m *MemoryStore) Get(_ context.Context, id int64) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, model.ErrNotFound)
	}
	copied := *d
	return &copied, nil
}

// ListByOwner returns the owner's documents, most recent first.
func (m *MemoryStore) ListByOwner(_ context.Context, ownerID int64) ([]model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Document, 0)
	for _, d := range m.docs {
		if d.UserID == ownerID {
			out = append(out, *d)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// List returns documents joined with their owners.
func (m *MemoryStore) List(_ context.Context, filter model.ListFilter) ([]model.ReviewItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]model.Document, 0, len(m.docs))
	for _, d := range m.docs {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		docs = append(docs, *d)
	}
	sortNewestFirst(docs)

	search := strings.ToLower(filter.Search)
	items := make([]model.ReviewItem, 0, len(docs))
	for _, d := range docs {
		item := model.ReviewItem{Document: d}
		if u, ok := m.users[d.UserID]; ok {
			item.Username = u.Username
			item.Email = u.Email
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Username), search) &&
			!strings.Contains(strings.ToLower(item.Email), search) {
			continue
		}
		items = append(items, item)
	}

	if filter.Offset >= len(items) {
		return []model.ReviewItem{}, nil
	}
	items = items[filter.Offset:]
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// SetStatus applies the same predicate as the SQL bulk update and returns the
// touched ids in ascending order.
func (m *MemoryStore) SetStatus(_ context.Context, ids []int64, status model.Status) ([]int64, error) {
	if !status.Valid() || status == model.StatusPending {
		return nil, fmt.Errorf("set status %q: invalid target", status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	seen := make(map[int64]struct{}, len(ids))
	updated := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		d, ok := m.docs[id]
		if !ok || !d.Status.CanTransition(status) {
			continue
		}
		d.Status = status
		if now.After(d.UpdatedAt) {
			d.UpdatedAt = now
		}
		updated = append(updated, id)
	}
	sort.Slice(updated, func(i, j int) bool { return updated[i] < updated[j] })
	return updated, nil
}

// Users exposes the user half of the store under the shape the repositories
// use (Get by id).
func (m *MemoryStore) Users() *MemoryUsers {
	return &MemoryUsers{store: m}
}

// MemoryUsers is the user lookup view of a MemoryStore.
type MemoryUsers struct {
	store *MemoryStore
}

// Get returns a copy of the user.
func (u *MemoryUsers) Get(_ context.Context, id int64) (*model.User, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	user, ok := u.store.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func sortNewestFirst(docs []model.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
}
