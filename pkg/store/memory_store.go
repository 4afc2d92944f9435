package store

import (
	"sort"
	"sync"

	"pubreview/pkg/domain"
)

// MemoryStore keeps everything in-process. It mirrors the Postgres store's
// hydration behavior so tests exercise the same read paths.
type MemoryStore struct {
	mu           sync.RWMutex
	identities   map[string]domain.Identity
	byHash       map[string]string // identifier hash -> identity ID
	publications map[string]domain.Publication
	feedbacks    map[string]domain.Feedback
	pubOrder     []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities:   make(map[string]domain.Identity),
		byHash:       make(map[string]string),
		publications: make(map[string]domain.Publication),
		feedbacks:    make(map[string]domain.Feedback),
	}
}

// SaveIdentity stores or replaces an identity record.
func (m *MemoryStore) SaveIdentity(identity domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.ID] = identity
	m.byHash[identity.Identifier] = identity.ID
	return nil
}

// GetIdentityByHash looks up an identity by hashed credential.
func (m *MemoryStore) GetIdentityByHash(hash string) (domain.Identity, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byHash[hash]
	if !ok {
		return domain.Identity{}, false, nil
	}
	identity, ok := m.identities[id]
	return identity, ok, nil
}

// GetIdentityByID returns an identity by ID.
func (m *MemoryStore) GetIdentityByID(id string) (domain.Identity, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[id]
	return identity, ok, nil
}

// CreatePublication inserts a publication, enforcing invocation uniqueness.
func (m *MemoryStore) CreatePublication(pub domain.Publication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.publications {
		if existing.InvocationID == pub.InvocationID {
			return ErrDuplicateInvocation
		}
	}
	pub.Feedbacks = nil
	m.publications[pub.ID] = pub
	m.pubOrder = append(m.pubOrder, pub.ID)
	return nil
}

// UpdatePublication replaces the stored lifecycle timestamps.
func (m *MemoryStore) UpdatePublication(pub domain.Publication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.publications[pub.ID]
	if !ok {
		return nil
	}
	stored.AuthorApprovedAt = pub.AuthorApprovedAt
	stored.PublishedAt = pub.PublishedAt
	stored.ExportedAt = pub.ExportedAt
	m.publications[pub.ID] = stored
	return nil
}

// ListPublications returns publications in insertion order, hydrated.
func (m *MemoryStore) ListPublications() ([]domain.Publication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Publication, 0, len(m.pubOrder))
	for _, id := range m.pubOrder {
		if pub, ok := m.publications[id]; ok {
			res = append(res, m.hydratePublication(pub))
		}
	}
	return res, nil
}

// GetPublication retrieves a publication with its feedbacks.
func (m *MemoryStore) GetPublication(id string) (domain.Publication, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pub, ok := m.publications[id]
	if !ok {
		return domain.Publication{}, false, nil
	}
	return m.hydratePublication(pub), true, nil
}

// DeletePublication removes a publication and cascades to its feedbacks.
func (m *MemoryStore) DeletePublication(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.publications, id)
	for fid, fb := range m.feedbacks {
		if fb.PublicationID == id {
			delete(m.feedbacks, fid)
		}
	}
	filtered := m.pubOrder[:0]
	for _, item := range m.pubOrder {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.pubOrder = filtered
	return nil
}

// CreateFeedback inserts a feedback record.
func (m *MemoryStore) CreateFeedback(fb domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb.Publication = nil
	fb.Author = nil
	m.feedbacks[fb.ID] = fb
	return nil
}

// UpdateFeedback replaces text and done state.
func (m *MemoryStore) UpdateFeedback(fb domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.feedbacks[fb.ID]
	if !ok {
		return nil
	}
	stored.Text = fb.Text
	stored.Done = fb.Done
	m.feedbacks[fb.ID] = stored
	return nil
}

// GetFeedback retrieves a feedback with publication and author hydrated.
func (m *MemoryStore) GetFeedback(id string) (domain.Feedback, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fb, ok := m.feedbacks[id]
	if !ok {
		return domain.Feedback{}, false, nil
	}
	if pub, ok := m.publications[fb.PublicationID]; ok {
		hydrated := m.hydratePublication(pub)
		fb.Publication = &hydrated
	}
	if fb.AuthorID != "" {
		if author, ok := m.identities[fb.AuthorID]; ok {
			fb.Author = &author
		}
	}
	return fb, true, nil
}

// DeleteFeedback removes a single feedback record.
func (m *MemoryStore) DeleteFeedback(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.feedbacks, id)
	return nil
}

// hydratePublication attaches the feedback collection in creation order.
// Callers must hold at least a read lock.
func (m *MemoryStore) hydratePublication(pub domain.Publication) domain.Publication {
	feedbacks := make([]domain.Feedback, 0)
	for _, fb := range m.feedbacks {
		if fb.PublicationID == pub.ID {
			feedbacks = append(feedbacks, fb)
		}
	}
	sort.Slice(feedbacks, func(i, j int) bool {
		return feedbacks[i].CreatedAt.Before(feedbacks[j].CreatedAt)
	})
	pub.Feedbacks = feedbacks
	return pub
}
