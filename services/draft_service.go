package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/findsforliving-lab/finds4livingbot/models"
)

// DraftStore holds product records between extraction and publication, one
// draft per user. Drafts have an explicit lifecycle: created on submit,
// updated while the user edits, removed on publish or cancel, and swept
// after the TTL so abandoned edits do not accumulate.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[string]*models.Draft
	ttl    time.Duration
	stop   chan struct{}
	once   sync.Once
}

// NewDraftStore creates the store and starts the background TTL sweep.
func NewDraftStore(ttl time.Duration) *DraftStore {
	store := &DraftStore{
		drafts: make(map[string]*models.Draft),
		ttl:    ttl,
		stop:   make(chan struct{}),
	}
	go store.sweepLoop()
	return store
}

// Create opens a draft for a user, replacing any previous one.
func (s *DraftStore) Create(userID, url string, product *models.ProductRecord) *models.Draft {
	now := time.Now()
	draft := &models.Draft{
		UserID:    userID,
		URL:       url,
		Product:   product,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.drafts[userID] = draft
	copied := snapshotDraft(draft)
	s.mu.Unlock()

	return copied
}

// Get returns a copy of the user's current draft. Callers get a snapshot, so
// marshaling it never races a concurrent Update.
func (s *DraftStore) Get(userID string) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[userID]
	if !ok {
		return nil, fmt.Errorf("no draft for user %s", userID)
	}
	return snapshotDraft(draft), nil
}

// Update applies a patch to the user's draft. Nil patch fields leave the
// corresponding draft fields unchanged.
func (s *DraftStore) Update(userID string, patch *models.DraftPatch) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[userID]
	if !ok {
		return nil, fmt.Errorf("no draft for user %s", userID)
	}

	if patch.Title != nil {
		draft.Product.Title = *patch.Title
	}
	if patch.CurrentPrice != nil {
		draft.Product.Price.Current = *patch.CurrentPrice
	}
	if patch.OriginalPrice != nil {
		draft.Product.Price.Original = *patch.OriginalPrice
	}
	if patch.Description != nil {
		draft.Product.Description = *patch.Description
	}
	if patch.Images != nil {
		draft.Product.Images = patch.Images
	}
	draft.UpdatedAt = time.Now()

	return snapshotDraft(draft), nil
}

// snapshotDraft copies a draft, product included. The store hands out only
// snapshots; the stored draft is mutated exclusively under the write lock.
func snapshotDraft(draft *models.Draft) *models.Draft {
	copied := *draft
	if draft.Product != nil {
		product := *draft.Product
		product.Images = append([]string(nil), draft.Product.Images...)
		copied.Product = &product
	}
	return &copied
}

// Delete removes the user's draft (publish and cancel both end here).
func (s *DraftStore) Delete(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[userID]; !ok {
		return fmt.Errorf("no draft for user %s", userID)
	}
	delete(s.drafts, userID)
	return nil
}

// Count returns how many drafts are open.
func (s *DraftStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// Stop ends the TTL sweep goroutine.
func (s *DraftStore) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *DraftStore) sweepLoop() {
	ticker := time.NewTicker(s.ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// sweep removes drafts idle past the TTL.
func (s *DraftStore) sweep() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, draft := range s.drafts {
		if draft.UpdatedAt.Before(cutoff) {
			delete(s.drafts, userID)
			log.Printf("Swept stale draft for user %s", userID)
		}
	}
}
