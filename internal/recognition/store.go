package recognition

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Store is the authoritative in-memory mapping from identity to its embedding
// records. The similarity index is always reconstructible from a Store listing;
// the Store is the source of truth for what the index should contain.
//
// Mutations are serialized by a single writer lock. After any mutation the
// store is marked dirty so callers know an index rebuild would pick up changes.
type Store struct {
	mu         sync.RWMutex
	identities map[string]*Identity
	dirty      atomic.Bool
}

// NewStore creates an empty embedding store.
func NewStore() *Store {
	return &Store{
		identities: make(map[string]*Identity),
	}
}

// Register stores all vectors atomically as immutable records of a new
// identity. Vectors are defensively unit-normalized; provenance is preserved.
func (s *Store) Register(identityID string, meta Metadata, embeddings []NewEmbedding) error {
	if len(embeddings) == 0 {
		return ErrEmptyEmbeddingSet
	}
	for i, e := range embeddings {
		if len(e.Vector) != EmbeddingDim {
			return fmt.Errorf("embedding %d has %d dimensions, want %d: %w",
				i, len(e.Vector), EmbeddingDim, ErrDimensionMismatch)
		}
	}

	now := time.Now()
	records := make([]EmbeddingRecord, 0, len(embeddings))
	for _, e := range embeddings {
		source := e.Source
		if source == "" {
			source = SourceOriginal
		}
		records = append(records, EmbeddingRecord{
			ID:        uuid.NewString(),
			Vector:    Normalize(e.Vector),
			Source:    source,
			CreatedAt: now,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.identities[identityID]; exists {
		return fmt.Errorf("%q: %w", identityID, ErrDuplicateIdentity)
	}

	s.identities[identityID] = &Identity{
		ID:        identityID,
		Metadata:  meta,
		Records:   records,
		CreatedAt: now,
	}
	s.dirty.Store(true)
	return nil
}

// Delete removes an identity and all its embedding records.
func (s *Store) Delete(identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.identities[identityID]; !exists {
		return fmt.Errorf("%q: %w", identityID, ErrIdentityNotFound)
	}
	delete(s.identities, identityID)
	s.dirty.Store(true)
	return nil
}

// Load seeds the store with identities restored from persistent storage,
// keeping their record IDs and timestamps. Existing entries with the same
// identity ID are replaced.
func (s *Store) Load(identities []Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range identities {
		cp := copyIdentity(&id)
		for i := range cp.Records {
			cp.Records[i].Vector = Normalize(cp.Records[i].Vector)
		}
		s.identities[id.ID] = &cp
	}
	s.dirty.Store(true)
}

// Get returns a copy of the identity, or false if not registered.
func (s *Store) Get(identityID string) (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.identities[identityID]
	if !ok {
		return Identity{}, false
	}
	return copyIdentity(id), true
}

// List returns a consistent point-in-time copy of all identities and their
// records, taken under a brief read lock. Used by index rebuilds.
func (s *Store) List() []Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Identity, 0, len(s.identities))
	for _, id := range s.identities {
		out = append(out, copyIdentity(id))
	}
	return out
}

// Count returns the number of registered identities.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}

// Dirty reports whether the store has mutated since the last MarkClean.
func (s *Store) Dirty() bool {
	return s.dirty.Load()
}

// MarkClean clears the dirty flag after an index rebuild.
func (s *Store) MarkClean() {
	s.dirty.Store(false)
}

func copyIdentity(id *Identity) Identity {
	out := *id
	out.Records = make([]EmbeddingRecord, len(id.Records))
	for i, rec := range id.Records {
		vec := make([]float32, len(rec.Vector))
		copy(vec, rec.Vector)
		rec.Vector = vec
		out.Records[i] = rec
	}
	return out
}
