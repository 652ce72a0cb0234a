package recognition

import (
	"context"
	"log"
	"time"
)

// queryK is how many ranked identities a recognition query requests. The
// decider needs the top two to detect ambiguity; the rest is log fodder.
const queryK = 5

// Recognizer composes the store, index, decider and sequencer into the single
// operation the rest of the system calls: probe vector in, recognition result
// plus attendance side effect out.
//
// Safe for concurrent use. Recognitions of different identities proceed in
// parallel; the sequencer serializes transitions per identity.
type Recognizer struct {
	store     *Store
	index     *Index
	decider   Decider
	sequencer *Sequencer
}

// NewRecognizer wires the engine together.
func NewRecognizer(store *Store, index *Index, decider Decider, sequencer *Sequencer) *Recognizer {
	return &Recognizer{
		store:     store,
		index:     index,
		decider:   decider,
		sequencer: sequencer,
	}
}

// Store exposes the embedding store for read access.
func (r *Recognizer) Store() *Store { return r.store }

// Index exposes the similarity index for read access.
func (r *Recognizer) Index() *Index { return r.index }

// Sequencer exposes the attendance state machine for read access.
func (r *Recognizer) Sequencer() *Sequencer { return r.sequencer }

// Register stores a new identity's embeddings and makes it searchable
// immediately.
func (r *Recognizer) Register(identityID string, meta Metadata, embeddings []NewEmbedding) error {
	if err := r.store.Register(identityID, meta, embeddings); err != nil {
		return err
	}
	id, _ := r.store.Get(identityID)
	r.index.Add(identityID, id.Records)
	r.store.MarkClean()
	return nil
}

// Delete removes an identity. Its embeddings stop matching immediately via a
// tombstone; when tombstones pile up past the configured ratio the arena is
// compacted from a fresh store listing. Historical attendance records are
// untouched.
func (r *Recognizer) Delete(identityID string) error {
	if err := r.store.Delete(identityID); err != nil {
		return err
	}
	r.index.RemoveIdentity(identityID)
	if r.index.Stale() {
		r.RebuildIndex()
	}
	return nil
}

// RebuildIndex compacts the index from the authoritative store contents.
func (r *Recognizer) RebuildIndex() {
	start := time.Now()
	identities := r.store.List()
	r.index.Rebuild(identities)
	r.store.MarkClean()
	log.Printf("similarity index rebuilt: %d identities, %d records, generation %d (%s)",
		len(identities), r.index.Len(), r.index.Generation(), time.Since(start).Round(time.Millisecond))
}

// Recognize matches a probe vector and, on a recognized verdict, applies the
// attendance transition at now. Unknown and ambiguous verdicts have no side
// effect and degrade to recognized=false rather than an error.
func (r *Recognizer) Recognize(ctx context.Context, probe []float32, now time.Time) (Result, error) {
	candidates := r.index.Query(probe, queryK)
	verdict := r.decider.Decide(candidates)

	result := Result{
		Verdict:    verdict,
		Confidence: verdict.BestScore,
		Timestamp:  now,
	}
	if verdict.Kind != VerdictRecognized {
		return result, nil
	}

	day, err := r.sequencer.Apply(ctx, verdict.IdentityID, now)
	if err != nil {
		return result, err
	}

	result.Recognized = true
	result.IdentityID = verdict.IdentityID
	result.Confidence = verdict.Confidence
	result.Status = day.Status
	return result, nil
}
