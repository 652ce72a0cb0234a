package recognition

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/coder/hnsw"
)

// HNSW parameters for 512-dim face embeddings.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswSearchMultiplier requests more candidates than asked for, so that
	// tombstoned identities and per-identity duplicates do not starve the
	// result set before the per-identity reduction.
	hnswSearchMultiplier = 3

	// hnswMinSearchPool is the minimum candidate pool for graph searches.
	hnswMinSearchPool = 100

	// flatScanLimit is the record count below which queries scan the whole
	// snapshot instead of walking the graph. Exact and fast at this scale.
	flatScanLimit = 4096
)

// DefaultRebuildRatio is the tombstoned-record fraction above which a
// compacting rebuild is due.
const DefaultRebuildRatio = 0.20

// indexEntry pins one embedding record to its owning identity inside a snapshot.
type indexEntry struct {
	identityID string
	vector     []float32
}

// snapshot is an immutable view of the index: a flat record arena, an HNSW
// graph over arena offsets, and the set of identities deleted since the arena
// was built. Snapshots are never mutated; writers publish replacements.
type snapshot struct {
	entries    []indexEntry
	graph      *hnsw.Graph[int64]
	tombstones map[string]struct{}
	generation uint64
}

// Index answers nearest-identity queries against an atomically swapped
// snapshot. Queries proceed lock-free against whatever snapshot is current;
// a rebuild or registration swaps in a new snapshot and in-flight queries
// finish against the stale-but-consistent view.
//
// Deletions are tombstones: excluded from results immediately, physically
// removed only when a rebuild compacts the arena.
type Index struct {
	snap         atomic.Pointer[snapshot]
	writeMu      sync.Mutex // serializes snapshot publication
	rebuildRatio float64
	generation   atomic.Uint64
}

// NewIndex creates an empty index. rebuildRatio is the tombstone fraction
// that makes Stale() report true; zero or negative selects the default.
func NewIndex(rebuildRatio float64) *Index {
	if rebuildRatio <= 0 {
		rebuildRatio = DefaultRebuildRatio
	}
	idx := &Index{rebuildRatio: rebuildRatio}
	idx.snap.Store(&snapshot{tombstones: map[string]struct{}{}})
	return idx
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

func buildSnapshot(entries []indexEntry, generation uint64) *snapshot {
	s := &snapshot{
		entries:    entries,
		tombstones: map[string]struct{}{},
		generation: generation,
	}
	if len(entries) > flatScanLimit {
		g := newGraph()
		for i := range entries {
			g.Add(hnsw.MakeNode(int64(i), entries[i].vector))
		}
		s.graph = g
	}
	return s
}

// Rebuild reconstructs the index wholesale from a store listing. After a
// rebuild no tombstoned identity's vectors are searchable or resident.
func (idx *Index) Rebuild(identities []Identity) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	var entries []indexEntry
	for _, id := range identities {
		for _, rec := range id.Records {
			entries = append(entries, indexEntry{identityID: id.ID, vector: rec.Vector})
		}
	}
	idx.snap.Store(buildSnapshot(entries, idx.generation.Add(1)))
}

// Add merges a newly registered identity's records into the searchable
// snapshot. Visibility is immediate: the new snapshot is published before
// Add returns. Live entries are carried over; tombstoned ones are dropped,
// so a registration doubles as an opportunistic compaction.
//
// An identity tombstoned in the current snapshot stays dead: a delete that
// raced ahead of this Add must not be resurrected by publishing its vectors
// into a snapshot with a fresh tombstone set.
func (idx *Index) Add(identityID string, records []EmbeddingRecord) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	cur := idx.snap.Load()
	if _, dead := cur.tombstones[identityID]; dead {
		records = nil
	}
	entries := make([]indexEntry, 0, len(cur.entries)+len(records))
	for _, e := range cur.entries {
		if _, dead := cur.tombstones[e.identityID]; dead {
			continue
		}
		entries = append(entries, e)
	}
	for _, rec := range records {
		entries = append(entries, indexEntry{identityID: identityID, vector: rec.Vector})
	}
	idx.snap.Store(buildSnapshot(entries, idx.generation.Add(1)))
}

// RemoveIdentity tombstones an identity. Its vectors stop matching
// immediately; the arena is compacted by the next rebuild.
func (idx *Index) RemoveIdentity(identityID string) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	cur := idx.snap.Load()
	next := &snapshot{
		entries:    cur.entries,
		graph:      cur.graph,
		tombstones: make(map[string]struct{}, len(cur.tombstones)+1),
		generation: idx.generation.Add(1),
	}
	for id := range cur.tombstones {
		next.tombstones[id] = struct{}{}
	}
	next.tombstones[identityID] = struct{}{}
	idx.snap.Store(next)
}

// Query returns up to k identities ranked by best-of-N cosine similarity
// against the probe. The probe is normalized defensively; caller
// normalization is never trusted. An empty index yields an empty list.
func (idx *Index) Query(probe []float32, k int) []Candidate {
	snap := idx.snap.Load()
	if len(snap.entries) == 0 || k <= 0 {
		return nil
	}
	p := Normalize(probe)

	// One score per identity: the maximum across that identity's records.
	// Any single well-matching record is sufficient evidence.
	best := make(map[string]float64)
	score := func(e indexEntry) {
		if _, dead := snap.tombstones[e.identityID]; dead {
			return
		}
		s := Dot(p, e.vector)
		if cur, ok := best[e.identityID]; !ok || s > cur {
			best[e.identityID] = s
		}
	}

	if snap.graph == nil {
		for i := range snap.entries {
			score(snap.entries[i])
		}
	} else {
		pool := k * hnswSearchMultiplier
		if pool < hnswMinSearchPool {
			pool = hnswMinSearchPool
		}
		for _, n := range snap.graph.Search(p, pool) {
			score(snap.entries[n.Key])
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for id, s := range best {
		candidates = append(candidates, Candidate{IdentityID: id, Score: s})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].IdentityID < candidates[j].IdentityID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Stale reports whether the tombstoned fraction of the arena exceeds the
// rebuild ratio, meaning a compacting rebuild is due. Internal signal only;
// query correctness does not depend on it.
func (idx *Index) Stale() bool {
	snap := idx.snap.Load()
	if len(snap.entries) == 0 || len(snap.tombstones) == 0 {
		return false
	}
	var dead int
	for _, e := range snap.entries {
		if _, ok := snap.tombstones[e.identityID]; ok {
			dead++
		}
	}
	return float64(dead)/float64(len(snap.entries)) > idx.rebuildRatio
}

// Len returns the number of live (non-tombstoned) records in the snapshot.
func (idx *Index) Len() int {
	snap := idx.snap.Load()
	if len(snap.tombstones) == 0 {
		return len(snap.entries)
	}
	var live int
	for _, e := range snap.entries {
		if _, ok := snap.tombstones[e.identityID]; !ok {
			live++
		}
	}
	return live
}

// Generation returns the snapshot generation counter. Each publication
// (rebuild, add, tombstone) increments it.
func (idx *Index) Generation() uint64 {
	return idx.snap.Load().generation
}
